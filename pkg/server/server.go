package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/server/serverutil"
	"github.com/uptrace/bunrouter"
)

var (
	router *bunrouter.Router
)

// ServerError is an error with the HTTP status code that should be sent with it
type ServerError struct {
	Err        any
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprint(e.Err)
}

func (e *ServerError) Unwrap() error {
	if err, ok := e.Err.(error); ok {
		return err
	}
	return nil
}

func NewServerError(message any, statusCode int) error {
	return &ServerError{Err: message, StatusCode: statusCode}
}

// StatusCode returns the status code of err if it is (or wraps) a ServerError, or defaultStatus otherwise
func StatusCode(err error, defaultStatus int) int {
	var se *ServerError
	if errors.As(err, &se) && se.StatusCode > 0 {
		return se.StatusCode
	}
	return defaultStatus
}

func errorString(err any) string {
	switch e := err.(type) {
	case error:
		return e.Error()
	case string:
		return e
	}
	return fmt.Sprint(err)
}

// ServeJSON serves data as a JSON string
func ServeJSON(writer http.ResponseWriter, data map[string]any) {
	jsonStr, _ := fautil.MarshalJSON(data, false)
	writer.Header().Set("Content-Type", "application/json")
	serverutil.MinifyWriter(writer, []byte(jsonStr), "application/json")
}

// ServeErrorPage shows a general error page if something goes wrong
func ServeErrorPage(writer http.ResponseWriter, err any) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	if se, ok := err.(*ServerError); ok {
		writer.WriteHeader(se.StatusCode)
	}
	tmpl, tmplErr := fatemplates.GetTemplate(fatemplates.ErrorPage)
	if tmplErr != nil {
		fautil.LogError(tmplErr).Caller().Msg("Unable to load error page template")
		writer.Write([]byte(errorString(err)))
		return
	}
	serverutil.MinifyTemplate(tmpl, map[string]any{
		"errorTitle":  "Error :c",
		"errorHeader": "Error",
		"errorText":   errorString(err),
	}, writer, "text/html")
}

// ServeError serves the given map as a JSON file (with the error string included) if wantsJSON is true,
// otherwise it serves a regular HTML error page
func ServeError(writer http.ResponseWriter, err any, wantsJSON bool, data map[string]any) {
	if !wantsJSON {
		ServeErrorPage(writer, err)
		return
	}
	servedMap := data
	if servedMap == nil {
		servedMap = make(map[string]any)
	}
	servedMap["error"] = errorString(err)
	writer.Header().Set("Content-Type", "application/json")
	if se, ok := err.(*ServerError); ok {
		writer.WriteHeader(se.StatusCode)
	}
	ServeJSON(writer, servedMap)
}

// ServeNotFound shows an error page if a requested file is not found
func ServeNotFound(writer http.ResponseWriter, request *http.Request) {
	ServeErrorPage(writer, NewServerError("Requested page not found", http.StatusNotFound))
	fautil.LogAccess(request).Int("status", http.StatusNotFound).Msg("requested page or resource not found")
}

// InitRouter creates the router. Requests that don't match a registered route are served from the document root
func InitRouter() {
	router = bunrouter.New(
		bunrouter.WithNotFoundHandler(bunrouter.HTTPHandlerFunc(serveFile)),
	)
}

func GetRouter() *bunrouter.Router {
	if router == nil {
		InitRouter()
	}
	return router
}

// ListenAddress returns the host:port the server should listen on
func ListenAddress() string {
	systemCritical := config.GetSystemCriticalConfig()
	return fmt.Sprintf("%s:%d", systemCritical.ListenAddress, systemCritical.Port)
}
