package manage

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/server/serverutil"
)

const sessionCookie = "sessiondata"

var (
	ErrBadToken = server.NewServerError(serverutil.ErrBadToken, http.StatusForbidden)
)

func sessionKey(request *http.Request) string {
	cookie, err := request.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// formToken returns a token to be put in a form submitting to the given action (usually the area ID)
func formToken(request *http.Request, action string) (string, error) {
	return serverutil.NewFormToken(sessionKey(request), action)
}

// checkFormToken writes a 403 status and returns ErrBadToken if the submitted token is invalid
func checkFormToken(writer http.ResponseWriter, request *http.Request, action string, errEv *zerolog.Event) error {
	err := serverutil.ValidateFormToken(request, sessionKey(request), action)
	if err == nil {
		return nil
	}
	errEv.Err(err).Caller(1).Str("formAction", action).Msg("Rejected form submission")
	writer.WriteHeader(http.StatusForbidden)
	if errors.Is(err, serverutil.ErrBadToken) {
		return ErrBadToken
	}
	return server.NewServerError(err, http.StatusForbidden)
}

func renderTemplate(name string, data map[string]any) (string, error) {
	tmpl, err := fatemplates.GetTemplate(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// areaURL returns the path of the area's sub-action, with the given query values added
func areaURL(areaID string, sa string, params url.Values) string {
	query := url.Values{}
	if sa != "" {
		query.Set("sa", sa)
	}
	for key, vals := range params {
		for _, val := range vals {
			query.Add(key, val)
		}
	}
	u := config.WebPath("/manage", areaID)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// redirect sends a 303 response, so that refreshing the resulting page doesn't resubmit the form
func redirect(writer http.ResponseWriter, request *http.Request, location string) (any, error) {
	http.Redirect(writer, request, location, http.StatusSeeOther)
	return nil, nil
}

// formInts returns the values of a multi-value form field (like delete[]) that parse as integers
func formInts(request *http.Request, name string) []int {
	var ints []int
	for _, val := range request.Form[name] {
		if i, err := strconv.Atoi(val); err == nil {
			ints = append(ints, i)
		}
	}
	return ints
}
