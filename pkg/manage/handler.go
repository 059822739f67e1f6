package manage

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/uptrace/bunrouter"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fasql/querylog"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/server/serverutil"
)

var (
	ErrJSONUnsupported   = server.NewServerError("JSON output is not supported by this page", http.StatusBadRequest)
	ErrNotAllowed        = server.NewServerError("You don't have permission to access this page", http.StatusForbidden)
	ErrAdminSessionTimed = server.NewServerError("Your administration session has timed out, please log in again", http.StatusUnauthorized)
)

// statusWriter remembers the status code written by a callback, so that errors returned after a callback
// has already set the status aren't sent with a different one
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *statusWriter) Write(ba []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(ba)
}

func getCurrentStaff(request *http.Request) (*fasql.Staff, error) {
	session := sessionKey(request)
	if session == "" {
		return nil, fasql.ErrStaffNotFound
	}
	return fasql.GetStaffBySession(fasql.ContextOptions(request.Context()), session)
}

func setupManageFunction(action *Action) bunrouter.HandlerFunc {
	return func(writer http.ResponseWriter, req bunrouter.Request) error {
		ctx, requestID := fautil.WithRequestID(req.Context())
		request := req.Request.WithContext(ctx)
		sw := &statusWriter{ResponseWriter: writer}
		infoEv, warnEv, errEv := fautil.LogRequest(request)
		defer fautil.LogDiscard(infoEv, warnEv, errEv)
		errEv.Str("action", action.ID)

		wantsJSON := action.JSONoutput == AlwaysJSON || serverutil.IsRequestingJSON(request)
		if wantsJSON && action.JSONoutput == NoJSON {
			server.ServeError(sw, ErrJSONUnsupported, true, nil)
			return nil
		}

		staff, err := getCurrentStaff(request)
		if errors.Is(err, fasql.ErrStaffNotFound) {
			staff = &fasql.Staff{}
		} else if err != nil {
			errEv.Err(err).Caller().Msg("Unable to get staff info")
			server.ServeError(sw, server.NewServerError("Unable to get staff info", http.StatusInternalServerError), wantsJSON, nil)
			return nil
		}
		if staff.Username != "" {
			fautil.LogStr("staff", staff.Username, infoEv, warnEv, errEv)
		}

		if staff.Rank == NoPerms && action.Permissions > NoPerms {
			if wantsJSON {
				server.ServeError(sw, server.NewServerError("You are not logged in", http.StatusUnauthorized), true, nil)
				return nil
			}
			login := getAction("login")
			output, err := login.Callback(sw, request, staff, false, infoEv, errEv)
			serveOutput(sw, request, login, staff, action.ID, output, err, false)
			return nil
		}
		if !canAccess(action, staff.Rank) {
			warnEv.Int("rank", staff.Rank).Msg("Rejected request to manage page (insufficient permissions)")
			server.ServeError(sw, ErrNotAllowed, wantsJSON, nil)
			return nil
		}

		// the query viewer shows the previous request, so its own queries aren't recorded
		if session := sessionKey(request); session != "" && action.ID != "viewquery" {
			querylog.Begin(requestID, session, request.URL.Path)
			defer querylog.End(requestID)
		}

		if err = serverutil.ValidatePostReferer(request); err != nil {
			warnEv.Err(err).Str("referer", request.Referer()).Msg("Rejected POST from external referer")
			server.ServeError(sw, server.NewServerError(err, http.StatusForbidden), wantsJSON, nil)
			return nil
		}

		output, err := action.Callback(sw, request, staff, wantsJSON, infoEv, errEv)
		serveOutput(sw, request, action, staff, action.ID, output, err, wantsJSON)
		return nil
	}
}

func serveOutput(writer *statusWriter, request *http.Request, action *Action, staff *fasql.Staff, actionID string, output any, err error, wantsJSON bool) {
	if err != nil {
		status := writer.status
		if status == 0 || status == http.StatusOK {
			status = server.StatusCode(err, http.StatusInternalServerError)
		}
		server.ServeError(writer, server.NewServerError(err.Error(), status), wantsJSON, nil)
		return
	}
	if output == nil {
		return
	}
	if wantsJSON {
		jsonStr, err := fautil.MarshalJSON(output, false)
		if err != nil {
			server.ServeError(writer, server.NewServerError(err.Error(), http.StatusInternalServerError), true, nil)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		serverutil.MinifyWriter(writer, []byte(jsonStr), "application/json")
		return
	}
	body, _ := output.(string)
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	if action.Standalone {
		serverutil.MinifyWriter(writer, []byte(body), "text/html")
		return
	}
	tmpl, err := fatemplates.GetTemplate(fatemplates.ManagePage)
	if err != nil {
		fautil.LogError(err).Caller().Msg("Unable to load manage page template")
		server.ServeError(writer, server.NewServerError("Unable to load the staff page template", http.StatusInternalServerError), false, nil)
		return
	}
	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, map[string]any{
		"pageTitle": getPageTitle(actionID, staff),
		"staff":     staff,
		"actions":   getAvailableActions(staff.Rank, true),
		"actionID":  actionID,
		"body":      template.HTML(body), // skipcq: GSC-G203
	}); err != nil {
		fautil.LogError(err).Caller().Str("template", fatemplates.ManagePage).Send()
		server.ServeError(writer, server.NewServerError("Unable to render the staff page", http.StatusInternalServerError), false, nil)
		return
	}
	serverutil.MinifyWriter(writer, buf.Bytes(), "text/html")
	fautil.LogAccess(request).Int("status", writer.status).Str("action", actionID).Send()
}

// adminSessionExpired returns true if the staff member logged in longer ago than admin_session_lifetime minutes
func adminSessionExpired(staff *fasql.Staff) bool {
	lifetime := fasql.GetSettingInt("admin_session_lifetime")
	if lifetime <= 0 || staff.LastLogin.IsZero() {
		return false
	}
	return time.Since(staff.LastLogin) > time.Duration(lifetime)*time.Minute
}
