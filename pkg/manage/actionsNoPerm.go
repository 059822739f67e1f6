package manage

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
)

const (
	loginTitle = "Login"
	// sessionKeyLength matches the size of the sessions.data column
	sessionKeyLength = 45

	defaultSessionDuration = 90 * 24 * time.Hour
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
)

func loginRedirectAction(request *http.Request) string {
	redirectAction := request.FormValue("redirect")
	if redirectAction == "" {
		redirectAction = strings.Trim(strings.TrimPrefix(request.URL.Path, config.WebPath("/manage")), "/")
	}
	if redirectAction == "" || redirectAction == "login" || redirectAction == "logout" || getAction(redirectAction) == nil {
		redirectAction = "dashboard"
	}
	return redirectAction
}

func loginCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, _ bool, _, errEv *zerolog.Event) (output any, err error) {
	if staff.Rank > NoPerms {
		http.Redirect(writer, request, config.WebPath("/manage"), http.StatusFound)
		return nil, nil
	}
	username := strings.TrimSpace(request.PostFormValue("username"))
	password := request.PostFormValue("password")
	redirectAction := loginRedirectAction(request)

	if request.Method != http.MethodPost || (username == "" && password == "") {
		// assume that they haven't tried to log in yet
		return renderTemplate(fatemplates.ManageLogin, map[string]any{
			"redirect": redirectAction,
			"username": username,
		})
	}

	opts := fasql.ContextOptions(request.Context())
	loginStaff, err := fasql.GetStaffByUsername(opts, username, true)
	if err != nil && !errors.Is(err, fasql.ErrStaffNotFound) {
		errEv.Err(err).Caller().Str("username", username).Msg("Unable to get staff account")
		return nil, err
	}
	if err != nil || !fautil.CompareBcrypt(loginStaff.PasswordChecksum, password) {
		errEv.Err(ErrBadCredentials).Str("username", username).Msg("Failed login")
		writer.WriteHeader(http.StatusUnauthorized)
		return renderTemplate(fatemplates.ManageLogin, map[string]any{
			"redirect": redirectAction,
			"username": username,
			"message":  "Invalid username or password",
		})
	}

	sessionDuration, err := fautil.ParseDuration(config.GetSiteConfig().StaffSessionDuration)
	if err != nil || sessionDuration <= 0 {
		sessionDuration = defaultSessionDuration
	}
	key := fautil.RandomString(sessionKeyLength)
	expires := time.Now().Add(sessionDuration)
	if err = loginStaff.CreateLoginSession(opts, key, expires); err != nil {
		errEv.Err(err).Caller().Str("username", username).Msg("Unable to create login session")
		return nil, errors.New("unable to create login session")
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     config.WebPath("/"),
		Expires:  expires,
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: fasql.GetSettingBool("httponlyCookies"),
		Secure:   fasql.GetSettingBool("secureCookies"),
		SameSite: http.SameSiteLaxMode,
	})
	fautil.LogAccess(request).Str("login", loginStaff.Username).Send()
	http.Redirect(writer, request, config.WebPath("/manage", redirectAction), http.StatusFound)
	return nil, nil
}

type staffInfoJSON struct {
	Username string   `json:"username"`
	Rank     int      `json:"rank"`
	Actions  []Action `json:"actions,omitempty"`
}

func staffInfoCallback(_ http.ResponseWriter, _ *http.Request, staff *fasql.Staff, _ bool, _ *zerolog.Event, _ *zerolog.Event) (output any, err error) {
	info := staffInfoJSON{
		Username: staff.Username,
		Rank:     staff.Rank,
	}
	if staff.Rank >= JanitorPerms {
		info.Actions = getAvailableActions(staff.Rank, false)
	}
	return info, nil
}

func registerNoPermPages() {
	RegisterManagePage("staffinfo", "", NoPerms, AlwaysJSON, staffInfoCallback)
	registerAction(Action{
		ID:          "login",
		Title:       loginTitle,
		Permissions: NoPerms,
		Standalone:  true,
		Callback:    loginCallback,
	})
}
