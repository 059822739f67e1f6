package manage

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/server/serverutil"
)

var (
	ErrPasswordsDoNotMatch    = server.NewServerError("passwords do not match", http.StatusBadRequest)
	ErrInsufficientPermission = server.NewServerError("insufficient account permission", http.StatusForbidden)
	ErrUnknownStaff           = server.NewServerError("unrecognized staff username", http.StatusBadRequest)
)

// manage actions that require at least janitor-level permission go here

func logoutCallback(writer http.ResponseWriter, request *http.Request, _ *fasql.Staff, _ bool, _ *zerolog.Event, errEv *zerolog.Event) (output any, err error) {
	if key := sessionKey(request); key != "" {
		if err = fasql.EndStaffSession(fasql.ContextOptions(request.Context()), key); err != nil {
			errEv.Err(err).Caller().Msg("Unable to end staff session")
			return nil, err
		}
	}
	serverutil.DeleteCookie(writer, request, sessionCookie)
	http.Redirect(writer, request, config.WebPath("/manage"), http.StatusSeeOther)
	return nil, nil
}

func clearMySessionsCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, _ *zerolog.Event, errEv *zerolog.Event) (output any, err error) {
	if err = staff.ClearSessions(fasql.ContextOptions(request.Context())); err != nil {
		errEv.Err(err).Caller().Msg("Unable to clear staff sessions")
		return nil, err
	}
	serverutil.DeleteCookie(writer, request, sessionCookie)
	fautil.LogAccess(request).
		Str("clearSessions", staff.Username).
		Send()
	if !wantsJSON {
		http.Redirect(writer, request, config.WebPath("/manage"), http.StatusSeeOther)
		return nil, nil
	}
	return "Logged out successfully", nil
}

func dashboardCallback(_ http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, _ *zerolog.Event, errEv *zerolog.Event) (output any, err error) {
	var notices []string
	maintenance := config.GetFileSettingBool("maintenance")
	if maintenance {
		notices = append(notices, "The forum is in maintenance mode")
	}
	if config.DebugEnabled() {
		notices = append(notices, "Debug mode is enabled, every query is being recorded")
	}
	available := getAvailableActions(staff.Rank, true)
	if wantsJSON {
		return map[string]any{
			"staff":       staff,
			"notices":     notices,
			"dbDriver":    fasql.SQLDriver(),
			"maintenance": maintenance,
			"actions":     available,
		}, nil
	}
	output, err = renderTemplate(fatemplates.ManageDashboard, map[string]any{
		"staff":            staff,
		"notices":          notices,
		"dbDriver":         fasql.SQLDriver(),
		"debug":            config.DebugEnabled(),
		"maintenance":      maintenance,
		"maintenanceTitle": config.GetFileSetting("mtitle"),
		"actions":          available,
	})
	if err != nil {
		errEv.Err(err).Caller().Str("template", fatemplates.ManageDashboard).Send()
		return nil, err
	}
	return output, nil
}

func staffCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (output any, err error) {
	opts := fasql.ContextOptions(request.Context())
	allStaff, err := fasql.GetAllStaff(opts)
	if err != nil {
		errEv.Err(err).Caller().Msg("Failed getting staff list")
		return nil, errors.New("unable to get the staff list")
	}
	if wantsJSON {
		return allStaff, nil
	}

	var notice string
	if do := request.PostFormValue("do"); request.Method == http.MethodPost && do != "" {
		if staff.Rank < AdminPerms {
			writer.WriteHeader(http.StatusForbidden)
			errEv.Str("do", do).Msg("Non-admin tried to modify staff accounts")
			return nil, ErrInsufficientPermission
		}
		if err = checkFormToken(writer, request, "staff", errEv); err != nil {
			return nil, err
		}
		if notice, err = staffPostAction(writer, request, staff, do, errEv); err != nil {
			return nil, err
		}
		infoEv.Str("do", do).Str("username", request.PostFormValue("username")).Msg("Staff account updated")
		if allStaff, err = fasql.GetAllStaff(opts); err != nil {
			errEv.Err(err).Caller().Msg("Error getting updated staff list")
			return nil, errors.New("unable to get the updated staff list")
		}
	}

	token, err := formToken(request, "staff")
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to create form token")
		return nil, err
	}
	ranks := []int{JanitorPerms, ModPerms, AdminPerms}
	rankTitles := map[int]string{}
	for _, rank := range ranks {
		rankTitles[rank] = fasql.RankTitle(rank)
	}
	output, err = renderTemplate(fatemplates.ManageStaff, map[string]any{
		"allStaff":   allStaff,
		"isAdmin":    staff.Rank == AdminPerms,
		"staff":      staff,
		"token":      token,
		"ranks":      ranks,
		"rankTitles": rankTitles,
		"notice":     notice,
	})
	if err != nil {
		errEv.Err(err).Caller().Str("template", fatemplates.ManageStaff).Send()
		return nil, err
	}
	return output, nil
}

func staffPostAction(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, do string, errEv *zerolog.Event) (string, error) {
	opts := fasql.ContextOptions(request.Context())
	username := strings.TrimSpace(request.PostFormValue("username"))
	rank, _ := strconv.Atoi(request.PostFormValue("rank"))
	if do == "add" {
		password := request.PostFormValue("password")
		if username == "" || password == "" {
			writer.WriteHeader(http.StatusBadRequest)
			return "", server.NewServerError("a username and password are required", http.StatusBadRequest)
		}
		if password != request.PostFormValue("passwordconfirm") {
			writer.WriteHeader(http.StatusBadRequest)
			return "", ErrPasswordsDoNotMatch
		}
		if _, err := fasql.NewStaff(opts, username, password, rank); err != nil {
			errEv.Err(err).Caller().
				Str("newStaff", username).
				Int("newRank", rank).
				Msg("Error creating new staff account")
			if errors.Is(err, fasql.ErrStaffExists) {
				writer.WriteHeader(http.StatusBadRequest)
				return "", server.NewServerError(err, http.StatusBadRequest)
			}
			return "", errors.New("unable to create the staff account")
		}
		return "Added " + username, nil
	}

	if username == staff.Username {
		writer.WriteHeader(http.StatusBadRequest)
		return "", server.NewServerError("you can't modify your own account here", http.StatusBadRequest)
	}
	target, err := fasql.GetStaffByUsername(opts, username, false)
	if errors.Is(err, fasql.ErrStaffNotFound) {
		writer.WriteHeader(http.StatusBadRequest)
		return "", ErrUnknownStaff
	} else if err != nil {
		errEv.Err(err).Caller().Str("username", username).Send()
		return "", err
	}
	switch do {
	case "changerank":
		err = target.UpdateRank(opts, rank)
	case "deactivate":
		err = target.SetActive(opts, false)
	case "activate":
		err = target.SetActive(opts, true)
	default:
		writer.WriteHeader(http.StatusBadRequest)
		return "", server.NewServerError("unrecognized staff action", http.StatusBadRequest)
	}
	if err != nil {
		errEv.Err(err).Caller().Str("username", username).Str("do", do).Msg("Error updating staff account")
		return "", errors.New("unable to update the staff account")
	}
	if err = fasql.LogAction(opts, fasql.AdminLog, "staff_"+do, staff.ID, fautil.GetRealIP(request), map[string]any{
		"member": username,
	}); err != nil {
		errEv.Err(err).Caller().Send()
		return "", err
	}
	return "Updated " + username, nil
}

func registerJanitorPages() {
	RegisterManagePage("logout", "Logout", JanitorPerms, NoJSON, logoutCallback)
	RegisterManagePage("clearmysessions", "Log me out everywhere", JanitorPerms, OptionalJSON, clearMySessionsCallback)
	RegisterManagePage("dashboard", "Dashboard", JanitorPerms, OptionalJSON, dashboardCallback)
	RegisterManagePage("actions", "Staff actions", JanitorPerms, AlwaysJSON, getStaffActions)
	RegisterManagePage("staff", "Staff", JanitorPerms, OptionalJSON, staffCallback)
}
