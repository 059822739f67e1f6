package manage

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/server"
)

// subAction is a page of an admin area, selected with the sa request value
type subAction struct {
	ID    string
	Label string
	// Permission is the named permission needed to use the sub-action. Sub-actions that need
	// admin_forum also require a recent login (see admin_session_lifetime)
	Permission string
	// Enabled hides the sub-action when it returns false, for features that are turned off
	Enabled func() bool
	// Hidden sub-actions work but don't get a tab
	Hidden  bool
	Handler CallbackFunction
}

func (sa *subAction) enabled() bool {
	return sa.Enabled == nil || sa.Enabled()
}

type area struct {
	ID          string
	Title       string
	Permissions int
	DefaultSA   string
	SubActions  []subAction
}

type subActionTab struct {
	Label  string
	URL    string
	Active bool
}

var areas = map[string]*area{}

func registerArea(a *area) {
	if a.Permissions == NoPerms {
		a.Permissions = JanitorPerms
	}
	areas[a.ID] = a
	registerAction(Action{
		ID:          a.ID,
		Title:       a.Title,
		Permissions: a.Permissions,
		JSONoutput:  OptionalJSON,
		Callback:    a.callback,
	})
}

func (a *area) find(id string) *subAction {
	for s := range a.SubActions {
		if a.SubActions[s].ID == id {
			return &a.SubActions[s]
		}
	}
	return nil
}

// available returns the enabled sub-actions the rank is allowed to use
func (a *area) available(rank int) []subAction {
	var subActions []subAction
	for _, sa := range a.SubActions {
		if !sa.enabled() || (sa.Permission != "" && !fasql.IsAllowedTo(rank, sa.Permission)) {
			continue
		}
		subActions = append(subActions, sa)
	}
	return subActions
}

// resolve returns the requested sub-action. If it doesn't exist or is disabled, the default is used, or
// the first enabled sub-action if the default is disabled too
func (a *area) resolve(id string) *subAction {
	if sa := a.find(id); sa != nil && sa.enabled() {
		return sa
	}
	if sa := a.find(a.DefaultSA); sa != nil && sa.enabled() {
		return sa
	}
	for s := range a.SubActions {
		if a.SubActions[s].enabled() {
			return &a.SubActions[s]
		}
	}
	return nil
}

func (a *area) tabs(rank int, current string) []subActionTab {
	var tabs []subActionTab
	for _, sa := range a.available(rank) {
		if sa.Hidden {
			continue
		}
		tabs = append(tabs, subActionTab{
			Label:  sa.Label,
			URL:    areaURL(a.ID, sa.ID, nil),
			Active: sa.ID == current,
		})
	}
	return tabs
}

func (a *area) callback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	sa := a.resolve(request.FormValue("sa"))
	if sa == nil {
		writer.WriteHeader(http.StatusNotFound)
		return nil, server.NewServerError("Nothing in this area is enabled", http.StatusNotFound)
	}
	errEv.Str("subAction", sa.ID)
	if sa.Permission != "" && !fasql.IsAllowedTo(staff.Rank, sa.Permission) {
		errEv.Str("permission", sa.Permission).Msg("Staff member is not allowed to access sub-action")
		writer.WriteHeader(http.StatusForbidden)
		return nil, ErrNotAllowed
	}
	if sa.Permission == "admin_forum" && adminSessionExpired(staff) {
		errEv.Time("lastLogin", staff.LastLogin).Msg("Admin session timed out")
		writer.WriteHeader(http.StatusUnauthorized)
		return nil, ErrAdminSessionTimed
	}
	infoEv.Str("subAction", sa.ID)
	return sa.Handler(writer, request, staff, wantsJSON, infoEv, errEv)
}

// areaTabs returns the sub-action tabs of the area for the template's subActions key
func areaTabs(areaID string, rank int, current string) []subActionTab {
	if a, ok := areas[areaID]; ok {
		return a.tabs(rank, current)
	}
	return nil
}
