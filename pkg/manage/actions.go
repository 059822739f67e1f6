package manage

import (
	"net/http"
	"path"

	"github.com/rs/zerolog"
	"github.com/uptrace/bunrouter"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/server"
)

const (
	// NoPerms allows anyone to access this Action
	NoPerms = fasql.NoPerms
	// JanitorPerms allows anyone with at least a janitor-level account to access this Action
	JanitorPerms = fasql.JanitorPerms
	// ModPerms allows anyone with at least a moderator-level account to access this Action
	ModPerms = fasql.ModPerms
	// AdminPerms allows only the site administrator to view this Action
	AdminPerms = fasql.AdminPerms
)

const (
	// NoJSON actions will return an error if JSON is requested by the user
	NoJSON = iota
	// OptionalJSON actions have an optional JSON output if requested
	OptionalJSON
	// AlwaysJSON actions always return JSON whether or not it is requested
	AlwaysJSON
)

type CallbackFunction func(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (output any, err error)

// Action represents the functions accessed by staff members at /manage/<functionname>.
type Action struct {
	// ID is the string used when the user requests /manage/<ID>
	ID string `json:"id"`

	// Title is used for the text shown in the staff menu and the window title
	Title string `json:"title"`

	// Permissions represent who can access the page. 0 for anyone,
	// 1 requires the user to have a janitor, mod, or admin account. 2 requires mod or admin,
	// and 3 is only accessible by admins
	Permissions int `json:"perms"`

	// Permission is a named permission (see fasql.DefaultPermissions) the staff member must also have.
	// Admin areas check their permissions per sub-action instead
	Permission string `json:"permission,omitempty"`

	// Hidden is used to hide the action from the staff menu
	Hidden bool `json:"-"`

	// Standalone actions output a complete HTML document that isn't wrapped in the staff page
	Standalone bool `json:"-"`

	// JSONoutput sets what the action can output. If it is 0, it will throw an error if
	// JSON is requested. If it is 1, it can output JSON if requested, and if 2, it always
	// outputs JSON whether it is requested or not
	JSONoutput int `json:"jsonOutput"`

	// Callback executes the staff page. if wantsJSON is true, it should return an object
	// to be marshalled into JSON. Otherwise, a string assumed to be valid HTML is returned.
	// A nil output with a nil error means the callback has already written the response (usually a redirect)
	Callback CallbackFunction `json:"-"`
}

var (
	actions     []*Action
	routesReady bool
)

// RegisterManagePage registers an action at /manage/<id> for GET and POST requests
func RegisterManagePage(id string, title string, permissions int, jsonOutput int, callback CallbackFunction) {
	registerAction(Action{
		ID:          id,
		Title:       title,
		Permissions: permissions,
		JSONoutput:  jsonOutput,
		Callback:    callback,
	})
}

func registerAction(action Action) {
	if existing := getAction(action.ID); existing != nil {
		*existing = action
		return
	}
	registered := &action
	actions = append(actions, registered)
	if routesReady {
		addRoute(registered)
	}
}

func addRoute(action *Action) {
	handler := setupManageFunction(action)
	server.GetRouter().WithGroup(config.WebPath("/manage"), func(g *bunrouter.Group) {
		groupPath := bunrouter.CleanPath(path.Join("/", action.ID))
		g.GET(groupPath, handler)
		g.POST(groupPath, handler)
	})
}

// SetupRoutes adds the registered manage pages to the server's router. Pages registered afterwards
// (by plugins for example) are added as they are registered
func SetupRoutes() {
	for _, action := range actions {
		addRoute(action)
	}
	dashboard := setupManageFunction(getAction("dashboard"))
	server.GetRouter().GET(config.WebPath("/manage"), dashboard)
	routesReady = true
}

func getAction(id string) *Action {
	for _, action := range actions {
		if action.ID == id {
			return action
		}
	}
	return nil
}

func canAccess(action *Action, rank int) bool {
	if rank < action.Permissions {
		return false
	}
	return action.Permission == "" || fasql.IsAllowedTo(rank, action.Permission)
}

func getAvailableActions(rank int, noJSON bool) []Action {
	var available []Action
	for _, action := range actions {
		if action.Permissions == NoPerms || action.Hidden || !canAccess(action, rank) {
			continue
		}
		if noJSON && action.JSONoutput == AlwaysJSON {
			continue
		}
		if area, ok := areas[action.ID]; ok && len(area.available(rank)) == 0 {
			continue
		}
		available = append(available, *action)
	}
	return available
}

func getPageTitle(actionID string, staff *fasql.Staff) string {
	notLoggedIn := staff == nil || staff.Rank == NoPerms
	action := getAction(actionID)
	if action == nil {
		return ""
	}
	if notLoggedIn && action.Permissions > NoPerms {
		return loginTitle
	}
	return action.Title
}

func getStaffActions(_ http.ResponseWriter, _ *http.Request, staff *fasql.Staff, _ bool, _ *zerolog.Event, _ *zerolog.Event) (any, error) {
	return getAvailableActions(staff.Rank, false), nil
}
