package manage

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"github.com/forumkit/forumadmin/pkg/faplugin/luautil"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
)

// luaLogAction logs an admin action. Arguments: action, staff ID, optional table of extra details
func luaLogAction(l *lua.LState) int {
	action := l.CheckString(1)
	staffID := l.CheckInt(2)
	var extra map[string]any
	if l.GetTop() > 2 {
		if details, ok := luautil.LValueToInterface(l, l.CheckTable(3)).(map[string]any); ok {
			extra = details
		}
	}
	err := fasql.LogAction(nil, fasql.AdminLog, action, staffID, "", extra)
	if err != nil {
		fautil.LogError(err).Str("action", action).Msg("Unable to log action from plugin")
	}
	l.Push(luar.New(l, err))
	return 1
}

func PreloadModule(l *lua.LState) int {
	t := l.NewTable()
	l.SetFuncs(t, map[string]lua.LGFunction{
		"log_action": luaLogAction,
		"register_manage_page": func(l *lua.LState) int {
			actionID := l.CheckString(1)
			actionTitle := l.CheckString(2)
			actionPerms := l.CheckInt(3)
			actionJSON := l.CheckInt(4)
			fn := l.CheckFunction(5)
			actionHandler := func(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (output any, err error) {
				if err = l.CallByParam(lua.P{
					Fn:   fn,
					NRet: 2,
				}, luar.New(l, writer), luar.New(l, request), luar.New(l, staff), lua.LBool(wantsJSON), luar.New(l, infoEv), luar.New(l, errEv)); err != nil {
					return "", err
				}
				out := luautil.LValueToInterface(l, l.Get(-2))
				errStr := lua.LVAsString(l.Get(-1))
				l.Pop(2)
				if errStr != "" {
					err = errors.New(errStr)
				}
				return out, err
			}
			RegisterManagePage(actionID, actionTitle, actionPerms, actionJSON, actionHandler)
			return 0
		},
	})
	l.Push(t)
	return 1
}

func init() {
	registerNoPermPages()
	registerJanitorPages()
	registerViewQueryPage()
	registerLogsArea()
	registerAvatarsArea()
	registerBBCArea()
	registerCalendarArea()
	registerEditorArea()
	registerEmojiArea()
	registerLanguagesArea()
	registerPostSettingsArea()
	registerSecuritySettingsArea()
	registerRepairBoardsArea()
}
