package fautil

import (
	"context"
	"fmt"

	"github.com/forumkit/forumadmin/pkg/faplugin/luautil"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

// LuaLogFunc returns a Lua function that pushes a new log event of the given level ("info", "warn" or "error")
func LuaLogFunc(which string) lua.LGFunction {
	return func(l *lua.LState) int {
		switch which {
		case "info":
			l.Push(luar.New(l, LogInfo()))
		case "warn":
			l.Push(luar.New(l, LogWarning()))
		case "error":
			if l.GetTop() == 0 {
				l.Push(luar.New(l, LogError(nil)))
			} else {
				errI := luautil.LValueToInterface(l, l.CheckAny(-1))
				l.Push(luar.New(l, LogError(fmt.Errorf("%v", errI))))
			}
		default:
			l.RaiseError("unknown log level %q", which)
			return 0
		}
		return 1
	}
}

func PreloadModule(l *lua.LState) int {
	t := l.NewTable()
	l.SetFuncs(t, map[string]lua.LGFunction{
		"info_log":  LuaLogFunc("info"),
		"warn_log":  LuaLogFunc("warn"),
		"error_log": LuaLogFunc("error"),
		"request_id": func(l *lua.LState) int {
			ud := l.CheckUserData(1)
			req, ok := ud.Value.(interface{ Context() context.Context })
			if !ok {
				l.ArgError(1, "expected a request")
				return 0
			}
			l.Push(lua.LString(RequestID(req.Context())))
			return 1
		},
	})
	l.Push(t)
	return 1
}
