package events

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"github.com/forumkit/forumadmin/pkg/faplugin/luautil"
)

// luaHandler wraps a Lua function as an EventHandler. A non-empty string returned by the function
// is treated as an error
func luaHandler(l *lua.LState, fn *lua.LFunction) EventHandler {
	return func(trigger string, data ...any) error {
		args := []lua.LValue{luar.New(l, trigger)}
		for _, d := range data {
			args = append(args, luar.New(l, d))
		}
		if err := l.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args...); err != nil {
			return err
		}
		ret := l.Get(-1)
		l.Pop(1)
		if errStr := lua.LVAsString(ret); errStr != "" {
			return errors.New(errStr)
		}
		return nil
	}
}

// PreloadModule makes the events module available to plugins with require("events")
func PreloadModule(l *lua.LState) int {
	t := l.NewTable()
	l.SetFuncs(t, map[string]lua.LGFunction{
		"register_event": func(l *lua.LState) int {
			table := l.CheckTable(1)
			var triggers []string
			table.ForEach(func(_, val lua.LValue) {
				triggers = append(triggers, val.String())
			})
			RegisterEvent(triggers, luaHandler(l, l.CheckFunction(2)))
			return 0
		},
		"trigger_event": func(l *lua.LState) int {
			trigger := l.CheckString(1)
			var data []any
			for i := 2; i <= l.GetTop(); i++ {
				data = append(data, luautil.LValueToInterface(l, l.CheckAny(i)))
			}
			handled, err, _ := TriggerEvent(trigger, data...)
			l.Push(lua.LBool(handled))
			if err != nil {
				l.Push(lua.LString(err.Error()))
			} else {
				l.Push(lua.LNil)
			}
			return 2
		},
	})
	l.Push(t)
	return 1
}
