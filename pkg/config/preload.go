package config

import (
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

// PreloadModule makes the configuration readable from Lua plugins via require("config")
func PreloadModule(l *lua.LState) int {
	t := l.NewTable()
	l.SetFuncs(t, map[string]lua.LGFunction{
		"system_critical_config": func(l *lua.LState) int {
			l.Push(luar.New(l, GetSystemCriticalConfig()))
			return 1
		},
		"site_config": func(l *lua.LState) int {
			l.Push(luar.New(l, GetSiteConfig()))
			return 1
		},
		"file_setting": func(l *lua.LState) int {
			l.Push(lua.LString(GetFileSetting(l.CheckString(1))))
			return 1
		},
	})

	l.Push(t)
	return 1
}
