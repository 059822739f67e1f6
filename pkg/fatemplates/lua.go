package fatemplates

import (
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

// PreloadModule provides the fatemplates module to plugins
func PreloadModule(l *lua.LState) int {
	t := l.NewTable()

	l.SetFuncs(t, map[string]lua.LGFunction{
		"load_template": func(l *lua.LState) int {
			var tmplNames []string
			for i := 0; i < l.GetTop(); i++ {
				tmplNames = append(tmplNames, l.CheckString(i+1))
			}
			tmpl, err := LoadTemplate(tmplNames...)
			l.Push(luar.New(l, tmpl))
			l.Push(luar.New(l, err))
			return 2
		},
		"get_template": func(l *lua.LState) int {
			tmpl, err := GetTemplate(l.CheckString(1))
			l.Push(luar.New(l, tmpl))
			l.Push(luar.New(l, err))
			return 2
		},
		"parse_template": func(l *lua.LState) int {
			tmpl, err := ParseTemplate(l.CheckString(1), l.CheckString(2))
			l.Push(luar.New(l, tmpl))
			l.Push(luar.New(l, err))
			return 2
		},
	})

	l.Push(t)
	return 1
}
