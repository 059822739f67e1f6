package serverutil

import (
	"html/template"
	"io"

	"github.com/forumkit/forumadmin/pkg/faplugin/luautil"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

// PreloadModule provides the serverutil module to plugins
func PreloadModule(l *lua.LState) int {
	t := l.NewTable()

	l.SetFuncs(t, map[string]lua.LGFunction{
		"minify_template": func(l *lua.LState) int {
			tmplUD := l.CheckUserData(1)
			tmpl, ok := tmplUD.Value.(*template.Template)
			if !ok {
				l.ArgError(1, "template expected")
				return 0
			}
			data := map[string]any{}
			l.CheckTable(2).ForEach(func(key, val lua.LValue) {
				data[key.String()] = luautil.LValueToInterface(l, val)
			})
			writer, ok := l.CheckUserData(3).Value.(io.Writer)
			if !ok {
				l.ArgError(3, "writer expected")
				return 0
			}
			err := MinifyTemplate(tmpl, data, writer, l.CheckString(4))
			l.Push(luar.New(l, err))
			return 1
		},
		"new_form_token": func(l *lua.LState) int {
			token, err := NewFormToken(l.CheckString(1), l.CheckString(2))
			l.Push(lua.LString(token))
			l.Push(luar.New(l, err))
			return 2
		},
	})
	l.Push(t)
	return 1
}
