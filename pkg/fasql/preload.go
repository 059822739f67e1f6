package fasql

import (
	"database/sql"

	"github.com/forumkit/forumadmin/pkg/faplugin/luautil"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

type lvalueScanner struct {
	val   lua.LValue
	state *lua.LState
}

func (lvs *lvalueScanner) Scan(src any) error {
	if ba, ok := src.([]byte); ok {
		src = string(ba)
	}
	lvs.val = luar.New(lvs.state, src)
	return nil
}

func argsFromTable(l *lua.LState, n int) []any {
	argsL := l.Get(n)
	table, ok := argsL.(*lua.LTable)
	if !ok {
		return nil
	}
	var args []any
	table.ForEach(func(_, val lua.LValue) {
		args = append(args, luautil.LValueToInterface(l, val))
	})
	return args
}

// PreloadModule makes the database available to Lua plugins with require("fasql")
func PreloadModule(l *lua.LState) int {
	t := l.NewTable()
	l.SetFuncs(t, map[string]lua.LGFunction{
		"query_rows": func(l *lua.LState) int {
			rows, err := QuerySQL(l.CheckString(1), argsFromTable(l, 2)...)
			l.Push(luar.New(l, rows))
			l.Push(luar.New(l, err))
			return 2
		},
		"execute_sql": func(l *lua.LState) int {
			result, err := ExecSQL(l.CheckString(1), argsFromTable(l, 2)...)
			l.Push(luar.New(l, result))
			l.Push(luar.New(l, err))
			return 2
		},
		"scan_rows": func(l *lua.LState) int {
			rows, ok := l.CheckUserData(1).Value.(*sql.Rows)
			if !ok {
				l.ArgError(1, "expected rows returned by query_rows")
				return 0
			}
			table := l.CheckTable(2)
			colNames, err := rows.Columns()
			if err != nil {
				l.Push(luar.New(l, err))
				return 1
			}
			scanners := make([]any, len(colNames))
			for i := range colNames {
				scanners[i] = &lvalueScanner{state: l}
			}
			if err = rows.Scan(scanners...); err != nil {
				l.Push(luar.New(l, err))
				return 1
			}
			for i, name := range colNames {
				table.RawSetString(name, scanners[i].(*lvalueScanner).val)
			}
			l.Push(lua.LNil)
			return 1
		},
		"get_setting": func(l *lua.LState) int {
			l.Push(lua.LString(GetSetting(l.CheckString(1))))
			return 1
		},
	})

	l.Push(t)
	return 1
}
