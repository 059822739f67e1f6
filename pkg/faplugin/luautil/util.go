package luautil

import (
	lua "github.com/yuin/gopher-lua"
)

// LValueToInterface converts a Lua value to the Go value a Go function would expect. Tables with an array
// part become []any, other tables become map[string]any
func LValueToInterface(l *lua.LState, v lua.LValue) any {
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		return lua.LVAsBool(v)
	case lua.LTNumber:
		return float64(lua.LVAsNumber(v))
	case lua.LTString:
		return lua.LVAsString(v)
	case lua.LTUserData:
		return v.(*lua.LUserData).Value
	case lua.LTTable:
		t := v.(*lua.LTable)
		if n := t.Len(); n > 0 {
			arr := make([]any, n)
			for i := 1; i <= n; i++ {
				arr[i-1] = LValueToInterface(l, t.RawGetInt(i))
			}
			return arr
		}
		m := map[string]any{}
		t.ForEach(func(k, v lua.LValue) {
			m[k.String()] = LValueToInterface(l, v)
		})
		return m
	default:
		l.ArgError(2, "Incompatible Lua type "+v.Type().String())
	}
	return nil
}

// TableToStringMap converts the string keys and values of a Lua table to a map
func TableToStringMap(t *lua.LTable) map[string]string {
	m := map[string]string{}
	t.ForEach(func(k, v lua.LValue) {
		if k.Type() == lua.LTString {
			m[k.String()] = lua.LVAsString(v)
		}
	})
	return m
}
