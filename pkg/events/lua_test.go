package events

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

func newLuaState(t *testing.T) *lua.LState {
	t.Helper()
	l := lua.NewState()
	t.Cleanup(l.Close)
	l.PreloadModule("events", PreloadModule)
	return l
}

func TestRegisterEventFromLua(t *testing.T) {
	l := newLuaState(t)
	buf := new(bytes.Buffer)
	l.SetGlobal("buffer", luar.New(l, buf))
	assert.NoError(t, l.DoString(`local events = require("events")
events.register_event({"lua_event_test", "lua_event_test2"}, function(trigger, data)
	buffer:WriteString(trigger .. " " .. tostring(data) .. "\n")
end)`))

	handled, err, recovered := TriggerEvent("lua_event_test", "data")
	assert.True(t, handled)
	assert.NoError(t, err)
	assert.False(t, recovered)
	handled, err, _ = TriggerEvent("lua_event_test2", 2)
	assert.True(t, handled)
	assert.NoError(t, err)
	assert.Equal(t, "lua_event_test data\nlua_event_test2 2\n", buf.String())
}

func TestLuaEventReturnsError(t *testing.T) {
	l := newLuaState(t)
	assert.NoError(t, l.DoString(`local events = require("events")
events.register_event({"save-settings:luatest"}, function(trigger, values)
	return "not allowed"
end)`))
	handled, err, recovered := TriggerEvent("save-settings:luatest", map[string]string{})
	assert.True(t, handled)
	assert.EqualError(t, err, "not allowed")
	assert.False(t, recovered)
}

func TestLuaEventModifiesSettings(t *testing.T) {
	l := newLuaState(t)
	assert.NoError(t, l.DoString(`local events = require("events")
events.register_event({"save-settings:luamodify"}, function(trigger, values)
	values["enableBBC"] = "0"
end)`))
	values := map[string]string{"enableBBC": "1"}
	_, err, _ := TriggerEvent("save-settings:luamodify", values)
	assert.NoError(t, err)
	assert.Equal(t, "0", values["enableBBC"])
}

func TestTriggerEventFromLua(t *testing.T) {
	l := newLuaState(t)
	buf := new(bytes.Buffer)
	l.SetGlobal("buffer", luar.New(l, buf))
	RegisterEvent([]string{"lua_trigger1", "lua_trigger2"}, func(trigger string, data ...any) error {
		if len(data) < 2 {
			return fmt.Errorf("expected 2 arguments, got %d", len(data))
		}
		data[0].(*bytes.Buffer).WriteString(fmt.Sprintln(trigger, data[1:]))
		return nil
	})
	assert.NoError(t, l.DoString(`local events = require("events")
local handled, err = events.trigger_event("lua_trigger1", buffer, 1)
assert(handled and err == nil)
events.trigger_event("lua_trigger2", buffer, "a")
handled, err = events.trigger_event("lua_trigger2", buffer)
assert(err ~= nil)`))
	assert.Equal(t, "lua_trigger1 [1]\nlua_trigger2 [a]\n", buf.String())
}
