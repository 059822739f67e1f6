package faplugin

import (
	"errors"
	"path/filepath"
	"sync"

	luaFilePath "github.com/vadv/gopher-lua-libs/filepath"
	luaStrings "github.com/vadv/gopher-lua-libs/strings"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/events"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/manage"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/server/serverutil"
)

var (
	ErrPluginNotLua = errors.New("plugins must be Lua scripts with a .lua extension")

	lState     *lua.LState
	lStateLock sync.Mutex
)

func initLua() {
	if lState == nil {
		lState = lua.NewState()
		registerLuaFunctions(lState)
	}
}

// ClosePlugins closes the Lua state shared by all plugins
func ClosePlugins() {
	lStateLock.Lock()
	defer lStateLock.Unlock()
	if lState != nil {
		lState.Close()
		lState = nil
	}
}

func registerLuaFunctions(l *lua.LState) {
	luaFilePath.Preload(l)
	luaStrings.Preload(l)
	l.PreloadModule("config", config.PreloadModule)
	l.PreloadModule("events", events.PreloadModule)
	l.PreloadModule("fasql", fasql.PreloadModule)
	l.PreloadModule("fatemplates", fatemplates.PreloadModule)
	l.PreloadModule("fautil", fautil.PreloadModule)
	l.PreloadModule("manage", manage.PreloadModule)
	l.PreloadModule("server", server.PreloadModule)
	l.PreloadModule("serverutil", serverutil.PreloadModule)

	l.Register("info_log", fautil.LuaLogFunc("info"))
	l.Register("warn_log", fautil.LuaLogFunc("warn"))
	l.Register("error_log", fautil.LuaLogFunc("error"))
	l.Register("system_critical_config", func(l *lua.LState) int {
		l.Push(luar.New(l, config.GetSystemCriticalConfig()))
		return 1
	})
	l.Register("site_config", func(l *lua.LState) int {
		l.Push(luar.New(l, config.GetSiteConfig()))
		return 1
	})
	l.Register("plugin_setting", func(l *lua.LState) int {
		val, ok := config.GetSystemCriticalConfig().PluginSettings[l.CheckString(1)]
		if !ok {
			l.Push(lua.LNil)
		} else {
			l.Push(luar.New(l, val))
		}
		return 1
	})
}

// LoadPlugins runs each of the given Lua scripts in a shared Lua state. Scripts register event handlers
// and manage pages when they are run
func LoadPlugins(paths []string) error {
	lStateLock.Lock()
	defer lStateLock.Unlock()
	for _, pluginPath := range paths {
		if filepath.Ext(pluginPath) != ".lua" {
			return ErrPluginNotLua
		}
		initLua()
		if err := lState.DoFile(pluginPath); err != nil {
			return err
		}
		fautil.LogInfo().Str("plugin", pluginPath).Msg("Loaded plugin")
	}
	return nil
}
