package server

import (
	"errors"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/forumkit/forumadmin/pkg/config"
)

var ErrMissingContentType = errors.New("missing Content-Type header")

// RegisterExtHeaders sets the headers sent with static files (avatars, emoji, theme files) that have the
// extension. The leading dot is optional
func RegisterExtHeaders(ext string, headers StaticFileHeaders) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return errors.New("missing file extension")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if headers.ContentType == "" {
		return ErrMissingContentType
	}
	knownFileHeaders[ext] = headers
	return nil
}

func headersFromTable(table *lua.LTable) StaticFileHeaders {
	var headers StaticFileHeaders
	table.ForEach(func(kv, vv lua.LValue) {
		v := vv.String()
		switch k := kv.String(); k {
		case "Content-Type":
			headers.ContentType = v
		case "Cache-Control":
			headers.CacheControl = v
		default:
			if headers.Other == nil {
				headers.Other = make(map[string]string)
			}
			headers.Other[k] = v
		}
	})
	return headers
}

// PreloadModule is the Lua "server" module, for plugins that need the forum's web paths or serve files
// with their own types
func PreloadModule(l *lua.LState) int {
	t := l.NewTable()
	l.SetFuncs(t, map[string]lua.LGFunction{
		"register_ext_headers": func(l *lua.LState) int {
			ext := l.CheckString(1)
			if err := RegisterExtHeaders(ext, headersFromTable(l.CheckTable(2))); err != nil {
				l.RaiseError("unable to register headers for %q: %s", ext, err.Error())
			}
			return 0
		},
		"ext_headers": func(l *lua.LState) int {
			ext := strings.ToLower(l.CheckString(1))
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			headers, ok := knownFileHeaders[ext]
			if !ok {
				l.Push(lua.LNil)
				return 1
			}
			table := l.NewTable()
			table.RawSetString("Content-Type", lua.LString(headers.ContentType))
			table.RawSetString("Cache-Control", lua.LString(headers.CacheControl))
			for k, v := range headers.Other {
				table.RawSetString(k, lua.LString(v))
			}
			l.Push(table)
			return 1
		},
		"web_path": func(l *lua.LState) int {
			parts := make([]string, 0, l.GetTop())
			for i := 1; i <= l.GetTop(); i++ {
				parts = append(parts, l.CheckString(i))
			}
			l.Push(lua.LString(config.WebPath(parts...)))
			return 1
		},
		"listen_address": func(l *lua.LState) int {
			l.Push(lua.LString(ListenAddress()))
			return 1
		},
	})
	l.Push(t)
	return 1
}
