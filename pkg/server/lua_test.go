package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"

	"github.com/forumkit/forumadmin/pkg/config"
)

var (
	staticFileHeadersTests = []staticFileHeadersTestCase{
		{
			desc:      "avatar format with extra headers",
			expectExt: ".avif",
			luaScript: `local server = require("server")
server.register_ext_headers(".avif", {
  ["Content-Type"] = "image/avif",
  ["Cache-Control"] = "max-age=86400",
  ["X-Content-Type-Options"] = "nosniff"
})`,
			expectedHeaders: StaticFileHeaders{
				ContentType:  "image/avif",
				CacheControl: "max-age=86400",
				Other: map[string]string{
					"X-Content-Type-Options": "nosniff",
				},
			},
		},
		{
			desc:      "extension without a dot",
			expectExt: ".woff2",
			luaScript: `local server = require("server")
server.register_ext_headers("WOFF2", {["Content-Type"] = "font/woff2"})`,
			expectedHeaders: StaticFileHeaders{ContentType: "font/woff2"},
		},
		{
			desc: "missing content-type",
			luaScript: `local server = require("server")
server.register_ext_headers(".pdf", {
  ["Cache-Control"] = "max-age=3600"
})`,
			expectError: true,
		},
		{
			desc: "missing extension",
			luaScript: `local server = require("server")
server.register_ext_headers("", {["Content-Type"] = "text/plain"})`,
			expectError: true,
		},
	}
)

type staticFileHeadersTestCase struct {
	desc            string
	luaScript       string
	expectExt       string
	expectedHeaders StaticFileHeaders
	expectError     bool
}

func TestPreloadModule(t *testing.T) {
	for _, tc := range staticFileHeadersTests {
		t.Run(tc.desc, func(t *testing.T) {
			l := lua.NewState()
			defer l.Close()
			l.PreloadModule("server", PreloadModule)
			err := l.DoString(tc.luaScript)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			t.Cleanup(func() {
				delete(knownFileHeaders, tc.expectExt)
			})
			headers, exists := knownFileHeaders[tc.expectExt]
			if !assert.True(t, exists) {
				t.FailNow()
			}
			assert.Equal(t, tc.expectedHeaders, headers)
		})
	}
}

func TestLuaServerPaths(t *testing.T) {
	config.InitTestConfig()
	systemCritical := config.GetSystemCriticalConfig()
	systemCritical.WebRoot = "/forum/"
	systemCritical.ListenAddress = "0.0.0.0"
	systemCritical.Port = 8081

	l := lua.NewState()
	defer l.Close()
	l.PreloadModule("server", PreloadModule)
	err := l.DoString(`local server = require("server")
avatars = server.web_path("avatars", "default.png")
root = server.web_path()
addr = server.listen_address()
local png = server.ext_headers("PNG")
png_type = png["Content-Type"]
missing = server.ext_headers(".unknown")`)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "/forum/avatars/default.png", l.GetGlobal("avatars").String())
	assert.Equal(t, "/forum", l.GetGlobal("root").String())
	assert.Equal(t, "0.0.0.0:8081", l.GetGlobal("addr").String())
	assert.Equal(t, "image/png", l.GetGlobal("png_type").String())
	assert.Equal(t, lua.LNil, l.GetGlobal("missing"))
}
