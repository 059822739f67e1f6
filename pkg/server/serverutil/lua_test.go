package serverutil

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

func TestLuaMinifyTemplate(t *testing.T) {
	config.InitTestConfig()
	setMinifySettings(t, false, false)

	var buf bytes.Buffer
	l := lua.NewState()
	defer l.Close()
	l.PreloadModule("serverutil", PreloadModule)
	l.SetGlobal("buf", luar.New(l, &buf))
	l.SetGlobal("tmpl", luar.New(l, template.Must(template.New("t").Parse(`<p>{{.text}}</p>`))))
	err := l.DoString(`local serverutil = require("serverutil")
return serverutil.minify_template(tmpl, {text = "from lua"}, buf, "text/html")`)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, lua.LTNil, l.Get(-1).Type())
	assert.Equal(t, "<p>from lua</p>", buf.String())
}

func TestLuaNewFormToken(t *testing.T) {
	config.InitTestConfig()
	l := lua.NewState()
	defer l.Close()
	l.PreloadModule("serverutil", PreloadModule)
	err := l.DoString(`local serverutil = require("serverutil")
token, err = serverutil.new_form_token("session1", "plugin_page")
assert(err == nil)`)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	token := l.GetGlobal("token").String()
	assert.NoError(t, CheckFormToken(token, "session1", "plugin_page"))
}
