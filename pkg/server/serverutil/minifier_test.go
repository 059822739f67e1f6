package serverutil

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/stretchr/testify/assert"
)

const (
	unminifiedHTML = `<!DOCTYPE html>
<html>
<body>
<a href="#">blah</a>

<a href="#">blah blah</a>
</body>
</html>`

	unminifiedJSON = `{
	"key": "value",
	"key2": "value2",
	"key3": [

	]
}`
)

type testCaseCanMinify struct {
	desc       string
	minifyHTML bool
	minifyJS   bool
}

func setMinifySettings(t *testing.T, minifyHTML, minifyJS bool) {
	t.Helper()
	siteCfg := config.GetSiteConfig()
	siteCfg.MinifyHTML = minifyHTML
	siteCfg.MinifyJS = minifyJS
	config.SetSiteConfig(siteCfg)
	InitMinifier()
}

func TestCanMinify(t *testing.T) {
	config.InitTestConfig()
	testCases := []testCaseCanMinify{
		{desc: "minify HTML and JS", minifyHTML: true, minifyJS: true},
		{desc: "minify HTML, don't minify JS", minifyHTML: true},
		{desc: "don't minify HTML, minify JS", minifyJS: true},
		{desc: "don't minify HTML or JS"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			setMinifySettings(t, tC.minifyHTML, tC.minifyJS)
			assert.Equal(t, tC.minifyHTML, canMinify("text/html"))
			assert.Equal(t, tC.minifyJS, canMinify("application/json"))
			assert.Equal(t, tC.minifyJS, canMinify("text/javascript"))
		})
	}
}

func TestMinifyWriter(t *testing.T) {
	config.InitTestConfig()
	buf := new(bytes.Buffer)

	setMinifySettings(t, false, true)
	_, err := MinifyWriter(buf, []byte(unminifiedJSON), "application/json")
	assert.NoError(t, err)
	assert.Equal(t, `{"key":"value","key2":"value2","key3":[]}`, buf.String())

	buf.Reset()
	setMinifySettings(t, false, false)
	_, err = MinifyWriter(buf, []byte(unminifiedJSON), "application/json")
	assert.NoError(t, err)
	assert.Equal(t, unminifiedJSON, buf.String())

	buf.Reset()
	setMinifySettings(t, true, false)
	_, err = MinifyWriter(buf, []byte(unminifiedHTML), "text/html")
	assert.NoError(t, err)
	assert.Less(t, buf.Len(), len(unminifiedHTML))
	assert.Contains(t, buf.String(), "blah blah</a>")
	assert.NotContains(t, buf.String(), "<body>")
}

func TestMinifyTemplate(t *testing.T) {
	config.InitTestConfig()
	tmpl := template.Must(template.New("name").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.title}}</title>
</head>
<body>
<a href="{{.url}}">{{.text}}</a>
</body>
</html>`))
	data := map[string]string{
		"url":   "https://example.com",
		"text":  "forum",
		"title": "Forum",
	}

	buf := new(bytes.Buffer)
	setMinifySettings(t, false, false)
	assert.NoError(t, MinifyTemplate(tmpl, data, buf, "text/html"))
	assert.Contains(t, buf.String(), "\n<body>\n")

	buf.Reset()
	setMinifySettings(t, true, false)
	assert.NoError(t, MinifyTemplate(tmpl, data, buf, "text/html"))
	assert.False(t, strings.Contains(buf.String(), "\n<body>\n"))
	assert.Contains(t, buf.String(), "<title>Forum</title>")
	assert.Contains(t, buf.String(), ">forum</a>")

	buf.Reset()
	badTmpl := template.Must(template.New("bad").Parse(`{{.missing.field}}`))
	assert.Error(t, MinifyTemplate(badTmpl, 5, buf, "text/html"))
}
