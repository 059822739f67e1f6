package fatemplates

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/listview"
	"github.com/forumkit/forumadmin/pkg/settingsform"
	"github.com/stretchr/testify/assert"
)

func TestInitTemplates(t *testing.T) {
	config.InitTestConfig()
	config.SetTestTemplateDir(t.TempDir())
	if !assert.NoError(t, InitTemplates()) {
		t.FailNow()
	}
	for _, name := range append([]string{ErrorPage, ManageLogin}, withPartials...) {
		tmpl, err := GetTemplate(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, tmpl, name)
	}
	_, err := GetTemplate("nonexistent.html")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestTemplateOverride(t *testing.T) {
	config.InitTestConfig()
	dir := t.TempDir()
	config.SetTestTemplateDir(dir)
	if !assert.NoError(t, os.WriteFile(filepath.Join(dir, ErrorPage), []byte(`<p id="custom">{{.errorText}}</p>`), 0644)) {
		t.FailNow()
	}
	if !assert.NoError(t, InitTemplates(ErrorPage)) {
		t.FailNow()
	}
	tmpl, err := GetTemplate(ErrorPage)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	var buf bytes.Buffer
	assert.NoError(t, tmpl.Execute(&buf, map[string]any{"errorText": "oops"}))
	assert.Equal(t, `<p id="custom">oops</p>`, buf.String())

	// reload the built-in template for the other tests
	assert.NoError(t, os.Remove(filepath.Join(dir, ErrorPage)))
	assert.NoError(t, InitTemplates(ErrorPage))
}

func TestArithmeticTmplFuncs(t *testing.T) {
	testCases := []struct {
		desc     string
		tmplStr  string
		expected string
		A        int
		B        int
	}{
		{desc: "addition", tmplStr: "{{add .A .B}}", expected: "-5", A: -2, B: -3},
		{desc: "subtraction", tmplStr: "{{subtract .A .B}}", expected: "1", A: -2, B: -3},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			buf := new(bytes.Buffer)
			tmpl, err := ParseTemplate(tC.desc, tC.tmplStr)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.NoError(t, tmpl.Execute(buf, tC))
			assert.Equal(t, tC.expected, buf.String())
		})
	}
}

func TestStringTmplFuncs(t *testing.T) {
	testCases := []struct {
		desc     string
		tmplStr  string
		data     any
		expected string
	}{
		{desc: "stripHTML", tmplStr: "{{stripHTML .}}", data: "<b>bold</b> text", expected: "bold text"},
		{desc: "truncate", tmplStr: "{{truncate . 4}}", data: "abcdefgh", expected: "abcd..."},
		{desc: "isChecked", tmplStr: `{{if isChecked .}}yes{{else}}no{{end}}`, data: "0", expected: "no"},
		{desc: "join", tmplStr: `{{join . ", "}}`, data: []string{"a", "b"}, expected: "a, b"},
		{desc: "formatTimestamp", tmplStr: "{{formatTimestamp .}}", data: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC), expected: "Mar 09, 2024, 14:05:00"},
		{desc: "zero timestamp", tmplStr: "{{formatTimestamp .}}", data: time.Time{}, expected: ""},
		{desc: "map", tmplStr: `{{$m := map "a" 1}}{{$m.a}}`, expected: "1"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			tmpl, err := ParseTemplate(tC.desc, tC.tmplStr)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			buf := new(bytes.Buffer)
			assert.NoError(t, tmpl.Execute(buf, tC.data))
			assert.Equal(t, tC.expected, buf.String())
		})
	}
}

func TestSettingsTemplate(t *testing.T) {
	config.InitTestConfig()
	config.SetTestTemplateDir(t.TempDir())
	tmpl, err := GetTemplate(ManageSettings)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	vars := []*settingsform.ConfigVar{
		{Type: settingsform.TypeTitle, Label: "General"},
		{Type: settingsform.TypeCheck, Name: "enableBBC", Label: "Enable BBC", Value: "1"},
		{Type: settingsform.TypeInt, Name: "cal_maxspan", Label: "Max span", Value: "7", Min: settingsform.Limit(0), Invalid: true, ErrorMessage: "bad"},
		{Type: settingsform.TypeSelect, Name: "pollMode", Label: "Polls", Value: "2", Options: []settingsform.Option{{Value: "1", Label: "On"}, {Value: "2", Label: "As topics"}}},
		{Type: settingsform.TypeBBC, Name: "disabledBBC", Label: "Tags", Value: "b", Options: []settingsform.Option{{Value: "b", Label: "b"}, {Value: "i", Label: "i"}}},
		{Type: settingsform.TypeCallback, Name: "questions", Label: "Questions"},
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"formAction": "/manage/bbc?sa=display",
		"token":      "tok",
		"vars":       vars,
		"callbacks":  map[string]any{"questions": "<b>callback</b>"},
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "tok", doc.Find("input[name=token]").AttrOr("value", ""))
	assert.Equal(t, 1, doc.Find("input[name=enableBBC][checked]").Length())
	assert.Equal(t, "0", doc.Find("input[name=cal_maxspan]").AttrOr("min", ""))
	assert.Equal(t, 1, doc.Find("#var-cal_maxspan.invalid").Length())
	assert.Equal(t, "2", doc.Find("select[name=pollMode] option[selected]").AttrOr("value", ""))
	assert.Equal(t, 0, doc.Find(`input[name=disabledBBC_enabledTags][value=b][checked]`).Length())
	assert.Equal(t, 1, doc.Find(`input[name=disabledBBC_enabledTags][value=i][checked]`).Length())
	assert.Equal(t, "General", strings.TrimSpace(doc.Find("tr.title th").Text()))
	assert.Contains(t, doc.Find("#var-questions").Text(), "<b>callback</b>", "callback HTML is escaped unless it is template.HTML")
}

func TestListTemplate(t *testing.T) {
	config.InitTestConfig()
	config.SetTestTemplateDir(t.TempDir())
	tmpl, err := GetTemplate(ManageList)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	list := &listview.List{
		ID:           "test",
		NoItemsLabel: "Nothing here",
		Columns:      []listview.Column{{ID: "a", Header: "A"}},
		Form: &listview.Form{
			Action:       "/manage/logs",
			CheckboxName: "delete[]",
			Buttons:      []listview.Button{{Name: "delete", Label: "Remove selected"}},
		},
	}
	built := &listview.Built{
		List:    list,
		Headers: []listview.Header{{Column: &list.Columns[0]}},
		Rows:    []listview.Row{{CheckboxValue: "7", Cells: []listview.Cell{{Value: "seven"}}}},
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{"list": built, "token": "tok"})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "7", doc.Find("input[name='delete[]']").AttrOr("value", ""))
	assert.Equal(t, "seven", doc.Find("#list-test td").Last().Text())
	assert.Equal(t, 1, doc.Find("input[name=delete]").Length())
	assert.Equal(t, 1, doc.Find("form input[name=token]").Length())
}
