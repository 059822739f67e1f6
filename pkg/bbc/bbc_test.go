package bbc

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	bbcodeMsgPreRender = `[b]Bold[/b]
[i]Italics[/i]
[u]Underline[/u]
[url=https://example.com]URL[/url]
[code]Code[/code]`
	bbcodeMsgExpected = `<b>Bold</b><br>` +
		`<i>Italics</i><br>` +
		`<u>Underline</u><br>` +
		`<a href="https://example.com">URL</a><br>` +
		`<pre>Code</pre>`

	doubleTagPreRender = `[url=https://example.com]Forum[/url] [url]https://example.com[/url]`
	doubleTagExpected  = `<a href="https://example.com">Forum</a> <a href="https://example.com">https://example.com</a>`
)

func TestFormat(t *testing.T) {
	f := NewFormatter(nil, false)
	assert.EqualValues(t, bbcodeMsgExpected, f.Format(bbcodeMsgPreRender))
}

func TestNoDoubleTags(t *testing.T) {
	f := NewFormatter(nil, true)
	assert.EqualValues(t, doubleTagExpected, f.Format(doubleTagPreRender))
}

func TestDisabledTags(t *testing.T) {
	f := NewFormatter([]string{"b", "code"}, false)
	rendered := string(f.Format("[b]Bold[/b] [i]Italics[/i]"))
	assert.Contains(t, rendered, "[b]Bold[/b]")
	assert.Contains(t, rendered, "<i>Italics</i>")
}

func TestCustomTags(t *testing.T) {
	f := NewFormatter(nil, false)
	assert.EqualValues(t, `<span class="spoiler">secret</span>`, f.Format("[spoiler]secret[/spoiler]"))
	assert.EqualValues(t, `x<sup>2</sup>`, f.Format("x[sup]2[/sup]"))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, template.HTML("&lt;b&gt;hi&lt;/b&gt;<br />[b]there[/b]"), PlainText("<b>hi</b>\r\n[b]there[/b]"))
}

func TestValidToolbar(t *testing.T) {
	assert.Empty(t, ValidToolbar("b,i,|,url,img, quote"))
	assert.Equal(t, []string{"marquee", "blink"}, ValidToolbar("b,marquee,|,blink,,"))
	assert.True(t, IsKnownTag("URL"))
	assert.False(t, IsKnownTag("table"))
}
