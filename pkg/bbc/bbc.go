// Package bbc renders BBC formatted messages using the enabled tags
package bbc

import (
	"html"
	"html/template"
	"regexp"
	"slices"
	"strings"

	"github.com/frustra/bbcode"

	"github.com/forumkit/forumadmin/pkg/fasql"
)

var (
	// KnownTags are the tags that can be enabled or disabled, in the order they are listed on the BBC settings page
	KnownTags = []string{"b", "i", "u", "s", "sup", "sub", "url", "img", "quote", "code", "color", "size", "center", "spoiler"}

	urlRE = regexp.MustCompile(`https?://(\S+)`)
)

// IsKnownTag returns true if tag is one of KnownTags
func IsKnownTag(tag string) bool {
	return slices.Contains(KnownTags, strings.ToLower(tag))
}

// Formatter compiles BBC with a set of disabled tags. Disabled tags are left in the output as text
type Formatter struct {
	// disabled tags are removed from the compiler's tag map
	compiler  bbcode.Compiler
	linkFixer *strings.Replacer
	autoLink  bool
}

// NewFormatter creates a formatter with the given tags disabled. If autoLink is true, URLs that aren't in a
// url tag are turned into links
func NewFormatter(disabled []string, autoLink bool) *Formatter {
	f := &Formatter{
		compiler: bbcode.NewCompiler(true, true),
		linkFixer: strings.NewReplacer(
			"[url=[url]", "[url=",
			"[/url][/url]", "[/url]",
			"[url][url]", "[url]",
		),
		autoLink: autoLink,
	}
	f.compiler.SetTag("spoiler", func(_ *bbcode.BBCodeNode) (*bbcode.HTMLTag, bool) {
		return &bbcode.HTMLTag{Name: "span", Attrs: map[string]string{"class": "spoiler"}}, true
	})
	f.compiler.SetTag("sup", func(_ *bbcode.BBCodeNode) (*bbcode.HTMLTag, bool) {
		return &bbcode.HTMLTag{Name: "sup", Attrs: map[string]string{}}, true
	})
	f.compiler.SetTag("sub", func(_ *bbcode.BBCodeNode) (*bbcode.HTMLTag, bool) {
		return &bbcode.HTMLTag{Name: "sub", Attrs: map[string]string{}}, true
	})
	for _, tag := range disabled {
		f.compiler.SetTag(strings.ToLower(strings.TrimSpace(tag)), nil)
	}
	if slices.Contains(disabled, "url") {
		f.autoLink = false
	}
	return f
}

func wrapLinksInURL(urlStr string) string {
	return "[url]" + urlStr + "[/url]"
}

// Format compiles the message
func (f *Formatter) Format(message string) template.HTML {
	if f.autoLink {
		message = urlRE.ReplaceAllStringFunc(message, wrapLinksInURL)
		message = f.linkFixer.Replace(message)
	}
	return template.HTML(f.compiler.Compile(message)) // skipcq: GSC-G203
}

// PlainText escapes the message and converts newlines to line breaks, for when BBC is disabled
func PlainText(message string) template.HTML {
	escaped := html.EscapeString(message)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br />")) // skipcq: GSC-G203
}

// DisabledTags returns the tags in the disabledBBC setting
func DisabledTags() []string {
	var tags []string
	for _, tag := range strings.Split(fasql.GetSetting("disabledBBC"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// FormatMessage formats the message using the current BBC settings
func FormatMessage(message string) template.HTML {
	if !fasql.GetSettingBool("enableBBC") {
		return PlainText(message)
	}
	return NewFormatter(DisabledTags(), fasql.GetSettingBool("autoLinkUrls")).Format(message)
}

// ValidToolbar returns the entries of a comma separated editor toolbar that aren't known tags or | separators
func ValidToolbar(toolbar string) (unknown []string) {
	for _, entry := range strings.Split(toolbar, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || entry == "|" || IsKnownTag(entry) {
			continue
		}
		unknown = append(unknown, entry)
	}
	return unknown
}
