package manage

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/bbc"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

const samplePreviewText = "[b]Bold[/b], [i]italic[/i], [u]underlined[/u] and [s]struck[/s] text.\n" +
	"[quote]A quote with a [url=https://example.com]link[/url][/quote]\n" +
	"[code]x := 1[/code] [spoiler]hidden[/spoiler] https://example.com"

func bbcVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	tags := make([]settingsform.Option, len(bbc.KnownTags))
	for t, tag := range bbc.KnownTags {
		tags[t] = settingsform.Option{Value: tag, Label: "[" + tag + "]"}
	}
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "enableBBC", Label: "Enable BBC"},
		{Type: settingsform.TypeCheck, Name: "enablePostHTML", Label: "Allow basic HTML in posts"},
		{Type: settingsform.TypeCheck, Name: "autoLinkUrls", Label: "Automatically link posted URLs"},
		{Type: settingsform.TypeBBC, Name: "disabledBBC", Label: "Enabled BBC tags", Options: tags},
	}, nil
}

func bbcPreview(request *http.Request, text string) (template.HTML, error) {
	token, err := formToken(request, "bbc")
	if err != nil {
		return "", err
	}
	out, err := renderTemplate(fatemplates.ManageBBCPreview, map[string]any{
		"token":       token,
		"previewText": text,
		"previewHTML": bbc.FormatMessage(text),
	})
	return template.HTML(out), err // skipcq: GSC-G203
}

func newBBCPage(previewText string) *settingsPage {
	return &settingsPage{
		Area:        "bbc",
		SA:          "display",
		Description: "Unchecked tags are shown as plain text in messages.",
		Vars:        bbcVars,
		Extra: func(request *http.Request, _ *fasql.Staff) (template.HTML, error) {
			return bbcPreview(request, previewText)
		},
	}
}

func bbcCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	previewText := samplePreviewText
	if request.Method == http.MethodPost && request.PostFormValue("preview") != "" {
		if err := checkFormToken(writer, request, "bbc", errEv); err != nil {
			return nil, err
		}
		previewText = request.PostFormValue("preview_text")
		if wantsJSON {
			return map[string]any{"html": bbc.FormatMessage(previewText)}, nil
		}
	}
	return newBBCPage(previewText).handler(writer, request, staff, wantsJSON, infoEv, errEv)
}

func registerBBCArea() {
	registerArea(&area{
		ID:        "bbc",
		Title:     "BBC",
		DefaultSA: "display",
		SubActions: []subAction{
			{ID: "display", Label: "BBC settings", Permission: "admin_forum", Handler: bbcCallback},
		},
	})
}
