package manage

import (
	"net/http"
	"strings"

	"github.com/forumkit/forumadmin/pkg/bbc"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

func editorVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "enableSpellChecking", Label: "Enable spell checking"},
		{Type: settingsform.TypeCheck, Name: "disable_wysiwyg", Label: "Disable the WYSIWYG editor"},
		{Type: settingsform.TypeCheck, Name: "enableUndoRedo", Label: "Enable undo and redo"},
		{Type: settingsform.TypeCheck, Name: "enableSplitTag", Label: "Allow splitting tags"},
		{Type: settingsform.TypeText, Name: "editor_toolbar", Label: "Editor toolbar",
			Subtext: "Comma separated BBC tags, with | between groups", Mask: "nohtml", Size: 60},
		{Type: settingsform.TypeInt, Name: "editorPreviewLength", Label: "Preview length", Postinput: "characters",
			Min: settingsform.Limit(0), Max: settingsform.Limit(2000)},
		{Type: settingsform.TypeCheck, Name: "mentions_enabled", Label: "Enable mentions"},
	}, nil
}

func validateEditor(form *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	if unknown := bbc.ValidToolbar(values.Settings["editor_toolbar"]); len(unknown) > 0 {
		form.Invalidate("editor_toolbar", "Unknown tags: "+strings.Join(unknown, ", "))
	}
	return nil
}

func registerEditorArea() {
	page := &settingsPage{
		Area:     "editor",
		SA:       "display",
		Vars:     editorVars,
		Validate: validateEditor,
	}
	registerArea(&area{
		ID:        "editor",
		Title:     "Editor",
		DefaultSA: "display",
		SubActions: []subAction{
			{ID: "display", Label: "Editor settings", Permission: "admin_forum", Handler: page.handler},
		},
	})
}
