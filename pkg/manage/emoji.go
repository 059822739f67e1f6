package manage

import (
	"net/http"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/emoji"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

func emojiVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	sets, err := emoji.ListSets(config.GetSystemCriticalConfig().EmojiDir)
	if err != nil {
		// sets with broken manifests are left out of the list
		fautil.LogWarning().Err(err).Msg("Unable to load some emoji sets")
	}
	options := make([]settingsform.Option, len(sets))
	for s := range sets {
		options[s] = settingsform.Option{Value: sets[s].ID, Label: sets[s].String()}
	}
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "emoji_enabled", Label: "Enable emoji"},
		{Type: settingsform.TypeSelect, Name: "emoji_selection", Label: "Emoji set", Options: options},
		{Type: settingsform.TypeInt, Name: "emoji_max_per_post", Label: "Maximum emoji per post", Subtext: "0 for no limit",
			Min: settingsform.Limit(0), Max: settingsform.Limit(100)},
		{Type: settingsform.TypeCheck, Name: "emoji_show_in_editor", Label: "Show the emoji picker in the editor"},
	}, nil
}

func validateEmoji(form *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	set, ok := values.Settings["emoji_selection"]
	if !ok || !emoji.SetExists(config.GetSystemCriticalConfig().EmojiDir, set) {
		form.Invalidate("emoji_selection", emoji.ErrSetNotFound.Error())
	}
	return nil
}

func registerEmojiArea() {
	page := &settingsPage{
		Area:     "emoji",
		SA:       "settings",
		Vars:     emojiVars,
		Validate: validateEmoji,
	}
	registerArea(&area{
		ID:        "emoji",
		Title:     "Emoji",
		DefaultSA: "settings",
		SubActions: []subAction{
			{ID: "settings", Label: "Emoji settings", Permission: "admin_forum", Handler: page.handler},
		},
	})
}
