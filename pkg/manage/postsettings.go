package manage

import (
	"net/http"
	"strconv"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

func postVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "removeNestedQuotes", Label: "Remove nested quotes when quoting"},
		{Type: settingsform.TypeCheck, Name: "enableVideoEmbeding", Label: "Embed video links"},
		{Type: settingsform.TypeCheck, Name: "enableCodePrettify", Label: "Highlight code blocks"},
		{Type: settingsform.TypeTitle, Label: "Limits"},
		{Type: settingsform.TypeInt, Name: "max_messageLength", Label: "Maximum message length",
			Subtext: "0 for no limit", Postinput: "characters", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "spamWaitTime", Label: "Time between posts from the same IP",
			Postinput: "seconds", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "edit_wait_time", Label: "Grace period for edits",
			Postinput: "seconds", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "edit_disable_time", Label: "Disable editing after",
			Subtext: "0 to always allow editing", Postinput: "minutes", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeTitle, Label: "Display"},
		{Type: settingsform.TypeInt, Name: "preview_characters", Label: "Length of message previews",
			Postinput: "characters", Min: settingsform.Limit(0), Max: settingsform.Limit(512)},
		{Type: settingsform.TypeSelect, Name: "message_index_preview_first", Label: "Preview in the topic list", Options: []settingsform.Option{
			{Value: "0", Label: "None"},
			{Value: "1", Label: "The first message"},
			{Value: "2", Label: "The last message"},
		}},
		{Type: settingsform.TypeCheck, Name: "show_modify", Label: "Show the last modification date"},
		{Type: settingsform.TypeCheck, Name: "show_user_images", Label: "Show avatars in topics"},
		{Type: settingsform.TypeCheck, Name: "hide_post_group", Label: "Hide post groups of members in a group"},
	}, nil
}

// validatePosts lowers max_messageLength to what the messages table can store
func validatePosts(_ *settingsform.Form, values *settingsform.Values, request *http.Request) []string {
	maxLength, err := fasql.MessageBodyMaxLength(fasql.ContextOptions(request.Context()))
	if err != nil {
		fautil.LogError(err).Caller().Msg("Unable to get the messages body length")
		return nil
	}
	if maxLength > 0 && int64(values.Int("max_messageLength")) > maxLength {
		values.Settings["max_messageLength"] = strconv.FormatInt(maxLength, 10)
		return []string{"max_messageLength"}
	}
	return nil
}

func topicVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "enableParticipation", Label: "Mark topics the member posted in"},
		{Type: settingsform.TypeCheck, Name: "enableFollowup", Label: "Allow follow-up topics"},
		{Type: settingsform.TypeSelect, Name: "pollMode", Label: "Polls", Options: []settingsform.Option{
			{Value: "0", Label: "Disabled"},
			{Value: "1", Label: "Enabled"},
			{Value: "2", Label: "Shown as topics"},
		}},
		{Type: settingsform.TypeInt, Name: "oldTopicDays", Label: "Warn when replying to topics older than",
			Subtext: "0 to disable", Postinput: "days", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeTitle, Label: "Pagination"},
		{Type: settingsform.TypeInt, Name: "defaultMaxTopics", Label: "Topics per page",
			Min: settingsform.Limit(1), Max: settingsform.Limit(999)},
		{Type: settingsform.TypeInt, Name: "defaultMaxMessages", Label: "Messages per page",
			Min: settingsform.Limit(1), Max: settingsform.Limit(999)},
		{Type: settingsform.TypeCheck, Name: "enableAllMessages", Label: "Allow showing all messages of a topic"},
		{Type: settingsform.TypeCheck, Name: "disableCustomPerPage", Label: "Don't let members change the page sizes"},
		{Type: settingsform.TypeCheck, Name: "enablePreviousNext", Label: "Show previous and next topic links"},
		{Type: settingsform.TypeTitle, Label: "Hot topics"},
		{Type: settingsform.TypeInt, Name: "hotTopicPosts", Label: "Messages for a hot topic", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "hotTopicVeryPosts", Label: "Messages for a very hot topic", Min: settingsform.Limit(0)},
	}, nil
}

func validateTopics(form *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	if values.Int("hotTopicPosts") >= values.Int("hotTopicVeryPosts") {
		form.Invalidate("hotTopicVeryPosts", "A very hot topic needs more messages than a hot topic")
	}
	return nil
}

func registerPostSettingsArea() {
	posts := &settingsPage{Area: "postsettings", SA: "posts", Vars: postVars, Validate: validatePosts}
	topics := &settingsPage{Area: "postsettings", SA: "topics", Vars: topicVars, Validate: validateTopics}
	registerArea(&area{
		ID:        "postsettings",
		Title:     "Posts and topics",
		DefaultSA: "posts",
		SubActions: []subAction{
			{ID: "posts", Label: "Posts", Permission: "admin_forum", Handler: posts.handler},
			{ID: "topics", Label: "Topics", Permission: "admin_forum", Handler: topics.handler},
		},
	})
}
