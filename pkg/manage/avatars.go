package manage

import (
	"bytes"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/avatars"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

const maxTestAvatarSize = 4 << 20

var testResizeTmpl = template.Must(template.New("testresize").Parse(`<form method="POST" action="{{.action}}" enctype="multipart/form-data" id="avatar-test-resize">
	<input type="hidden" name="token" value="{{.token}}" />
	<h3>Test the upload limits</h3>
	{{- with .result}}<p class="notice" id="resize-result">The image would be saved as {{.Width}}x{{.Height}}{{if .Resized}} (resized){{end}}</p>{{end}}
	<input type="file" name="avatar" accept="image/*" /> <input type="submit" name="test_resize" value="Test" />
</form>`))

func avatarVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeTitle, Label: "Server-stored avatars"},
		{Type: settingsform.TypeCheck, Name: "avatar_stored_enabled", Label: "Allow members to select server-stored avatars"},
		{Type: settingsform.TypeText, Name: "avatar_directory", Label: "Server-stored avatars directory", Size: 50},
		{Type: settingsform.TypeText, Name: "avatar_url", Label: "Server-stored avatars URL", Size: 50},

		{Type: settingsform.TypeTitle, Label: "External avatars"},
		{Type: settingsform.TypeCheck, Name: "avatar_external_enabled", Label: "Allow members to use external avatars"},
		{Type: settingsform.TypeInt, Name: "avatar_max_width_external", Label: "Maximum width of external avatars", Postinput: "px", Min: settingsform.Limit(0), Size: 4},
		{Type: settingsform.TypeInt, Name: "avatar_max_height_external", Label: "Maximum height of external avatars", Postinput: "px", Min: settingsform.Limit(0), Size: 4},
		{Type: settingsform.TypeSelect, Name: "avatar_action_too_large", Label: "If the avatar is too large", Options: []settingsform.Option{
			{Value: "option_refuse", Label: "Refuse it"},
			{Value: "option_css_resize", Label: "Let the browser resize it"},
			{Value: "option_download_and_resize", Label: "Download and resize it"},
		}},

		{Type: settingsform.TypeTitle, Label: "Gravatar"},
		{Type: settingsform.TypeCheck, Name: "avatar_gravatar_enabled", Label: "Allow members to use Gravatar"},
		{Type: settingsform.TypeSelect, Name: "gravatar_rating", Label: "Maximum Gravatar rating", Options: []settingsform.Option{
			{Value: "g", Label: "G"},
			{Value: "pg", Label: "PG"},
			{Value: "r", Label: "R"},
			{Value: "x", Label: "X"},
		}},
		{Type: settingsform.TypeSelect, Name: "gravatar_default", Label: "Default Gravatar image", Options: []settingsform.Option{
			{Value: "", Label: "Gravatar logo"},
			{Value: "identicon", Label: "Identicon"},
			{Value: "monsterid", Label: "Monster"},
			{Value: "wavatar", Label: "Wavatar"},
			{Value: "retro", Label: "Retro"},
			{Value: "mp", Label: "Mystery person"},
			{Value: "blank", Label: "Blank"},
		}},

		{Type: settingsform.TypeTitle, Label: "Uploaded avatars"},
		{Type: settingsform.TypeCheck, Name: "avatar_upload_enabled", Label: "Allow members to upload avatars"},
		{Type: settingsform.TypeInt, Name: "avatar_max_width_upload", Label: "Maximum width of uploaded avatars", Postinput: "px", Min: settingsform.Limit(0), Size: 4},
		{Type: settingsform.TypeInt, Name: "avatar_max_height_upload", Label: "Maximum height of uploaded avatars", Postinput: "px", Min: settingsform.Limit(0), Size: 4},
		{Type: settingsform.TypeCheck, Name: "avatar_resize_upload", Label: "Resize uploaded avatars that are too large"},
		{Type: settingsform.TypeCheck, Name: "avatar_download_png", Label: "Save resized avatars as PNG"},
		{Type: settingsform.TypeCheck, Name: "avatar_reencode", Label: "Re-encode uploaded avatars", Subtext: "Removes anything hidden in the image data"},
		{Type: settingsform.TypeText, Name: "custom_avatar_dir", Label: "Upload directory", Subtext: "Must be writable", Size: 50},
		{Type: settingsform.TypeText, Name: "custom_avatar_url", Label: "Upload URL", Size: 50},
	}, nil
}

func validateAvatars(form *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	errs := avatars.ValidateDirectories(values.Bool("avatar_stored_enabled"),
		values.Settings["avatar_directory"], values.Settings["custom_avatar_dir"])
	for name, err := range errs {
		form.Invalidate(name, err.Error())
	}
	return nil
}

func avatarTestForm(request *http.Request, result *avatars.ResizeResult) (template.HTML, error) {
	token, err := formToken(request, "avatars")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err = testResizeTmpl.Execute(&buf, map[string]any{
		"action": areaURL("avatars", "settings", nil),
		"token":  token,
		"result": result,
	}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // skipcq: GSC-G203
}

var avatarsPage = &settingsPage{
	Area:     "avatars",
	SA:       "settings",
	Vars:     avatarVars,
	Validate: validateAvatars,
	Extra: func(request *http.Request, _ *fasql.Staff) (template.HTML, error) {
		return avatarTestForm(request, nil)
	},
}

// testResize resizes the uploaded image with the current upload settings and reports the resulting size
func testResize(writer http.ResponseWriter, request *http.Request, wantsJSON bool, errEv *zerolog.Event) (*avatars.ResizeResult, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxTestAvatarSize)
	file, header, err := request.FormFile("avatar")
	if err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return nil, server.NewServerError("no image was uploaded", http.StatusBadRequest)
	}
	defer file.Close()
	tmpDir, err := os.MkdirTemp("", "avatar-test-")
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	defer os.RemoveAll(tmpDir)
	src := filepath.Join(tmpDir, "upload"+filepath.Ext(filepath.Base(header.Filename)))
	out, err := os.Create(src)
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	_, err = io.Copy(out, file)
	out.Close()
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	result, err := avatars.ResizeAvatar(src, filepath.Join(tmpDir, "resized"+filepath.Ext(src)), avatars.UploadResizeOptions())
	if err != nil {
		errEv.Err(err).Caller().Str("filename", header.Filename).Msg("Unable to resize test avatar")
		writer.WriteHeader(http.StatusBadRequest)
		return nil, server.NewServerError(err, http.StatusBadRequest)
	}
	return result, nil
}

func avatarsCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	if request.Method != http.MethodPost || request.FormValue("test_resize") == "" {
		return avatarsPage.handler(writer, request, staff, wantsJSON, infoEv, errEv)
	}
	if err := checkFormToken(writer, request, "avatars", errEv); err != nil {
		return nil, err
	}
	result, err := testResize(writer, request, wantsJSON, errEv)
	if err != nil {
		return nil, err
	}
	if wantsJSON {
		return map[string]any{"width": result.Width, "height": result.Height, "resized": result.Resized}, nil
	}
	opts := fasql.ContextOptions(request.Context())
	form, err := avatarsPage.buildForm(opts)
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	if err = form.Prepare(nil); err != nil {
		return nil, err
	}
	page := *avatarsPage
	page.Extra = func(request *http.Request, _ *fasql.Staff) (template.HTML, error) {
		return avatarTestForm(request, result)
	}
	return page.render(request, staff, form, false, "", "", errEv)
}

func registerAvatarsArea() {
	registerArea(&area{
		ID:        "avatars",
		Title:     "Avatars",
		DefaultSA: "settings",
		SubActions: []subAction{
			{ID: "settings", Label: "Avatar settings", Permission: "manage_attachments", Handler: avatarsCallback},
		},
	})
}
