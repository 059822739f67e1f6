package manage

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/languages"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

const fallbackLanguage = "en"

var (
	ErrLanguageNotInstalled = server.NewServerError("the language is not installed", http.StatusBadRequest)
	ErrLanguageNotFound     = server.NewServerError(languages.ErrLanguageNotFound, http.StatusNotFound)
	ErrLanguageFileNotFound = server.NewServerError(languages.ErrFileNotFound, http.StatusNotFound)
)

// defaultLanguage returns the forum's default language from the settings file
func defaultLanguage() string {
	if lang := config.GetFileSetting("language"); lang != "" {
		return lang
	}
	return fallbackLanguage
}

func languagesCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	dir := config.GetSystemCriticalConfig().LanguageDir
	if request.Method == http.MethodPost && request.PostFormValue("set_default") != "" {
		if err := checkFormToken(writer, request, "languages", errEv); err != nil {
			return nil, err
		}
		lang := request.PostFormValue("def_language")
		if !languages.Installed(dir, lang) {
			errEv.Str("language", lang).Caller().Msg("Rejected default language")
			writer.WriteHeader(http.StatusBadRequest)
			return nil, ErrLanguageNotInstalled
		}
		if err := config.SaveFileSettings(map[string]string{"language": lang}); err != nil {
			errEv.Err(err).Caller().Str("language", lang).Msg("Unable to save default language")
			return nil, err
		}
		opts := fasql.ContextOptions(request.Context())
		if err := fasql.LogAction(opts, fasql.AdminLog, "default_language", staff.ID, fautil.GetRealIP(request), map[string]any{
			"language": lang,
		}); err != nil {
			errEv.Err(err).Caller().Send()
			return nil, err
		}
		infoEv.Str("language", lang).Msg("Changed default language")
		if wantsJSON {
			return map[string]any{"default": lang}, nil
		}
		return redirect(writer, request, areaURL("languages", "edit", url.Values{"saved": {"1"}}))
	}

	packs, err := languages.List(dir)
	if err != nil {
		errEv.Err(err).Caller().Str("languageDir", dir).Msg("Unable to list languages")
		return nil, err
	}
	defLang := defaultLanguage()
	counts, err := fasql.GetLanguageMemberCounts(fasql.ContextOptions(request.Context()), defLang)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to count language members")
		return nil, err
	}
	if wantsJSON {
		type languageJSON struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			NativeName string `json:"native_name"`
			Members    int    `json:"members"`
			Default    bool   `json:"default"`
		}
		list := make([]languageJSON, len(packs))
		for p := range packs {
			list[p] = languageJSON{
				ID:         packs[p].ID,
				Name:       packs[p].Name(),
				NativeName: packs[p].NativeName(),
				Members:    counts[packs[p].ID],
				Default:    packs[p].ID == defLang,
			}
		}
		return list, nil
	}
	data, err := listDataBase(request, staff, "languages", "edit")
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	if request.FormValue("saved") != "" {
		data["notice"] = "The default language was changed"
	}
	data["languages"] = packs
	data["defaultLanguage"] = defLang
	data["memberCounts"] = counts
	return renderTemplate(fatemplates.ManageLanguages, data)
}

// submittedEntries returns the entry[<key>] values of the form
func submittedEntries(request *http.Request) map[string]string {
	entries := map[string]string{}
	for field, vals := range request.PostForm {
		if !strings.HasPrefix(field, "entry[") || !strings.HasSuffix(field, "]") || len(vals) == 0 {
			continue
		}
		entries[field[len("entry["):len(field)-1]] = vals[0]
	}
	return entries
}

func editLanguageCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	dir := config.GetSystemCriticalConfig().LanguageDir
	pack, err := languages.Get(dir, request.FormValue("lid"))
	if errors.Is(err, languages.ErrLanguageNotFound) {
		writer.WriteHeader(http.StatusNotFound)
		return nil, ErrLanguageNotFound
	} else if err != nil {
		errEv.Err(err).Caller().Str("lid", request.FormValue("lid")).Msg("Unable to load language")
		return nil, err
	}
	file := request.FormValue("tfid")
	var filePath string
	if file != "" {
		if filePath, err = pack.FilePath(file); err != nil {
			writer.WriteHeader(http.StatusNotFound)
			return nil, ErrLanguageFileNotFound
		}
	}

	if request.Method == http.MethodPost && request.PostFormValue("save_entries") != "" {
		if filePath == "" {
			writer.WriteHeader(http.StatusNotFound)
			return nil, ErrLanguageFileNotFound
		}
		if err = checkFormToken(writer, request, "languages", errEv); err != nil {
			return nil, err
		}
		changed, err := languages.SaveEntries(filePath, submittedEntries(request))
		if err != nil {
			errEv.Err(err).Caller().Str("file", filePath).Msg("Unable to save language entries")
			return nil, err
		}
		infoEv.Str("language", pack.ID).Str("file", file).Strs("changed", changed).Msg("Saved language entries")
		if wantsJSON {
			return map[string]any{"changed": changed}, nil
		}
		params := url.Values{"lid": {pack.ID}, "tfid": {file}, "saved": {"1"}}
		if search := request.FormValue("search"); search != "" {
			params.Set("search", search)
		}
		return redirect(writer, request, areaURL("languages", "editlang", params))
	}

	var entries []languages.Entry
	search := request.FormValue("search")
	if filePath != "" {
		if entries, err = languages.Entries(filePath); err != nil {
			errEv.Err(err).Caller().Str("file", filePath).Msg("Unable to read language file")
			return nil, err
		}
		if entries, err = languages.FilterEntries(entries, search); err != nil {
			writer.WriteHeader(http.StatusBadRequest)
			return nil, server.NewServerError(err, http.StatusBadRequest)
		}
	}
	if wantsJSON {
		return map[string]any{"id": pack.ID, "files": pack.Files, "entries": entries}, nil
	}
	data, err := listDataBase(request, staff, "languages", "editlang")
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	if request.FormValue("saved") != "" {
		data["notice"] = "The language file was saved"
	}
	data["pack"] = pack
	data["file"] = file
	data["search"] = search
	data["entries"] = entries
	return renderTemplate(fatemplates.ManageLanguageEdit, data)
}

func languageSettingsVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "userLanguage", Label: "Allow members to choose their language"},
	}, nil
}

func registerLanguagesArea() {
	page := &settingsPage{
		Area: "languages",
		SA:   "settings",
		Vars: languageSettingsVars,
	}
	registerArea(&area{
		ID:        "languages",
		Title:     "Languages",
		DefaultSA: "edit",
		SubActions: []subAction{
			{ID: "edit", Label: "Installed languages", Permission: "admin_forum", Handler: languagesCallback},
			{ID: "editlang", Label: "Edit language", Permission: "admin_forum", Hidden: true, Handler: editLanguageCallback},
			{ID: "settings", Label: "Settings", Permission: "admin_forum", Handler: page.handler},
		},
	})
}
