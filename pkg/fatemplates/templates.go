package fatemplates

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/forumkit/forumadmin/pkg/config"
)

const (
	ErrorPage            = "error.html"
	ManagePage           = "manage_page.html"
	ManageLogin          = "manage_login.html"
	ManageDashboard      = "manage_dashboard.html"
	ManageStaff          = "manage_staff.html"
	ManageSettings       = "manage_settings.html"
	ManageList           = "manage_list.html"
	ManageViewQuery      = "manage_viewquery.html"
	ManageBadBehavior    = "manage_badbehavior_entry.html"
	ManageViewFile       = "manage_viewfile.html"
	ManageHoliday        = "manage_holiday.html"
	ManageLanguages      = "manage_languages.html"
	ManageLanguageEdit   = "manage_language_edit.html"
	ManageRepair         = "manage_repair.html"
	ManageBBCPreview     = "manage_bbc_preview.html"
	manageSharedPartials = "partials.html"
)

var (
	ErrUnknownTemplate = errors.New("unknown template")

	//go:embed templates/*.html
	embedded embed.FS

	// pages that include the shared partials (sub-action tabs, config vars, list views, form tokens)
	withPartials = []string{
		ManagePage, ManageDashboard, ManageStaff, ManageSettings, ManageList, ManageViewQuery,
		ManageBadBehavior, ManageViewFile, ManageHoliday, ManageLanguages, ManageLanguageEdit,
		ManageRepair, ManageBBCPreview,
	}

	loaded      = map[string]*template.Template{}
	loadedMutex sync.RWMutex
)

func readTemplateFile(name string) ([]byte, error) {
	if dir := config.GetSystemCriticalConfig().TemplateDir; dir != "" {
		overridePath := path.Join(dir, name)
		if ba, err := os.ReadFile(overridePath); err == nil {
			return ba, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return embedded.ReadFile(path.Join("templates", name))
}

// LoadTemplate parses the given template files. A file in the configured template directory is used
// instead of the built-in file with the same name
func LoadTemplate(files ...string) (*template.Template, error) {
	if len(files) == 0 {
		return nil, ErrUnknownTemplate
	}
	tmpl := template.New(files[0]).Funcs(funcMap)
	for f, file := range files {
		ba, err := readTemplateFile(file)
		if err != nil {
			return nil, templateError(file, err)
		}
		parsed := tmpl
		if f > 0 {
			parsed = tmpl.New(file)
		}
		if _, err = parsed.Parse(string(ba)); err != nil {
			return nil, templateError(file, err)
		}
	}
	return tmpl, nil
}

// ParseTemplate parses the given string as a template with the template functions available
func ParseTemplate(name, tmplStr string) (*template.Template, error) {
	return template.New(name).Funcs(funcMap).Parse(tmplStr)
}

func templateError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed loading template '%s': %w", name, err)
}

func templateFiles(name string) []string {
	for _, page := range withPartials {
		if page == name {
			return []string{name, manageSharedPartials}
		}
	}
	return []string{name}
}

// InitTemplates loads the given templates by name. If no parameters are given,
// or the first one is "all", all templates are (re)loaded
func InitTemplates(which ...string) error {
	if len(which) == 0 || which[0] == "all" {
		which = append([]string{ErrorPage, ManageLogin}, withPartials...)
	}
	for _, name := range which {
		tmpl, err := LoadTemplate(templateFiles(name)...)
		if err != nil {
			return err
		}
		loadedMutex.Lock()
		loaded[name] = tmpl
		loadedMutex.Unlock()
	}
	return nil
}

// GetTemplate returns the loaded template with the given name, loading it first if necessary
func GetTemplate(name string) (*template.Template, error) {
	loadedMutex.RLock()
	tmpl, ok := loaded[name]
	loadedMutex.RUnlock()
	if ok {
		return tmpl, nil
	}
	if _, err := embedded.ReadFile(path.Join("templates", name)); err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownTemplate, name)
	}
	if err := InitTemplates(name); err != nil {
		return nil, err
	}
	loadedMutex.RLock()
	defer loadedMutex.RUnlock()
	return loaded[name], nil
}
