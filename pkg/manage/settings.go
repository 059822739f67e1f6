package manage

import (
	"errors"
	"html/template"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/events"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

// settingsPage is a sub-action that shows a settings form and saves it
type settingsPage struct {
	Area        string
	SA          string
	Description string

	// Adapter defaults to the database settings table
	Adapter settingsform.Adapter

	// Vars returns the page's vars. It is called for every request, since plugins may modify them
	Vars func(opts *fasql.RequestOptions) ([]settingsform.ConfigVar, error)

	// Overrides returns values of vars that are derived from other settings (like CSV settings)
	Overrides func() map[string]string

	// Validate may mark vars invalid with form.Invalidate or change the parsed values. It returns the
	// names of vars whose values were adjusted
	Validate func(form *settingsform.Form, values *settingsform.Values, request *http.Request) []string

	// Save is called before the values are persisted, for vars stored outside of the settings
	Save func(opts *fasql.RequestOptions, values *settingsform.Values, request *http.Request) error

	// Callbacks returns the HTML of the page's callback vars
	Callbacks func(opts *fasql.RequestOptions, form *settingsform.Form) (map[string]template.HTML, error)

	// Extra returns HTML shown below the form
	Extra func(request *http.Request, staff *fasql.Staff) (template.HTML, error)

	// Notices maps request values to notices shown when they are set, for redirects from actions
	// other than saving the form
	Notices map[string]string
}

func (p *settingsPage) adapter(opts *fasql.RequestOptions) settingsform.Adapter {
	if p.Adapter != nil {
		return p.Adapter
	}
	return &settingsform.DBAdapter{Opts: opts}
}

func (p *settingsPage) buildForm(opts *fasql.RequestOptions) (*settingsform.Form, error) {
	vars, err := p.Vars(opts)
	if err != nil {
		return nil, err
	}
	form := settingsform.New(p.adapter(opts), vars)
	form.Opts = opts
	if _, err, _ = events.TriggerEvent("modify-settings:"+p.Area, &form.Vars); err != nil {
		return nil, err
	}
	return form, nil
}

func (p *settingsPage) handler(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	opts := fasql.ContextOptions(request.Context())
	form, err := p.buildForm(opts)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to build settings form")
		return nil, server.NewServerError("Unable to load the settings form", http.StatusInternalServerError)
	}
	if request.Method == http.MethodPost && request.PostFormValue("save") != "" {
		return p.save(writer, request, staff, form, wantsJSON, infoEv, errEv)
	}

	if err = form.Prepare(p.overrides()); err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	var notice string
	if request.FormValue("saved") != "" {
		notice = "Settings saved"
	}
	for key, text := range p.Notices {
		if request.FormValue(key) != "" {
			notice = text
		}
	}
	var warning string
	if adjusted := request.Form["adjusted"]; len(adjusted) > 0 {
		var labels []string
		for _, name := range adjusted {
			if cv := form.Var(name); cv != nil {
				labels = append(labels, cv.Label)
			}
		}
		if len(labels) > 0 {
			warning = "These values were adjusted to fit their limits: " + strings.Join(labels, ", ")
		}
	}
	return p.render(request, staff, form, wantsJSON, notice, warning, errEv)
}

func (p *settingsPage) overrides() map[string]string {
	if p.Overrides == nil {
		return nil
	}
	return p.Overrides()
}

func (p *settingsPage) render(request *http.Request, staff *fasql.Staff, form *settingsform.Form, wantsJSON bool, notice, warning string, errEv *zerolog.Event) (any, error) {
	if wantsJSON {
		return map[string]any{
			"area":    p.Area,
			"sa":      p.SA,
			"vars":    form.Vars,
			"invalid": form.InvalidVars(),
		}, nil
	}
	opts := fasql.ContextOptions(request.Context())
	var err error
	callbacks := map[string]template.HTML{}
	if p.Callbacks != nil {
		if callbacks, err = p.Callbacks(opts, form); err != nil {
			errEv.Err(err).Caller().Msg("Unable to render settings callbacks")
			return nil, err
		}
	}
	var extra template.HTML
	if p.Extra != nil {
		if extra, err = p.Extra(request, staff); err != nil {
			errEv.Err(err).Caller().Msg("Unable to render extra settings page content")
			return nil, err
		}
	}
	token, err := formToken(request, p.Area)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to create form token")
		return nil, err
	}
	vars := make([]*settingsform.ConfigVar, len(form.Vars))
	for v := range form.Vars {
		vars[v] = &form.Vars[v]
	}
	return renderTemplate(fatemplates.ManageSettings, map[string]any{
		"subActions":  areaTabs(p.Area, staff.Rank, p.SA),
		"notice":      notice,
		"warning":     warning,
		"description": p.Description,
		"formAction":  areaURL(p.Area, p.SA, nil),
		"token":       token,
		"vars":        vars,
		"callbacks":   callbacks,
		"extra":       extra,
	})
}

func (p *settingsPage) save(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, form *settingsform.Form, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	if err := checkFormToken(writer, request, p.Area, errEv); err != nil {
		return nil, err
	}
	values, err := form.Parse(request)
	if err != nil && !errors.Is(err, settingsform.ErrInvalidValues) {
		errEv.Err(err).Caller().Msg("Unable to parse settings form")
		writer.WriteHeader(http.StatusBadRequest)
		return nil, server.NewServerError(err, http.StatusBadRequest)
	}
	// Validate may replace vars with the setting they are stored in, so the form is shown again from
	// the values as they were parsed
	submitted := map[string]string{}
	maps.Copy(submitted, p.overrides())
	maps.Copy(submitted, values.Settings)
	var adjusted []string
	if err == nil && p.Validate != nil {
		adjusted = p.Validate(form, values, request)
	}
	if invalid := form.InvalidVars(); len(invalid) > 0 {
		infoEv.Strs("invalid", invalid).Msg("Rejected invalid settings")
		writer.WriteHeader(http.StatusBadRequest)
		if wantsJSON {
			return map[string]any{"saved": false, "invalid": invalid}, nil
		}
		for _, name := range invalid {
			submitted[name] = request.PostFormValue(name)
		}
		if err = form.Prepare(submitted); err != nil {
			return nil, err
		}
		return p.render(request, staff, form, false, "", "Some of the values are invalid, nothing was saved", errEv)
	}

	if _, err, _ = events.TriggerEvent("save-settings:"+p.Area, values); err != nil {
		errEv.Err(err).Caller().Msg("Settings rejected by save-settings handler")
		writer.WriteHeader(http.StatusBadRequest)
		return nil, server.NewServerError(err, http.StatusBadRequest)
	}
	if err = p.persist(request, form, values); err != nil {
		errEv.Err(err).Caller().Msg("Unable to save settings")
		return nil, err
	}
	opts := fasql.ContextOptions(request.Context())
	if err = fasql.LogAction(opts, fasql.AdminLog, "settings_"+p.Area, staff.ID, fautil.GetRealIP(request), map[string]any{
		"sa": p.SA,
	}); err != nil {
		errEv.Err(err).Caller().Msg("Unable to log settings change")
		return nil, err
	}
	infoEv.Str("area", p.Area).Str("sa", p.SA).Msg("Settings saved")

	if wantsJSON {
		return map[string]any{"saved": true, "adjusted": adjusted}, nil
	}
	params := url.Values{"saved": {"1"}}
	for _, name := range adjusted {
		params.Add("adjusted", name)
	}
	return redirect(writer, request, areaURL(p.Area, p.SA, params))
}

// persist saves the values. Pages that also write outside of the settings table (Save or permission vars)
// write everything in one transaction
func (p *settingsPage) persist(request *http.Request, form *settingsform.Form, values *settingsform.Values) (err error) {
	if p.Save == nil && len(values.Permissions) == 0 {
		return form.Persist(values)
	}
	opts := fasql.ContextOptions(request.Context())
	if opts.Tx, err = fasql.BeginContextTx(opts.Context); err != nil {
		return err
	}
	defer func() {
		if err == nil {
			err = opts.Tx.Commit()
		}
		if err != nil {
			opts.Tx.Rollback()
			// the cached settings were updated before the transaction ended
			if loadErr := fasql.LoadSettings(fasql.ContextOptions(request.Context())); loadErr != nil {
				fautil.LogError(loadErr).Caller().Msg("Unable to reload settings")
			}
		}
	}()
	form.Opts = opts
	if adapter, ok := form.Adapter.(*settingsform.DBAdapter); ok {
		adapter.Opts = opts
	}
	if p.Save != nil {
		if err = p.Save(opts, values, request); err != nil {
			return err
		}
	}
	return form.Persist(values)
}
