package manage

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

var pruneNowTmpl = template.Must(template.New("prunenow").Parse(`<form method="POST" action="{{.action}}" id="prune-now">
	<input type="hidden" name="token" value="{{.token}}" />
	<p>Remove the entries older than the number of days saved above from every log.</p>
	<input type="submit" name="prune" value="Prune now" data-confirm="Prune the logs now?" />
</form>`))

var pruneLabels = map[string]string{
	"pruneErrorLog":         "Remove error log entries older than",
	"pruneModLog":           "Remove moderation log entries older than",
	"pruneBanLog":           "Remove administration log entries older than",
	"pruneReportLog":        "Remove report to moderator log entries older than",
	"pruneScheduledTaskLog": "Remove scheduled task log entries older than",
	"pruneBadbehaviorLog":   "Remove Bad Behavior log entries older than",
	"pruneSpiderHitLog":     "Remove search engine hit logs older than",
}

func pruningVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	vars := []settingsform.ConfigVar{
		{Type: settingsform.TypeTitle, Label: "Log pruning"},
		{Type: settingsform.TypeCheck, Name: "pruningOptions", Label: "Enable pruning of log entries"},
		{Type: settingsform.TypeDesc, Label: "Entries are only removed when the logs are pruned. Use 0 to keep a log forever"},
	}
	for _, name := range fasql.PruneLogNames {
		vars = append(vars, settingsform.ConfigVar{
			Type:      settingsform.TypeInt,
			Name:      name,
			Label:     pruneLabels[name],
			Postinput: "days",
			Min:       settingsform.Limit(0),
			Size:      3,
		})
	}
	return vars, nil
}

// pruningOverrides splits the pruningOptions CSV into the check var and the day vars
func pruningOverrides() map[string]string {
	p := fasql.ParsePruningOptions(fasql.GetSetting("pruningOptions"))
	overrides := map[string]string{"pruningOptions": "0"}
	if p.Enabled {
		overrides["pruningOptions"] = "1"
	}
	for name, days := range p.Values() {
		overrides[name] = itoa(days)
	}
	return overrides
}

// validatePruning joins the day vars into the pruningOptions setting
func validatePruning(_ *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	days := map[string]int{}
	for _, name := range fasql.PruneLogNames {
		days[name] = values.Int(name)
		delete(values.Settings, name)
	}
	p := fasql.PruningOptionsFromValues(values.Bool("pruningOptions"), days)
	values.Settings["pruningOptions"] = p.String()
	return nil
}

func pruneNowForm(request *http.Request, _ *fasql.Staff) (template.HTML, error) {
	token, err := formToken(request, "logs")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err = pruneNowTmpl.Execute(&buf, map[string]any{
		"action": areaURL("logs", "pruning", nil),
		"token":  token,
	}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // skipcq: GSC-G203
}

var pruningPage = &settingsPage{
	Area:        "logs",
	SA:          "pruning",
	Description: "Old log entries can be removed to keep the log tables small",
	Vars:        pruningVars,
	Overrides:   pruningOverrides,
	Validate:    validatePruning,
	Extra:       pruneNowForm,
	Notices:     map[string]string{"pruned": "The logs were pruned"},
}

func pruningCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	if request.Method != http.MethodPost || request.PostFormValue("prune") == "" {
		return pruningPage.handler(writer, request, staff, wantsJSON, infoEv, errEv)
	}
	if err := checkFormToken(writer, request, "logs", errEv); err != nil {
		return nil, err
	}
	opts := fasql.ContextOptions(request.Context())
	result, err := fasql.PruneLogs(opts, fasql.ParsePruningOptions(fasql.GetSetting("pruningOptions")), time.Now())
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to prune logs")
		return nil, err
	}
	if err = fasql.LogAction(opts, fasql.AdminLog, "prune_logs", staff.ID, fautil.GetRealIP(request), nil); err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	infoEv.Object("pruned", result).Msg("Logs pruned")
	if wantsJSON {
		return map[string]any{"pruned": result}, nil
	}
	return redirect(writer, request, areaURL("logs", "pruning", map[string][]string{"pruned": {"1"}}))
}

func registerLogsArea() {
	registerArea(&area{
		ID:        "logs",
		Title:     "Logs",
		DefaultSA: "errorlog",
		SubActions: []subAction{
			{ID: "errorlog", Label: "Error log", Permission: "admin_forum", Enabled: settingEnabled("enableErrorLogging"), Handler: errorLogCallback},
			{ID: "viewfile", Label: "View file", Permission: "admin_forum", Enabled: settingEnabled("enableErrorLogging"), Hidden: true, Handler: viewFileCallback},
			{ID: "adminlog", Label: "Administration log", Permission: "admin_forum", Enabled: settingEnabled("modlog_enabled"), Handler: actionLogCallback(fasql.AdminLog, "adminlog")},
			{ID: "modlog", Label: "Moderation log", Permission: "access_mod_center", Enabled: settingEnabled("modlog_enabled"), Handler: actionLogCallback(fasql.ModerationLog, "modlog")},
			{ID: "badbehaviorlog", Label: "Bad Behavior log", Permission: "admin_forum", Enabled: settingEnabled("badbehavior_enabled"), Handler: badBehaviorLogCallback},
			{ID: "pruning", Label: "Pruning", Permission: "admin_forum", Handler: pruningCallback},
		},
	})
}

func settingEnabled(setting string) func() bool {
	return func() bool {
		return fasql.GetSettingBool(setting)
	}
}
