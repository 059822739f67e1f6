package manage

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

// csvSetting is a setting that stores the values of several int vars as a comma separated list
type csvSetting struct {
	Setting string
	Vars    []string
}

var (
	pmSpamSettings  = csvSetting{Setting: "pm_spam_settings", Vars: []string{"max_pm_recipients", "pm_posts_verification", "pm_posts_per_hour"}}
	warningSettings = csvSetting{Setting: "warning_settings", Vars: []string{"warning_enable", "user_limit", "warning_decrement"}}

	badBehaviorWhitelists = []string{"badbehavior_ip_wl", "badbehavior_url_wl", "badbehavior_useragent_wl"}
)

func (c csvSetting) overrides() map[string]string {
	stored := strings.Split(fasql.GetSetting(c.Setting), ",")
	overrides := map[string]string{}
	for v, name := range c.Vars {
		val := "0"
		if v < len(stored) {
			if i, err := strconv.Atoi(strings.TrimSpace(stored[v])); err == nil {
				val = strconv.Itoa(i)
			}
		}
		overrides[name] = val
	}
	return overrides
}

func (c csvSetting) join(values *settingsform.Values) {
	parts := make([]string, len(c.Vars))
	for v, name := range c.Vars {
		parts[v] = strconv.Itoa(values.Int(name))
		delete(values.Settings, name)
	}
	values.Settings[c.Setting] = strings.Join(parts, ",")
}

func securityGeneralVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "guest_hideContacts", Label: "Hide contact details from guests"},
		{Type: settingsform.TypeCheck, Name: "make_email_viewable", Label: "Allow viewing email addresses"},
		{Type: settingsform.TypeTitle, Label: "Administration sessions"},
		{Type: settingsform.TypeCheck, Name: "securityDisable", Label: "Don't ask for the password again in the admin area"},
		{Type: settingsform.TypeCheck, Name: "securityDisable_moderate", Label: "Don't ask for the password again in the moderation center"},
		{Type: settingsform.TypeInt, Name: "admin_session_lifetime", Label: "Length of an administration session",
			Postinput: "minutes", Min: settingsform.Limit(5), Max: settingsform.Limit(14400)},
		{Type: settingsform.TypeTitle, Label: "Cookies and frames"},
		{Type: settingsform.TypeCheck, Name: "secureCookies", Label: "Only send cookies over HTTPS"},
		{Type: settingsform.TypeCheck, Name: "httponlyCookies", Label: "Don't let scripts read cookies"},
		{Type: settingsform.TypeSelect, Name: "frame_security", Label: "Framing of the forum", Options: []settingsform.Option{
			{Value: "SAMEORIGIN", Label: "Only by this site"},
			{Value: "DENY", Label: "Never"},
			{Value: "DISABLE", Label: "Allow any site"},
		}},
		{Type: settingsform.TypeCheck, Name: "enableOTP", Label: "Enable two-factor authentication"},
	}, nil
}

func securitySpamVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeTitle, Label: "Verification"},
		{Type: settingsform.TypeCheck, Name: "reg_verification", Label: "Require verification on registration"},
		{Type: settingsform.TypeCheck, Name: "search_enable_captcha", Label: "Require verification for searches by guests"},
		{Type: settingsform.TypeCheck, Name: "guests_require_captcha", Label: "Require verification for posts by guests"},
		{Type: settingsform.TypeInt, Name: "posts_require_captcha", Label: "Require verification until a member has posted",
			Subtext: "-1 to always require it, 0 to never", Postinput: "messages", Min: settingsform.Limit(-1)},
		{Type: settingsform.TypeTitle, Label: "Personal messages"},
		{Type: settingsform.TypeInt, Name: "max_pm_recipients", Label: "Maximum recipients of a personal message",
			Subtext: "0 for no limit", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "pm_posts_verification", Label: "Require verification until a member has posted",
			Subtext: "0 to never require it", Postinput: "messages", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "pm_posts_per_hour", Label: "Personal messages a member can send in an hour",
			Subtext: "0 for no limit", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeTitle, Label: "Questions and answers"},
		{Type: settingsform.TypeInt, Name: "qa_verification_number", Label: "Questions asked on registration",
			Subtext: "0 to disable", Min: settingsform.Limit(0)},
		{Type: settingsform.TypeCallback, Name: "antispam_questions", Label: "Questions"},
	}, nil
}

var questionsTmpl = template.Must(template.New("questions").Parse(`<table class="mgmt-table" id="antispam-questions">
	<tr><th>Question</th><th>Answers (one per line)</th><th>Language</th></tr>
	{{- range .}}<tr>
		<td><input type="text" name="question[{{.Key}}]" value="{{.Question.Question}}" size="50" /></td>
		<td><textarea name="answers[{{.Key}}]" rows="2" cols="30">{{range $a, $answer := .Question.Answers}}{{if $a}}
{{end}}{{$answer}}{{end}}</textarea></td>
		<td><input type="text" name="qlanguage[{{.Key}}]" value="{{.Question.Language}}" size="6" /></td>
	</tr>{{end}}
</table>`))

const newQuestionRows = 3

type questionRow struct {
	Key      string
	Question fasql.AntispamQuestion
}

func questionsCallback(opts *fasql.RequestOptions, _ *settingsform.Form) (map[string]template.HTML, error) {
	questions, err := fasql.GetAntispamQuestions(opts)
	if err != nil {
		return nil, err
	}
	rows := make([]questionRow, 0, len(questions)+newQuestionRows)
	for _, q := range questions {
		rows = append(rows, questionRow{Key: strconv.Itoa(q.ID), Question: q})
	}
	for n := range newQuestionRows {
		rows = append(rows, questionRow{Key: "new" + strconv.Itoa(n)})
	}
	var buf bytes.Buffer
	if err = questionsTmpl.Execute(&buf, rows); err != nil {
		return nil, err
	}
	return map[string]template.HTML{"antispam_questions": template.HTML(buf.String())}, nil // skipcq: GSC-G203
}

// bracketKeys returns the keys of the submitted <field>[<key>] values, sorted
func bracketKeys(request *http.Request, field string) []string {
	var keys []string
	prefix := field + "["
	for name := range request.PostForm {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, "]") {
			keys = append(keys, name[len(prefix):len(name)-1])
		}
	}
	sort.Strings(keys)
	return keys
}

// submittedQuestions reads the questions and answers table. Rows of existing questions have their ID as
// the key, new rows have a key starting with "new"
func submittedQuestions(request *http.Request) []fasql.AntispamQuestion {
	var questions []fasql.AntispamQuestion
	for _, key := range bracketKeys(request, "question") {
		q := fasql.AntispamQuestion{
			Question: strings.TrimSpace(request.PostFormValue("question[" + key + "]")),
			Language: strings.TrimSpace(request.PostFormValue("qlanguage[" + key + "]")),
		}
		if !strings.HasPrefix(key, "new") {
			id, err := strconv.Atoi(key)
			if err != nil || id < 1 {
				continue
			}
			q.ID = id
		}
		for _, answer := range strings.Split(request.PostFormValue("answers["+key+"]"), "\n") {
			if answer = strings.TrimSpace(answer); answer != "" {
				q.Answers = append(q.Answers, answer)
			}
		}
		questions = append(questions, q)
	}
	return questions
}

// questionCount returns the number of questions there will be after the submitted questions are saved
func questionCount(questions []fasql.AntispamQuestion) int {
	var count int
	for _, q := range questions {
		if q.Question != "" && (q.ID > 0 || len(q.Answers) > 0) {
			count++
		}
	}
	return count
}

func validateSpam(_ *settingsform.Form, values *settingsform.Values, request *http.Request) []string {
	pmSpamSettings.join(values)
	if count := questionCount(submittedQuestions(request)); values.Int("qa_verification_number") > count {
		values.Settings["qa_verification_number"] = strconv.Itoa(count)
		return []string{"qa_verification_number"}
	}
	return nil
}

func saveSpam(opts *fasql.RequestOptions, _ *settingsform.Values, request *http.Request) error {
	_, err := fasql.SaveAntispamQuestions(opts, submittedQuestions(request))
	return err
}

func securityModerationVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "warning_enable", Label: "Enable the warning system"},
		{Type: settingsform.TypeInt, Name: "user_limit", Label: "Maximum points a moderator can add in a day",
			Subtext: "0 for no limit", Min: settingsform.Limit(0), Max: settingsform.Limit(100)},
		{Type: settingsform.TypeInt, Name: "warning_decrement", Label: "Points removed every day",
			Min: settingsform.Limit(0), Max: settingsform.Limit(100)},
		{Type: settingsform.TypeTitle, Label: "Warning levels"},
		{Type: settingsform.TypeInt, Name: "warning_watch", Label: "Watch the member at", Subtext: "0 to disable",
			Postinput: "points", Min: settingsform.Limit(0), Max: settingsform.Limit(100)},
		{Type: settingsform.TypeInt, Name: "warning_moderate", Label: "Moderate the member's posts at", Subtext: "0 to disable",
			Postinput: "points", Min: settingsform.Limit(0), Max: settingsform.Limit(100)},
		{Type: settingsform.TypeInt, Name: "warning_mute", Label: "Mute the member at", Subtext: "0 to disable",
			Postinput: "points", Min: settingsform.Limit(0), Max: settingsform.Limit(100)},
	}, nil
}

func validateModeration(form *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	enabled := values.Bool("warning_enable")
	warningSettings.join(values)
	if !enabled {
		return nil
	}
	// levels that are set must not decrease
	highest := 0
	for _, name := range []string{"warning_watch", "warning_moderate", "warning_mute"} {
		level := values.Int(name)
		if level == 0 {
			continue
		}
		if level < highest {
			form.Invalidate(name, "The warning levels must be in increasing order")
			continue
		}
		highest = level
	}
	return nil
}

func securityBadBehaviorVars(_ *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "badbehavior_enabled", Label: "Enable Bad Behavior"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_logging", Label: "Log blocked requests"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_verbose", Label: "Log every request"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_strict", Label: "Strict checking"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_offsite_forms", Label: "Allow forms posted from other sites"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_eucookie", Label: "EU cookie compliance"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_display_stats", Label: "Show statistics in the footer"},
		{Type: settingsform.TypeTitle, Label: "Reverse proxy"},
		{Type: settingsform.TypeCheck, Name: "badbehavior_reverse_proxy", Label: "The forum is behind a reverse proxy"},
		{Type: settingsform.TypeText, Name: "badbehavior_reverse_proxy_header", Label: "Header with the client IP", Mask: "nohtml"},
		{Type: settingsform.TypeText, Name: "badbehavior_reverse_proxy_addresses", Label: "Addresses of the proxies", Mask: "nohtml", Size: 50},
		{Type: settingsform.TypeTitle, Label: "http:BL"},
		{Type: settingsform.TypeText, Name: "badbehavior_httpbl_key", Label: "http:BL access key",
			Subtext: "12 lowercase letters", Mask: "regex:^[a-z]{12}$", MaxLength: 12},
		{Type: settingsform.TypeInt, Name: "badbehavior_httpbl_threat", Label: "Minimum threat level",
			Min: settingsform.Limit(1), Max: settingsform.Limit(255)},
		{Type: settingsform.TypeInt, Name: "badbehavior_httpbl_maxage", Label: "Maximum age of the listing",
			Postinput: "days", Min: settingsform.Limit(1), Max: settingsform.Limit(30)},
		{Type: settingsform.TypeTitle, Label: "Whitelists"},
		{Type: settingsform.TypeCallback, Name: "badbehavior_ip_wl", Label: "IP addresses and ranges"},
		{Type: settingsform.TypeCallback, Name: "badbehavior_url_wl", Label: "URLs", Subtext: "Paths starting with /"},
		{Type: settingsform.TypeCallback, Name: "badbehavior_useragent_wl", Label: "User agents", Subtext: "Glob patterns"},
	}, nil
}

type whitelistEntry struct {
	Value       string
	Description string
}

// whitelist returns the stored entries of a whitelist setting, sorted by value
func whitelist(setting string) []whitelistEntry {
	stored := map[string]string{}
	if raw := fasql.GetSetting(setting); raw != "" {
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil
		}
	}
	entries := make([]whitelistEntry, 0, len(stored))
	for value, desc := range stored {
		entries = append(entries, whitelistEntry{Value: value, Description: desc})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Value < entries[j].Value
	})
	return entries
}

var whitelistTmpl = template.Must(template.New("whitelist").Parse(`<table class="mgmt-table whitelist" id="{{.Name}}">
	<tr><th>Value</th><th>Description</th></tr>
	{{- range .Entries}}<tr>
		<td><input type="text" name="{{$.Name}}[]" value="{{.Value}}" /></td>
		<td><input type="text" name="{{$.Name}}_desc[]" value="{{.Description}}" /></td>
	</tr>{{end}}
</table>`))

func whitelistCallbacks(_ *fasql.RequestOptions, form *settingsform.Form) (map[string]template.HTML, error) {
	callbacks := map[string]template.HTML{}
	for _, name := range badBehaviorWhitelists {
		entries := whitelist(name)
		if cv := form.Var(name); cv != nil && cv.Invalid {
			// entries that were submitted with an error are shown again
			entries = nil
		}
		entries = append(entries, whitelistEntry{})
		var buf bytes.Buffer
		if err := whitelistTmpl.Execute(&buf, map[string]any{"Name": name, "Entries": entries}); err != nil {
			return nil, err
		}
		callbacks[name] = template.HTML(buf.String()) // skipcq: GSC-G203
	}
	return callbacks, nil
}

func validWhitelistEntry(list string, value string) bool {
	switch list {
	case "badbehavior_ip_wl":
		if net.ParseIP(value) != nil {
			return true
		}
		_, _, err := net.ParseCIDR(value)
		return err == nil
	case "badbehavior_url_wl":
		return strings.HasPrefix(value, "/")
	case "badbehavior_useragent_wl":
		_, err := glob.Compile(value)
		return err == nil
	}
	return false
}

// parseWhitelist reads the submitted whitelist rows, dropping empty ones. It returns the invalid values
func parseWhitelist(request *http.Request, list string) (map[string]string, []string) {
	values := request.PostForm[list+"[]"]
	descs := request.PostForm[list+"_desc[]"]
	entries := map[string]string{}
	var invalid []string
	for v, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !validWhitelistEntry(list, value) {
			invalid = append(invalid, value)
			continue
		}
		var desc string
		if v < len(descs) {
			desc = strings.TrimSpace(descs[v])
		}
		entries[value] = desc
	}
	return entries, invalid
}

func validateBadBehavior(form *settingsform.Form, values *settingsform.Values, request *http.Request) []string {
	for _, list := range badBehaviorWhitelists {
		entries, invalid := parseWhitelist(request, list)
		if len(invalid) > 0 {
			form.Invalidate(list, "Invalid entries: "+strings.Join(invalid, ", "))
			continue
		}
		ba, err := json.Marshal(entries)
		if err != nil {
			form.Invalidate(list, err.Error())
			continue
		}
		values.Settings[list] = string(ba)
	}
	return nil
}

func registerSecuritySettingsArea() {
	general := &settingsPage{Area: "securitysettings", SA: "general", Vars: securityGeneralVars}
	spam := &settingsPage{
		Area:      "securitysettings",
		SA:        "spam",
		Vars:      securitySpamVars,
		Overrides: pmSpamSettings.overrides,
		Validate:  validateSpam,
		Save:      saveSpam,
		Callbacks: questionsCallback,
	}
	moderation := &settingsPage{
		Area:      "securitysettings",
		SA:        "moderation",
		Vars:      securityModerationVars,
		Overrides: warningSettings.overrides,
		Validate:  validateModeration,
	}
	badBehavior := &settingsPage{
		Area:      "securitysettings",
		SA:        "badbehavior",
		Vars:      securityBadBehaviorVars,
		Validate:  validateBadBehavior,
		Callbacks: whitelistCallbacks,
	}
	registerArea(&area{
		ID:        "securitysettings",
		Title:     "Security",
		DefaultSA: "general",
		SubActions: []subAction{
			{ID: "general", Label: "General", Permission: "admin_forum", Handler: general.handler},
			{ID: "spam", Label: "Anti-spam", Permission: "admin_forum", Handler: spam.handler},
			{ID: "moderation", Label: "Moderation", Permission: "admin_forum", Handler: moderation.handler},
			{ID: "badbehavior", Label: "Bad Behavior", Permission: "admin_forum", Handler: badBehavior.handler},
		},
	})
}
