package manage

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/forumkit/forumadmin/pkg/events"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

const messageLengthQueryRE = `SELECT CHARACTER_MAXIMUM_LENGTH FROM information_schema.COLUMNS`

var editorSettingsKeys = []string{
	"enableSpellChecking", "disable_wysiwyg", "enableUndoRedo", "enableSplitTag",
	"editor_toolbar", "editorPreviewLength", "mentions_enabled",
}

func editorForm(toolbar string) url.Values {
	return url.Values{
		"save":                {"Save"},
		"enableSpellChecking": {"1"},
		"enableUndoRedo":      {"1"},
		"editor_toolbar":      {toolbar},
		"editorPreviewLength": {"5000"},
	}
}

func TestEditorSettings(t *testing.T) {
	editorArea := areas["editor"]
	if !assert.NotNil(t, editorArea) {
		t.FailNow()
	}
	runManageTestCases(t, editorArea.callback, []manageCallbackTestCase{
		{
			desc:         "GET settings form",
			path:         "/manage/editor",
			expectStatus: http.StatusOK,
			validateOutput: func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
				doc := outputDoc(t, output)
				assert.Equal(t, 1, doc.Find("#settings-form input[name=token]").Length())
				assert.Equal(t, 1, doc.Find("#var-editor_toolbar").Length())
				assert.Equal(t, 1, doc.Find("input[name=save]").Length())
			},
		}, {
			desc:         "GET settings as JSON",
			path:         "/manage/editor?sa=display",
			wantsJSON:    true,
			expectStatus: http.StatusOK,
			validateOutput: func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
				data, ok := output.(map[string]any)
				if !assert.True(t, ok) {
					t.FailNow()
				}
				assert.Equal(t, "editor", data["area"])
				assert.Equal(t, "display", data["sa"])
				assert.Empty(t, data["invalid"])
			},
		}, {
			desc:         "save with a missing token",
			path:         "/manage/editor?sa=display",
			method:       http.MethodPost,
			form:         editorForm("b,i,|,url"),
			expectStatus: http.StatusForbidden,
			expectError:  true,
			validateOutput: func(t *testing.T, _ any, _ *httptest.ResponseRecorder, err error) {
				assert.ErrorIs(t, err, ErrBadToken)
			},
		}, {
			desc:         "save with a token for another area",
			path:         "/manage/editor?sa=display",
			method:       http.MethodPost,
			form:         editorForm("b,i,|,url"),
			token:        "bbc",
			expectStatus: http.StatusForbidden,
			expectError:  true,
		}, {
			desc:         "unknown toolbar tags are rejected",
			path:         "/manage/editor?sa=display",
			method:       http.MethodPost,
			form:         editorForm("b,i,marquee,|,blink"),
			token:        "editor",
			expectStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
				doc := outputDoc(t, output)
				row := doc.Find("tr.invalid#var-editor_toolbar")
				assert.Equal(t, 1, row.Length())
				assert.Contains(t, row.Find("div.error").Text(), "Unknown tags: marquee, blink")
				assert.Equal(t, 1, doc.Find("div.warning").Length())
				assert.Equal(t, "b,i,marquee,|,blink", doc.Find("input[name=editor_toolbar]").AttrOr("value", ""))
			},
		}, {
			desc:         "invalid values are reported as JSON",
			path:         "/manage/editor?sa=display",
			method:       http.MethodPost,
			form:         editorForm("marquee"),
			token:        "editor",
			wantsJSON:    true,
			expectStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
				assert.Equal(t, map[string]any{"saved": false, "invalid": []string{"editor_toolbar"}}, output)
			},
		}, {
			desc:         "valid settings are saved and logged",
			path:         "/manage/editor?sa=display",
			method:       http.MethodPost,
			form:         editorForm("b,i,|,url"),
			token:        "editor",
			expectStatus: http.StatusSeeOther,
			prepareMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				expectSettingsUpdate(mock, editorSettingsKeys...)
				expectLogAction(mock, fasql.AdminLog, "settings_editor")
			},
			validateOutput: func(t *testing.T, output any, writer *httptest.ResponseRecorder, _ error) {
				assert.Nil(t, output)
				assertRedirect(t, writer, "/manage/editor", "sa=display", "saved=1")
				assert.Equal(t, "2000", fasql.GetSetting("editorPreviewLength"))
				assert.Equal(t, "0", fasql.GetSetting("disable_wysiwyg"))
			},
		}, {
			desc:         "moderators can't use admin_forum sub-actions",
			path:         "/manage/editor",
			staff:        testMod,
			expectStatus: http.StatusForbidden,
			expectError:  true,
			validateOutput: func(t *testing.T, _ any, _ *httptest.ResponseRecorder, err error) {
				assert.ErrorIs(t, err, ErrNotAllowed)
			},
		}, {
			desc: "admin sessions time out",
			path: "/manage/editor",
			staff: &fasql.Staff{ID: 1, Username: "admin", Rank: AdminPerms, IsActive: true,
				LastLogin: time.Now().Add(-24 * time.Hour)},
			expectStatus: http.StatusUnauthorized,
			expectError:  true,
			validateOutput: func(t *testing.T, _ any, _ *httptest.ResponseRecorder, err error) {
				assert.ErrorIs(t, err, ErrAdminSessionTimed)
			},
		},
	})
}

func TestTopicSettingsValidation(t *testing.T) {
	topicsArea := areas["postsettings"]
	if !assert.NotNil(t, topicsArea) {
		t.FailNow()
	}
	runManageTestCases(t, topicsArea.callback, []manageCallbackTestCase{
		{
			desc:   "very hot topics need more messages than hot topics",
			path:   "/manage/postsettings?sa=topics",
			method: http.MethodPost,
			form: url.Values{
				"save":              {"Save"},
				"pollMode":          {"1"},
				"defaultMaxTopics":  {"20"},
				"hotTopicPosts":     {"30"},
				"hotTopicVeryPosts": {"30"},
			},
			token:        "postsettings",
			expectStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
				doc := outputDoc(t, output)
				assert.Equal(t, 1, doc.Find("tr.invalid#var-hotTopicVeryPosts").Length())
				assert.Equal(t, 0, doc.Find("tr.invalid#var-hotTopicPosts").Length())
			},
		},
	})
}

func TestValidatePostsClampsMessageLength(t *testing.T) {
	mock := setupManageTest(t)
	mock.ExpectPrepare(messageLengthQueryRE).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"CHARACTER_MAXIMUM_LENGTH"}).AddRow(65535))
	mock.ExpectPrepare(messageLengthQueryRE).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"CHARACTER_MAXIMUM_LENGTH"}).AddRow(65535))

	request := httptest.NewRequest(http.MethodPost, "/manage/postsettings", nil)
	values := &settingsform.Values{Settings: map[string]string{"max_messageLength": "100000"}}
	adjusted := validatePosts(nil, values, request)
	assert.Equal(t, []string{"max_messageLength"}, adjusted)
	assert.Equal(t, "65535", values.Settings["max_messageLength"])

	values.Settings["max_messageLength"] = "30000"
	assert.Empty(t, validatePosts(nil, values, request))
	assert.Equal(t, "30000", values.Settings["max_messageLength"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustedValuesWarning(t *testing.T) {
	postsArea := areas["postsettings"]
	runManageTestCases(t, postsArea.callback, []manageCallbackTestCase{
		{
			desc:         "adjusted values are named after a redirect",
			path:         "/manage/postsettings?sa=posts&saved=1&adjusted=max_messageLength",
			expectStatus: http.StatusOK,
			validateOutput: func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
				doc := outputDoc(t, output)
				assert.Equal(t, "Settings saved", doc.Find("div.notice").Text())
				assert.Contains(t, doc.Find("div.warning").Text(), "adjusted to fit their limits")
			},
		},
	})
}

// addNotifyVar adds a text var that only accepts email addresses to the settings pages of area
func addNotifyVar(t *testing.T, area string) {
	t.Helper()
	trigger := "modify-settings:" + area
	events.RegisterEvent([]string{trigger}, func(_ string, data ...any) error {
		vars := data[0].(*[]settingsform.ConfigVar)
		*vars = append(*vars, settingsform.ConfigVar{Type: settingsform.TypeText, Name: "notify_address",
			Label: "Notify address", Mask: "email"})
		return nil
	})
	t.Cleanup(func() {
		events.UnregisterEvent(trigger)
	})
}

func TestInvalidSettingsShownAgain(t *testing.T) {
	securityArea := areas["securitysettings"]
	if !assert.NotNil(t, securityArea) {
		t.FailNow()
	}
	testCases := []struct {
		manageCallbackTestCase
		callback CallbackFunction
		area     string
		expect   map[string]string
		checked  []string
	}{
		{
			manageCallbackTestCase: manageCallbackTestCase{
				desc:   "moderation warning levels out of order",
				path:   "/manage/securitysettings?sa=moderation",
				method: http.MethodPost,
				form: url.Values{
					"save":              {"Save"},
					"warning_enable":    {"1"},
					"user_limit":        {"20"},
					"warning_decrement": {"20"},
					"warning_watch":     {"50"},
					"warning_moderate":  {"35"},
					"warning_mute":      {"0"},
				},
				token: "securitysettings",
			},
			callback: securityArea.callback,
			expect: map[string]string{
				"user_limit":        "20",
				"warning_decrement": "20",
				"warning_watch":     "50",
				"warning_moderate":  "35",
			},
			checked: []string{"warning_enable"},
		}, {
			manageCallbackTestCase: manageCallbackTestCase{
				desc:   "personal message limits with an invalid field",
				path:   "/manage/securitysettings?sa=spam",
				method: http.MethodPost,
				form: url.Values{
					"save":                  {"Save"},
					"max_pm_recipients":     {"3"},
					"pm_posts_verification": {"0"},
					"pm_posts_per_hour":     {"12"},
					"notify_address":        {"not an address"},
				},
				token: "securitysettings",
				prepareMock: func(t *testing.T, mock sqlmock.Sqlmock) {
					mock.ExpectPrepare(`SELECT id_question, question, answers, language FROM antispam_questions`).
						ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id_question", "question", "answers", "language"}))
				},
			},
			callback: securityArea.callback,
			area:     "securitysettings",
			expect: map[string]string{
				"max_pm_recipients":     "3",
				"pm_posts_verification": "0",
				"pm_posts_per_hour":     "12",
				"notify_address":        "not an address",
			},
		}, {
			manageCallbackTestCase: manageCallbackTestCase{
				desc:   "pruning days with an invalid field",
				path:   "/manage/logs?sa=pruning",
				method: http.MethodPost,
				form: url.Values{
					"save":           {"Save"},
					"pruningOptions": {"1"},
					"pruneErrorLog":  {"15"},
					"pruneModLog":    {"25"},
					"notify_address": {"admin@"},
				},
				token: "logs",
			},
			callback: pruningCallback,
			area:     "logs",
			expect: map[string]string{
				"pruneErrorLog":  "15",
				"pruneModLog":    "25",
				"pruneBanLog":    "0",
				"notify_address": "admin@",
			},
			checked: []string{"pruningOptions"},
		},
	}
	for _, tc := range testCases {
		if tc.area != "" {
			addNotifyVar(t, tc.area)
		}
		tc.expectStatus = http.StatusBadRequest
		tc.validateOutput = func(t *testing.T, output any, _ *httptest.ResponseRecorder, _ error) {
			doc := outputDoc(t, output)
			assert.Equal(t, "Some of the values are invalid, nothing was saved", doc.Find("div.warning").Text())
			for name, value := range tc.expect {
				assert.Equal(t, value, doc.Find("input[name="+name+"]").AttrOr("value", ""), name)
			}
			for _, name := range tc.checked {
				assert.Equal(t, 1, doc.Find("input[name="+name+"][checked]").Length(), name)
			}
		}
		runManageTestCases(t, tc.callback, []manageCallbackTestCase{tc.manageCallbackTestCase})
	}
}

func spamSettings() map[string]string {
	return map[string]string{
		"reg_verification":       "0",
		"search_enable_captcha":  "0",
		"guests_require_captcha": "0",
		"posts_require_captcha":  "0",
		"pm_spam_settings":       "10,5,20",
		"qa_verification_number": "0",
	}
}

func spamForm() url.Values {
	return url.Values{
		"save":                   {"Save"},
		"max_pm_recipients":      {"10"},
		"pm_posts_verification":  {"5"},
		"pm_posts_per_hour":      {"20"},
		"qa_verification_number": {"1"},
		"question[new0]":         {"What is 2+2?"},
		"answers[new0]":          {"4"},
	}
}

const insertQuestionRE = `INSERT INTO antispam_questions \(question, answers, language\) VALUES\(\?,\?,\?\)`

func TestSpamSettingsSingleTransaction(t *testing.T) {
	securityArea := areas["securitysettings"]
	if !assert.NotNil(t, securityArea) {
		t.FailNow()
	}
	expectQuestionInsert := func(mock sqlmock.Sqlmock) {
		mock.ExpectPrepare(insertQuestionRE).ExpectExec().
			WithArgs("What is 2+2?", `["4"]`, "").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare(`SELECT COUNT\(\*\) FROM antispam_questions`).ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	}
	expectSettingsReload := func(mock sqlmock.Sqlmock) {
		rows := sqlmock.NewRows([]string{"variable", "value"})
		for key, val := range spamSettings() {
			rows.AddRow(key, val)
		}
		mock.ExpectPrepare(`SELECT variable, value FROM settings`).ExpectQuery().WillReturnRows(rows)
	}
	runManageTestCases(t, securityArea.callback, []manageCallbackTestCase{
		{
			desc:         "questions and settings are committed together",
			path:         "/manage/securitysettings?sa=spam",
			method:       http.MethodPost,
			form:         spamForm(),
			token:        "securitysettings",
			expectStatus: http.StatusSeeOther,
			prepareMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				fasql.SetTestSettings(spamSettings())
				mock.ExpectBegin()
				expectQuestionInsert(mock)
				mock.ExpectPrepare(`DELETE FROM settings WHERE variable = \?`).ExpectExec().
					WithArgs("qa_verification_number").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectPrepare(`INSERT INTO settings \(variable, value\) VALUES\(\?,\?\)`).ExpectExec().
					WithArgs("qa_verification_number", "1").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
				expectLogAction(mock, fasql.AdminLog, "settings_securitysettings")
			},
			validateOutput: func(t *testing.T, _ any, writer *httptest.ResponseRecorder, _ error) {
				assertRedirect(t, writer, "sa=spam", "saved=1")
				assert.Equal(t, "1", fasql.GetSetting("qa_verification_number"))
			},
		}, {
			desc:         "a failed question save rolls back",
			path:         "/manage/securitysettings?sa=spam",
			method:       http.MethodPost,
			form:         spamForm(),
			token:        "securitysettings",
			expectStatus: http.StatusOK,
			expectError:  true,
			prepareMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				fasql.SetTestSettings(spamSettings())
				mock.ExpectBegin()
				mock.ExpectPrepare(insertQuestionRE).ExpectExec().
					WillReturnError(errors.New("table is locked"))
				mock.ExpectRollback()
				expectSettingsReload(mock)
			},
			validateOutput: func(t *testing.T, _ any, _ *httptest.ResponseRecorder, err error) {
				assert.ErrorContains(t, err, "table is locked")
				assert.Equal(t, "0", fasql.GetSetting("qa_verification_number"))
			},
		}, {
			desc:         "a failed commit restores the cached settings",
			path:         "/manage/securitysettings?sa=spam",
			method:       http.MethodPost,
			form:         spamForm(),
			token:        "securitysettings",
			expectStatus: http.StatusOK,
			expectError:  true,
			prepareMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				fasql.SetTestSettings(spamSettings())
				mock.ExpectBegin()
				expectQuestionInsert(mock)
				mock.ExpectPrepare(`DELETE FROM settings WHERE variable = \?`).ExpectExec().
					WithArgs("qa_verification_number").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectPrepare(`INSERT INTO settings \(variable, value\) VALUES\(\?,\?\)`).ExpectExec().
					WithArgs("qa_verification_number", "1").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit().WillReturnError(errors.New("connection lost"))
				expectSettingsReload(mock)
			},
			validateOutput: func(t *testing.T, _ any, _ *httptest.ResponseRecorder, err error) {
				assert.ErrorContains(t, err, "connection lost")
				assert.Equal(t, "0", fasql.GetSetting("qa_verification_number"))
			},
		},
	})
}
