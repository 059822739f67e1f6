package settingsform

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
)

type memoryAdapter struct {
	values  map[string]string
	saved   map[string]string
	saveErr error
}

func (a *memoryAdapter) Value(name string) string {
	return a.values[name]
}

func (a *memoryAdapter) Save(values map[string]string) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved = values
	for k, v := range values {
		a.values[k] = v
	}
	return nil
}

func testVars() []ConfigVar {
	return []ConfigVar{
		{Type: TypeTitle, Label: "Posting"},
		{Type: TypeCheck, Name: "enableBBC", Label: "Enable BBC"},
		{Type: TypeInt, Name: "spamWaitTime", Label: "Wait time", Min: Limit(0), Max: Limit(300)},
		{Type: TypeFloat, Name: "ratio", Label: "Ratio", Min: Limit(0), Step: 0.5},
		{Type: TypeSelect, Name: "pollMode", Options: []Option{{"0", "Disabled"}, {"1", "Enabled"}, {"2", "As topics"}}},
		{Type: TypeMultiSelect, Name: "boards", Options: []Option{{"1", "General"}, {"2", "Off topic"}, {"3", "Help"}}},
		{Type: TypeText, Name: "editor_toolbar", Mask: "nohtml", MaxLength: 40},
		{Type: TypeText, Name: "contact_email", Mask: "email"},
		{Type: TypePassword, Name: "smtp_password"},
		{Type: TypeBBC, Name: "disabledBBC", Options: []Option{{"b", "b"}, {"i", "i"}, {"url", "url"}, {"code", "code"}}},
		{Type: TypeCallback, Name: "questions"},
		{Type: TypeText, Name: "locked_setting", Disabled: true},
	}
}

func postRequest(form url.Values) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/manage/postsettings", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return request
}

func TestPrepare(t *testing.T) {
	adapter := &memoryAdapter{values: map[string]string{
		"enableBBC":     "1",
		"spamWaitTime":  "5",
		"disabledBBC":   "code,url",
		"smtp_password": "hunter2",
	}}
	form := New(adapter, testVars())
	form.Vars[6].Default = "b,i,|,url"
	if !assert.NoError(t, form.Prepare(map[string]string{"pollMode": "2"})) {
		t.FailNow()
	}

	expect := testVars()
	expect[1].Value = "1"
	expect[2].Value = "5"
	expect[4].Value = "2"
	expect[6].Default = "b,i,|,url"
	expect[6].Value = "b,i,|,url"
	expect[9].Value = "code,url"
	if diff := cmp.Diff(expect, form.Vars, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("unexpected vars after Prepare (-want +got):\n%s", diff)
	}
	assert.Empty(t, form.Var("smtp_password").Value, "passwords should never be sent back to the form")
	assert.True(t, form.Var("enableBBC").Checked())
	assert.True(t, form.Var("disabledBBC").Selected("b"))
	assert.False(t, form.Var("disabledBBC").Selected("url"))
	assert.Nil(t, form.Var("Posting"))

	assert.ErrorIs(t, New(nil, testVars()).Prepare(nil), ErrNoAdapter)
}

func TestParse(t *testing.T) {
	testCases := []struct {
		desc          string
		form          url.Values
		expect        map[string]string
		expectInvalid []string
	}{
		{
			desc: "valid values",
			form: url.Values{
				"enableBBC":               {"1"},
				"spamWaitTime":            {"30"},
				"ratio":                   {"1.5"},
				"pollMode":                {"1"},
				"boards":                  {"3", "1", "3", "9"},
				"editor_toolbar":          {"  b,i,|,url  "},
				"contact_email":           {"admin@example.com"},
				"smtp_password":           {"newpass"},
				"smtp_password_confirm":   {"newpass"},
				"disabledBBC_enabledTags": {"url", "b"},
				"locked_setting":          {"ignored"},
			},
			expect: map[string]string{
				"enableBBC":      "1",
				"spamWaitTime":   "30",
				"ratio":          "1.5",
				"pollMode":       "1",
				"boards":         "3,1",
				"editor_toolbar": "b,i,|,url",
				"contact_email":  "admin@example.com",
				"smtp_password":  "newpass",
				"disabledBBC":    "code,i",
			},
		},
		{
			desc: "missing and out of range values",
			form: url.Values{
				"spamWaitTime":            {"9000"},
				"ratio":                   {"-2"},
				"pollMode":                {"7"},
				"smtp_password":           {"newpass"},
				"smtp_password_confirm":   {"typo"},
				"disabledBBC_all":         {"1"},
				"disabledBBC_enabledTags": {"b"},
			},
			expect: map[string]string{
				"enableBBC":      "0",
				"spamWaitTime":   "300",
				"ratio":          "0",
				"boards":         "",
				"editor_toolbar": "",
				"contact_email":  "",
				"disabledBBC":    "",
			},
		},
		{
			desc: "invalid int becomes 0",
			form: url.Values{"spamWaitTime": {"thirty"}},
			expect: map[string]string{
				"enableBBC":      "0",
				"spamWaitTime":   "0",
				"ratio":          "0",
				"boards":         "",
				"editor_toolbar": "",
				"contact_email":  "",
				"disabledBBC":    "b,code,i,url",
			},
		},
		{
			desc: "mask failures",
			form: url.Values{
				"editor_toolbar": {"<script>"},
				"contact_email":  {"not an email"},
			},
			expect: map[string]string{
				"enableBBC":    "0",
				"spamWaitTime": "0",
				"ratio":        "0",
				"boards":       "",
				"disabledBBC":  "b,code,i,url",
			},
			expectInvalid: []string{"editor_toolbar", "contact_email"},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			form := New(&memoryAdapter{values: map[string]string{}}, testVars())
			values, err := form.Parse(postRequest(tC.form))
			if tC.expectInvalid != nil {
				assert.ErrorIs(t, err, ErrInvalidValues)
				assert.Equal(t, tC.expectInvalid, form.InvalidVars())
			} else if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, tC.expect, values.Settings)
		})
	}
}

func TestPersist(t *testing.T) {
	adapter := &memoryAdapter{values: map[string]string{
		"enableBBC":    "1",
		"spamWaitTime": "5",
	}}
	form := New(adapter, testVars())
	values, err := form.Parse(postRequest(url.Values{
		"enableBBC":    {"on"},
		"spamWaitTime": {"10"},
		"pollMode":     {"2"},
	}))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.True(t, values.Bool("enableBBC"))
	assert.Equal(t, 10, values.Int("spamWaitTime"))
	values.Settings["derived_setting"] = "a,b"
	if !assert.NoError(t, form.Persist(values)) {
		t.FailNow()
	}
	_, unchangedSaved := adapter.saved["enableBBC"]
	assert.False(t, unchangedSaved, "unchanged values should not be saved")
	assert.Equal(t, "10", adapter.saved["spamWaitTime"])
	assert.Equal(t, "2", adapter.saved["pollMode"])
	assert.Equal(t, "a,b", adapter.saved["derived_setting"])

	saveErr := errors.New("disk full")
	adapter.saveErr = saveErr
	values.Settings["spamWaitTime"] = "11"
	assert.ErrorIs(t, form.Persist(values), saveErr)
}

func TestSaveInvalidDoesNotPersist(t *testing.T) {
	adapter := &memoryAdapter{values: map[string]string{}}
	form := New(adapter, testVars())
	_, err := form.Save(postRequest(url.Values{"spamWaitTime": {"60"}, "contact_email": {"nope"}}))
	assert.ErrorIs(t, err, ErrInvalidValues)
	assert.Nil(t, adapter.saved)
	assert.True(t, form.Var("contact_email").Invalid)
	assert.NotEmpty(t, form.Var("contact_email").ErrorMessage)
}

func TestPermissionsVar(t *testing.T) {
	config.SetTestDBConfig("mysql", "localhost", "forumadmin", "forumadmin", "", "")
	db, mock, err := sqlmock.New()
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if !assert.NoError(t, fasql.SetTestingDB("mysql", "forumadmin", "", db)) {
		t.FailNow()
	}
	fasql.ResetPermissions()
	defer fasql.ResetPermissions()

	form := New(&memoryAdapter{values: map[string]string{}}, []ConfigVar{
		{Type: TypePermissions, Name: "calendar_post", Label: "Post events"},
	})
	if !assert.NoError(t, form.Prepare(nil)) {
		t.FailNow()
	}
	cv := form.Var("calendar_post")
	assert.Equal(t, "1,2", cv.Value)
	assert.Len(t, cv.Options, len(fasql.ConfigurableRanks))
	assert.True(t, cv.Selected("2"))
	assert.False(t, cv.Selected("0"))

	mock.ExpectBegin()
	mock.ExpectPrepare(`DELETE FROM permissions WHERE permission = \?`).
		ExpectExec().WithArgs("calendar_post").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, row := range [][2]int{{0, 1}, {1, 0}, {2, 1}} {
		mock.ExpectPrepare(`INSERT INTO permissions`).
			ExpectExec().WithArgs(row[0], "calendar_post", row[1]).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	_, err = form.Save(postRequest(url.Values{"calendar_post": {"2", "0", "3", "x"}}))
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 2}, fasql.RanksAllowed("calendar_post"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileAdapter(t *testing.T) {
	config.InitTestConfig()
	form := New(FileAdapter{}, []ConfigVar{
		{Type: TypeCheck, Name: "maintenance"},
		{Type: TypeText, Name: "mtitle", Mask: "nohtml"},
	})
	_, err := form.Save(postRequest(url.Values{"maintenance": {"1"}, "mtitle": {"Back soon"}}))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.True(t, config.GetFileSettingBool("maintenance"))
	assert.Equal(t, "Back soon", config.GetFileSetting("mtitle"))
}
