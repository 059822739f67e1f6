package fasql

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/forumkit/forumadmin/pkg/fautil/testutil"
)

var (
	settingsCache map[string]string
	settingsMutex sync.RWMutex

	// DefaultSettings holds the value of database-backed settings that haven't been saved yet
	DefaultSettings = map[string]string{
		"enableErrorLogging":  "1",
		"modlog_enabled":      "1",
		"badbehavior_enabled": "0",
		"pruningOptions":      "30,180,180,180,30,7,0",
		"defaultMaxListItems": "30",

		"enableBBC":      "1",
		"autoLinkUrls":   "1",
		"enablePostHTML": "0",
		"disabledBBC":    "",

		"cal_enabled":        "0",
		"cal_days_for_index": "7",
		"cal_showholidays":   "1",
		"cal_showbdays":      "1",
		"cal_showevents":     "1",
		"cal_minyear":        "2008",
		"cal_maxyear":        "2030",
		"cal_maxspan":        "7",

		"max_messageLength":  "20000",
		"spamWaitTime":       "5",
		"edit_wait_time":     "90",
		"edit_disable_time":  "0",
		"preview_characters": "128",
		"defaultMaxTopics":   "20",
		"defaultMaxMessages": "15",
		"hotTopicPosts":      "15",
		"hotTopicVeryPosts":  "25",
		"oldTopicDays":       "120",
		"pollMode":           "1",

		"admin_session_lifetime": "10",
		"frame_security":         "SAMEORIGIN",
		"pm_spam_settings":       "10,5,20",
		"warning_settings":       "1,20,0",
		"warning_watch":          "10",
		"warning_moderate":       "35",
		"warning_mute":           "60",
		"posts_require_captcha":  "0",

		"avatar_max_width_external":  "65",
		"avatar_max_height_external": "65",
		"avatar_max_width_upload":    "65",
		"avatar_max_height_upload":   "65",
		"avatar_action_too_large":    "option_css_resize",
		"gravatar_rating":            "g",

		"emoji_enabled":      "1",
		"emoji_selection":    "noto-emoji",
		"emoji_max_per_post": "0",

		"userLanguage": "1",
	}
)

func resetSettingsCache() {
	settingsMutex.Lock()
	settingsCache = nil
	settingsMutex.Unlock()
}

func loadSettingsRows(opts *RequestOptions) (map[string]string, error) {
	rows, err := Query(opts, "SELECT variable, value FROM DBPREFIXsettings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := map[string]string{}
	for rows.Next() {
		var variable, value string
		if err = rows.Scan(&variable, &value); err != nil {
			return nil, err
		}
		values[variable] = value
	}
	return values, rows.Err()
}

// SetTestSettings replaces the in-memory copy of the settings table. It will panic if it is not run in a
// test environment
func SetTestSettings(values map[string]string) {
	testutil.PanicIfNotTest()
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsCache = make(map[string]string, len(values))
	for k, v := range values {
		settingsCache[k] = v
	}
}

// LoadSettings reads every row of the settings table into memory
func LoadSettings(opts *RequestOptions) error {
	values, err := loadSettingsRows(opts)
	if err != nil {
		return err
	}
	settingsMutex.Lock()
	settingsCache = values
	settingsMutex.Unlock()
	return nil
}

// GetSetting returns the value of a database-backed setting, its default value if it hasn't
// been saved, or an empty string if it has neither
func GetSetting(key string) string {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	if val, ok := settingsCache[key]; ok {
		return val
	}
	return DefaultSettings[key]
}

// GetSettingInt returns the setting parsed as an int, or 0 if it isn't a valid integer
func GetSettingInt(key string) int {
	val, _ := strconv.Atoi(strings.TrimSpace(GetSetting(key)))
	return val
}

// GetSettingBool returns true if the setting is a non-zero number or "true"
func GetSettingBool(key string) bool {
	val := GetSetting(key)
	if val == "true" {
		return true
	}
	i, err := strconv.Atoi(val)
	return err == nil && i != 0
}

// GetSettings returns the values of the given settings
func GetSettings(keys ...string) map[string]string {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		values[key] = GetSetting(key)
	}
	return values
}

// UpdateSettings saves the given settings to the settings table, replacing existing rows, and updates
// the in-memory copy once they have been written. If opts has a transaction it is used, otherwise
// a new one is created and committed
func UpdateSettings(opts *RequestOptions, values map[string]string) (err error) {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tx = optsTx(opts)
	ownTx := tx == nil
	if ownTx {
		if tx, err = BeginContextTx(optsContext(opts)); err != nil {
			return err
		}
		defer tx.Rollback()
	}
	txOpts := optsWithTx(opts, tx)
	for _, key := range keys {
		if _, err = Exec(txOpts, "DELETE FROM DBPREFIXsettings WHERE variable = ?", key); err != nil {
			return err
		}
		if _, err = Exec(txOpts, "INSERT INTO DBPREFIXsettings (variable, value) VALUES(?,?)", key, values[key]); err != nil {
			return err
		}
	}
	if ownTx {
		if err = tx.Commit(); err != nil {
			return err
		}
	}

	settingsMutex.Lock()
	if settingsCache == nil {
		settingsCache = map[string]string{}
	}
	for k, v := range values {
		settingsCache[k] = v
	}
	settingsMutex.Unlock()
	return nil
}
