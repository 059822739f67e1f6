package config

import (
	"github.com/forumkit/forumadmin/pkg/fautil/testutil"
)

const testCookieSecret = "0123456789abcdef0123456789abcdef"

func setDefaultCfgIfNotSet() {
	if cfg == nil {
		newCfg := defaultConfig
		cfg = &newCfg
	}
}

// InitTestConfig sets up a default configuration for tests, where a config file wouldn't be loaded.
// It will panic if it is not run in a test environment
func InitTestConfig() {
	testutil.PanicIfNotTest()
	newCfg := defaultConfig
	newCfg.testing = true
	newCfg.CookieSecret = testCookieSecret
	newCfg.DBtype = "sqlite3"
	newCfg.DBhost = "./testdata/forumadmintest.db"
	newCfg.DBname = "forumadmin"
	newCfg.DBusername = "forumadmin"
	newCfg.SiteHost = "127.0.0.1"
	newCfg.Verbose = true
	newCfg.SettingsFile = ""
	cfg = &newCfg
	resetFileSettings()
}

// SetTestTemplateDir sets the directory for templates, used only in testing. If it is not run via `go test`, it will panic.
func SetTestTemplateDir(dir string) {
	testutil.PanicIfNotTest()
	setDefaultCfgIfNotSet()
	cfg.TemplateDir = dir
}

// SetTestDBConfig sets up the database configuration for a testing environment. If it is not run via `go test`, it will panic
func SetTestDBConfig(dbType string, dbHost string, dbName string, dbUsername string, dbPassword string, dbPrefix string) {
	testutil.PanicIfNotTest()
	setDefaultCfgIfNotSet()

	cfg.DBtype = dbType
	cfg.DBhost = dbHost
	cfg.DBname = dbName
	cfg.DBusername = dbUsername
	cfg.DBpassword = dbPassword
	cfg.DBprefix = dbPrefix
}

// SetSystemCriticalConfig sets system critical configuration values in testing. It will panic if it is not run in a
// test environment
func SetSystemCriticalConfig(systemCritical *SystemCriticalConfig) {
	testutil.PanicIfNotTest()
	setDefaultCfgIfNotSet()
	cfg.SystemCriticalConfig = *systemCritical
}

// SetSiteConfig sets the site configuration values in testing. It will panic if it is not run in a test environment
func SetSiteConfig(siteConfig *SiteConfig) {
	testutil.PanicIfNotTest()
	setDefaultCfgIfNotSet()
	cfg.SiteConfig = *siteConfig
}

// SetTestSettingsFile sets the path of the settings file. It will panic if it is not run in a test environment
func SetTestSettingsFile(fp string) {
	testutil.PanicIfNotTest()
	setDefaultCfgIfNotSet()
	cfg.SettingsFile = fp
}

// SetTestFileSettings replaces the in-memory file settings without reading or writing the settings file.
// It will panic if it is not run in a test environment
func SetTestFileSettings(values map[string]string) {
	testutil.PanicIfNotTest()
	fileSettingsMutex.Lock()
	defer fileSettingsMutex.Unlock()
	fileSettings = make(map[string]string, len(values))
	for k, v := range values {
		fileSettings[k] = v
	}
}
