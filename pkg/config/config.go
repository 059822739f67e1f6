package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forumkit/forumadmin/pkg/fautil"
)

const (
	DefaultSQLTimeout            = 15
	DefaultSQLMaxConns           = 10
	DefaultSQLConnMaxLifetimeMin = 3
	DefaultItemsPerPage          = 30
)

var (
	cfg     *Config
	cfgPath string

	ErrNoConfig = errors.New(ConfigNotFoundInPathsMessage)
)

// Config stores the values read from and written to forumadmin.json
type Config struct {
	SystemCriticalConfig
	SiteConfig

	jsonLocation string
	testing      bool
}

// ValidateValues checks the configuration for invalid values and fills in missing values that have
// a default. It returns an *InvalidValueError if a field is invalid
func (c *Config) ValidateValues() error {
	if c.Port < 0 || c.Port > 65535 {
		return &InvalidValueError{Field: "Port", Value: c.Port, Details: "must be between 0 and 65535"}
	}
	if c.Port == 0 {
		c.Port = 80
	}

	switch c.DBtype {
	case "postgresql":
		c.DBtype = "postgres"
	case "mysql", "postgres", "sqlite3":
	case "":
		return &InvalidValueError{Field: "DBtype", Value: c.DBtype, Details: "must be set"}
	default:
		return &InvalidValueError{Field: "DBtype", Value: c.DBtype, Details: "currently supported values: mysql, postgres, sqlite3"}
	}
	if c.DBTimeoutSeconds < 1 {
		c.DBTimeoutSeconds = DefaultSQLTimeout
	}
	if c.DBMaxOpenConnections < 1 {
		c.DBMaxOpenConnections = DefaultSQLMaxConns
	}
	if c.DBMaxIdleConnections < 1 {
		c.DBMaxIdleConnections = DefaultSQLMaxConns
	}
	if c.DBConnMaxLifetimeMin < 1 {
		c.DBConnMaxLifetimeMin = DefaultSQLConnMaxLifetimeMin
	}

	if c.WebRoot == "" {
		c.WebRoot = "/"
	}
	if c.WebRoot[0] != '/' {
		c.WebRoot = "/" + c.WebRoot
	}
	if !strings.HasSuffix(c.WebRoot, "/") {
		c.WebRoot += "/"
	}

	if c.CookieSecret == "" {
		return &InvalidValueError{Field: "CookieSecret", Value: c.CookieSecret, Details: "must be set to a random string"}
	}
	if len(c.CookieSecret) < 16 {
		return &InvalidValueError{Field: "CookieSecret", Value: "(hidden)", Details: "must be at least 16 characters long"}
	}

	if c.StaffSessionDuration == "" {
		c.StaffSessionDuration = defaultConfig.StaffSessionDuration
	}
	if _, err := fautil.ParseDuration(c.StaffSessionDuration); err != nil {
		return &InvalidValueError{Field: "StaffSessionDuration", Value: c.StaffSessionDuration, Details: err.Error()}
	}

	if c.ItemsPerPage < 1 {
		c.ItemsPerPage = DefaultItemsPerPage
	}
	if c.SettingsFile == "" {
		c.SettingsFile = "settings.json"
	}
	return nil
}

// Write saves the configuration as indented JSON to the location it was loaded from
func (c *Config) Write() error {
	str, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return err
	}
	if c.testing {
		// don't try to write anything if we're doing a test
		return nil
	}
	if c.jsonLocation == "" {
		return ErrNoConfig
	}
	return os.WriteFile(c.jsonLocation, str, NormalFileMode)
}

// Location returns the path the configuration was loaded from
func (c *Config) Location() string {
	return c.jsonLocation
}

/*
SQLConfig contains the database connection settings. On startup, the configured driver
is used to connect and the tables are provisioned if they don't exist
*/
type SQLConfig struct {
	// DBtype is the type of SQL database to use. Currently supported values are "mysql", "postgres", and "sqlite3"
	DBtype string

	// DBhost is the database server address (e.g. 127.0.0.1:3306), or the database file path for sqlite3
	DBhost string

	DBname     string
	DBusername string
	DBpassword string

	// DBprefix is prepended to the name of every table
	DBprefix string

	// DBTimeoutSeconds sets the timeout for SQL queries in seconds, 0 means the default
	// Default: 15
	DBTimeoutSeconds int

	// DBMaxOpenConnections is the maximum number of open connections to the database
	// Default: 10
	DBMaxOpenConnections int

	// DBMaxIdleConnections is the maximum number of idle connections to the database
	// Default: 10
	DBMaxIdleConnections int

	// DBConnMaxLifetimeMin is the maximum lifetime of a connection in minutes
	// Default: 3
	DBConnMaxLifetimeMin int
}

// SystemCriticalConfig contains configuration options that are extremely important, and fucking with them while
// the server is running could have site breaking consequences. It should only be changed by modifying the
// configuration file and restarting the server.
type SystemCriticalConfig struct {
	ListenAddress string
	Port          int
	UseFastCGI    bool

	// DocumentRoot is the directory static files (CSS, JavaScript, images) are served from
	DocumentRoot string
	// TemplateDir is checked for template overrides before the embedded templates are used
	TemplateDir string
	LogDir      string
	LanguageDir string
	EmojiDir    string
	AvatarDir   string

	// SourceDir restricts which files the error log's file viewer may show
	SourceDir string

	// SettingsFile is the JSON file holding file-backed forum settings (default language, maintenance mode, etc)
	SettingsFile string

	SiteHost string
	WebRoot  string

	// CookieSecret signs the form tokens used to prevent cross-site request forgery
	CookieSecret string

	SQLConfig

	// DebugMode enables query recording and the query viewer
	DebugMode bool
	Verbose   bool

	Plugins        []string
	PluginSettings map[string]any
}

// SiteConfig contains settings that can be changed while the server is running
type SiteConfig struct {
	ForumName string

	MinifyHTML bool
	MinifyJS   bool

	// StaffSessionDuration is how long a staff login is valid, as a duration string like "3mo" or "12h"
	// Default: 3mo
	StaffSessionDuration string

	// ItemsPerPage is used by list views that don't set their own page size
	// Default: 30
	ItemsPerPage int

	DefaultLanguage string
}

// GetSystemCriticalConfig returns system-critical configuration options like listening IP
func GetSystemCriticalConfig() *SystemCriticalConfig {
	setDefaultCfgIfNotSet()
	return &cfg.SystemCriticalConfig
}

// GetSQLConfig returns SQL configuration info
func GetSQLConfig() SQLConfig {
	setDefaultCfgIfNotSet()
	return cfg.SQLConfig
}

// GetSiteConfig returns the global site configuration
func GetSiteConfig() *SiteConfig {
	setDefaultCfgIfNotSet()
	return &cfg.SiteConfig
}

// GetConfig returns the full configuration
func GetConfig() *Config {
	setDefaultCfgIfNotSet()
	return cfg
}

// LoadConfig reads and validates the configuration file at cfgFile, or the first file found in
// StandardConfigSearchPaths if cfgFile is empty
func LoadConfig(cfgFile string) error {
	if cfgFile == "" {
		cfgFile = fautil.FindResource(StandardConfigSearchPaths...)
	}
	if cfgFile == "" {
		return ErrNoConfig
	}

	ba, err := os.ReadFile(cfgFile)
	if err != nil {
		return err
	}
	newCfg := defaultConfig
	if err = json.Unmarshal(ba, &newCfg); err != nil {
		return fmt.Errorf("unable to parse %s: %w", cfgFile, err)
	}
	if err = newCfg.ValidateValues(); err != nil {
		return err
	}
	newCfg.jsonLocation = cfgFile
	if newCfg.LogDir != "" {
		if err = os.MkdirAll(newCfg.LogDir, DirFileMode); err != nil {
			return err
		}
	}
	if !filepath.IsAbs(newCfg.SettingsFile) {
		newCfg.SettingsFile = filepath.Join(filepath.Dir(cfgFile), newCfg.SettingsFile)
	}
	cfg = &newCfg
	cfgPath = cfgFile
	return nil
}
