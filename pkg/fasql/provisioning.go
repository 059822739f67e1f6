package fasql

import (
	_ "embed"
	"regexp"
	"strings"
)

var (
	//go:embed initdb.sql
	initDBSQL string

	sqlCommentRE = regexp.MustCompile(`--.*\n?`)

	serialPKTypes = map[string]string{
		"mysql":    "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
		"postgres": "BIGSERIAL PRIMARY KEY",
		"sqlite3":  "INTEGER PRIMARY KEY AUTOINCREMENT",
	}
)

// SplitSQLStatements removes comments from the SQL script and splits it into individual statements
func SplitSQLStatements(script string) []string {
	script = sqlCommentRE.ReplaceAllString(script, " ")
	var statements []string
	for _, statement := range strings.Split(script, ";") {
		statement = strings.TrimSpace(statement)
		if statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

// ProvisionTables creates any of the admin panel's tables that don't already exist
func ProvisionTables(opts *RequestOptions) error {
	if fadb == nil {
		return ErrNotConnected
	}
	serialPK, ok := serialPKTypes[fadb.driver]
	if !ok {
		return ErrUnsupportedDB
	}
	script := strings.ReplaceAll(initDBSQL, "SERIALPK", serialPK)
	for _, statement := range SplitSQLStatements(script) {
		if _, err := Exec(opts, statement); err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaultSettings inserts the default value of every setting in DefaultSettings that isn't in the settings table yet
func SeedDefaultSettings(opts *RequestOptions) error {
	existing, err := loadSettingsRows(opts)
	if err != nil {
		return err
	}
	missing := map[string]string{}
	for k, v := range DefaultSettings {
		if _, ok := existing[k]; !ok {
			missing[k] = v
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return UpdateSettings(opts, missing)
}
