package config

import (
	"fmt"
	"io/fs"
	"path"
)

const (
	DirFileMode    fs.FileMode = 0775
	NormalFileMode fs.FileMode = 0664
)

// InvalidValueError represents a Config field with a bad value
type InvalidValueError struct {
	Field   string
	Value   any
	Details string
}

func (iv *InvalidValueError) Error() string {
	str := fmt.Sprintf("invalid %s value: %#v", iv.Field, iv.Value)
	if iv.Details != "" {
		str += " - " + iv.Details
	}
	return str
}

// WebPath returns an absolute path, starting at the web root (which is "/" by default)
func WebPath(part ...string) string {
	setDefaultCfgIfNotSet()
	return path.Join(cfg.WebRoot, path.Join(part...))
}

// DebugEnabled returns true if query recording should be enabled, either from the
// system critical configuration or the db_show_debug file setting
func DebugEnabled() bool {
	setDefaultCfgIfNotSet()
	return cfg.DebugMode || GetFileSettingBool("db_show_debug")
}
