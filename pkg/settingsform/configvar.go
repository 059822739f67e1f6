// Package settingsform describes admin settings pages as lists of config vars and handles reading,
// validating, and saving their submitted values
package settingsform

import (
	"slices"
	"strconv"
	"strings"
)

// VarType determines how a config var is rendered and how its submitted value is parsed
type VarType string

const (
	TypeCheck       VarType = "check"
	TypeInt         VarType = "int"
	TypeFloat       VarType = "float"
	TypeText        VarType = "text"
	TypeLargeText   VarType = "large_text"
	TypePassword    VarType = "password"
	TypeSelect      VarType = "select"
	TypeMultiSelect VarType = "multi_select"
	// TypeBBC is a checklist of BBC tags. The stored value is the CSV of unchecked (disabled) tags
	TypeBBC VarType = "bbc"
	// TypePermissions is a checklist of the ranks that have the permission named by the var
	TypePermissions VarType = "permissions"
	TypeTitle       VarType = "title"
	TypeDesc        VarType = "desc"
	// TypeCallback vars are rendered and saved by the page that uses them
	TypeCallback VarType = "callback"
)

// Option is a choice of a select, multi_select, bbc, or permissions var
type Option struct {
	Value string
	Label string
}

// ConfigVar describes a setting shown on a settings page
type ConfigVar struct {
	Type      VarType
	Name      string
	Label     string
	Help      string
	Subtext   string
	Postinput string
	Options   []Option

	Min       *float64
	Max       *float64
	Step      float64
	Size      int
	MaxLength int
	// Mask validates text values. See ValidateMask
	Mask     string
	Disabled bool
	Default  string

	// Value is the current value, set by Form.Prepare
	Value string
	// Invalid is set if the submitted value was rejected, with ErrorMessage explaining why
	Invalid      bool
	ErrorMessage string
}

// Limit returns a pointer to n for use as a var's Min or Max
func Limit(n float64) *float64 {
	return &n
}

// IsDisplayOnly returns true if the var has no value of its own
func (cv *ConfigVar) IsDisplayOnly() bool {
	return cv.Type == TypeTitle || cv.Type == TypeDesc
}

// Checked returns true if a check var is enabled
func (cv *ConfigVar) Checked() bool {
	return cv.Value != "" && cv.Value != "0"
}

// Selected returns true if the option value is selected. For bbc vars this means the tag is enabled
func (cv *ConfigVar) Selected(value string) bool {
	switch cv.Type {
	case TypeMultiSelect, TypePermissions:
		return slices.Contains(SplitCSV(cv.Value), value)
	case TypeBBC:
		return !slices.Contains(SplitCSV(cv.Value), value)
	}
	return cv.Value == value
}

// HTMLType returns the type attribute of the var's input element
func (cv *ConfigVar) HTMLType() string {
	switch cv.Type {
	case TypeInt, TypeFloat:
		return "number"
	case TypePassword:
		return "password"
	case TypeCheck:
		return "checkbox"
	}
	return "text"
}

// MinString returns the min attribute of a number input, or an empty string if there is no minimum
func (cv *ConfigVar) MinString() string {
	if cv.Min == nil {
		return ""
	}
	return strconv.FormatFloat(*cv.Min, 'f', -1, 64)
}

// MaxString returns the max attribute of a number input, or an empty string if there is no maximum
func (cv *ConfigVar) MaxString() string {
	if cv.Max == nil {
		return ""
	}
	return strconv.FormatFloat(*cv.Max, 'f', -1, 64)
}

func (cv *ConfigVar) clamp(n float64) float64 {
	if cv.Min != nil && n < *cv.Min {
		n = *cv.Min
	}
	if cv.Max != nil && n > *cv.Max {
		n = *cv.Max
	}
	return n
}

func (cv *ConfigVar) hasOption(value string) bool {
	for _, opt := range cv.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// SplitCSV splits a comma separated list, dropping empty items
func SplitCSV(csv string) []string {
	var items []string
	for _, item := range strings.Split(csv, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
