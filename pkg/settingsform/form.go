package settingsform

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/forumkit/forumadmin/pkg/fasql"
)

var (
	ErrInvalidValues = errors.New("invalid values")
	ErrNoAdapter     = errors.New("settings form has no adapter")
)

// Values holds the parsed values of a submitted form. Permission vars are kept separately since they
// are stored in the permissions table
type Values struct {
	Settings    map[string]string
	Permissions map[string][]int
}

// Int returns the parsed setting as an int
func (v *Values) Int(name string) int {
	i, _ := strconv.Atoi(v.Settings[name])
	return i
}

// Bool returns true if the setting is a checked check var
func (v *Values) Bool(name string) bool {
	val := v.Settings[name]
	return val != "" && val != "0"
}

// Form is a settings page's list of config vars
type Form struct {
	Vars    []ConfigVar
	Adapter Adapter
	// Opts is used for saving permission vars
	Opts *fasql.RequestOptions
}

// New creates a form for the vars
func New(adapter Adapter, vars []ConfigVar) *Form {
	return &Form{Vars: vars, Adapter: adapter}
}

// Var returns the var with the given name, or nil if the form doesn't have it
func (f *Form) Var(name string) *ConfigVar {
	for v := range f.Vars {
		if f.Vars[v].Name == name && !f.Vars[v].IsDisplayOnly() {
			return &f.Vars[v]
		}
	}
	return nil
}

// Invalidate marks the var as invalid with the given message
func (f *Form) Invalidate(name string, message string) {
	if cv := f.Var(name); cv != nil {
		cv.Invalid = true
		cv.ErrorMessage = message
	}
}

// InvalidVars returns the names of vars marked invalid
func (f *Form) InvalidVars() []string {
	var names []string
	for _, cv := range f.Vars {
		if cv.Invalid {
			names = append(names, cv.Name)
		}
	}
	return names
}

func (f *Form) invalidError() error {
	names := f.InvalidVars()
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidValues, strings.Join(names, ", "))
}

// Prepare sets the current value of each var from the adapter. Values in overrides replace the stored
// values, for vars that are derived from another setting
func (f *Form) Prepare(overrides map[string]string) error {
	if f.Adapter == nil {
		return ErrNoAdapter
	}
	for v := range f.Vars {
		cv := &f.Vars[v]
		if cv.IsDisplayOnly() || cv.Type == TypeCallback {
			continue
		}
		if val, ok := overrides[cv.Name]; ok {
			cv.Value = val
			continue
		}
		switch cv.Type {
		case TypePermissions:
			if len(cv.Options) == 0 {
				for _, rank := range fasql.ConfigurableRanks {
					cv.Options = append(cv.Options, Option{Value: strconv.Itoa(rank), Label: fasql.RankTitle(rank)})
				}
			}
			var ranks []string
			for _, rank := range fasql.RanksAllowed(cv.Name) {
				ranks = append(ranks, strconv.Itoa(rank))
			}
			cv.Value = strings.Join(ranks, ",")
		case TypePassword:
			cv.Value = ""
		default:
			cv.Value = f.Adapter.Value(cv.Name)
			if cv.Value == "" && cv.Default != "" {
				cv.Value = cv.Default
			}
		}
	}
	return nil
}

// Parse reads every var from the submitted form. If any value is rejected, the var is marked invalid and
// an error wrapping ErrInvalidValues is returned. Password vars that weren't changed and select vars
// with unknown choices are left out of the returned values
func (f *Form) Parse(request *http.Request) (*Values, error) {
	if err := request.ParseForm(); err != nil {
		return nil, err
	}
	values := &Values{
		Settings:    map[string]string{},
		Permissions: map[string][]int{},
	}
	for v := range f.Vars {
		cv := &f.Vars[v]
		if cv.Disabled {
			continue
		}
		formVal := strings.TrimSpace(request.PostFormValue(cv.Name))
		switch cv.Type {
		case TypeTitle, TypeDesc, TypeCallback:
			continue
		case TypeCheck:
			if formVal != "" && formVal != "0" {
				values.Settings[cv.Name] = "1"
			} else {
				values.Settings[cv.Name] = "0"
			}
		case TypeInt:
			i, err := strconv.Atoi(formVal)
			if err != nil {
				i = 0
			}
			values.Settings[cv.Name] = strconv.Itoa(int(cv.clamp(float64(i))))
		case TypeFloat:
			fl, err := strconv.ParseFloat(formVal, 64)
			if err != nil {
				fl = 0
			}
			values.Settings[cv.Name] = strconv.FormatFloat(cv.clamp(fl), 'f', -1, 64)
		case TypeSelect:
			if cv.hasOption(formVal) {
				values.Settings[cv.Name] = formVal
			}
		case TypeMultiSelect:
			var selected []string
			for _, val := range request.PostForm[cv.Name] {
				if cv.hasOption(val) && !slices.Contains(selected, val) {
					selected = append(selected, val)
				}
			}
			values.Settings[cv.Name] = strings.Join(selected, ",")
		case TypeBBC:
			values.Settings[cv.Name] = parseBBCVar(cv, request)
		case TypePermissions:
			values.Permissions[cv.Name] = parsePermissionsVar(cv, request)
		case TypePassword:
			confirm := strings.TrimSpace(request.PostFormValue(cv.Name + "_confirm"))
			if formVal != "" && formVal == confirm {
				values.Settings[cv.Name] = formVal
			}
		case TypeText, TypeLargeText:
			if cv.Type == TypeText {
				formVal = strings.ReplaceAll(formVal, "\n", "")
			}
			if cv.MaxLength > 0 && len([]rune(formVal)) > cv.MaxLength {
				formVal = string([]rune(formVal)[:cv.MaxLength])
			}
			if err := ValidateMask(cv.Mask, formVal); err != nil {
				cv.Invalid = true
				cv.ErrorMessage = err.Error()
				continue
			}
			values.Settings[cv.Name] = formVal
		default:
			values.Settings[cv.Name] = formVal
		}
	}
	return values, f.invalidError()
}

func parseBBCVar(cv *ConfigVar, request *http.Request) string {
	if request.PostFormValue(cv.Name+"_all") != "" {
		return ""
	}
	enabled := request.PostForm[cv.Name+"_enabledTags"]
	var disabled []string
	for _, opt := range cv.Options {
		if !slices.Contains(enabled, opt.Value) {
			disabled = append(disabled, opt.Value)
		}
	}
	slices.Sort(disabled)
	return strings.Join(disabled, ",")
}

func parsePermissionsVar(cv *ConfigVar, request *http.Request) []int {
	var ranks []int
	for _, val := range request.PostForm[cv.Name] {
		rank, err := strconv.Atoi(val)
		if err != nil || !slices.Contains(fasql.ConfigurableRanks, rank) || slices.Contains(ranks, rank) {
			continue
		}
		ranks = append(ranks, rank)
	}
	slices.Sort(ranks)
	return ranks
}

// Persist saves the values that differ from the currently stored ones. It does nothing if a var is
// marked invalid
func (f *Form) Persist(values *Values) error {
	if err := f.invalidError(); err != nil {
		return err
	}
	if f.Adapter == nil {
		return ErrNoAdapter
	}
	changed := map[string]string{}
	for name, val := range values.Settings {
		if f.Adapter.Value(name) != val {
			changed[name] = val
		}
	}
	if len(changed) > 0 {
		if err := f.Adapter.Save(changed); err != nil {
			return err
		}
	}
	for permission, ranks := range values.Permissions {
		if slices.Equal(fasql.RanksAllowed(permission), ranks) {
			continue
		}
		if err := fasql.SetPermissionRanks(f.Opts, permission, ranks); err != nil {
			return err
		}
	}
	return nil
}

// Save parses the submitted form and persists the values if they are all valid
func (f *Form) Save(request *http.Request) (*Values, error) {
	values, err := f.Parse(request)
	if err != nil {
		return values, err
	}
	return values, f.Persist(values)
}
