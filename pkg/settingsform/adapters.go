package settingsform

import (
	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
)

// Adapter reads and writes the values of a settings form
type Adapter interface {
	Value(name string) string
	Save(values map[string]string) error
}

// DBAdapter stores settings in the settings table
type DBAdapter struct {
	Opts *fasql.RequestOptions
}

func (a *DBAdapter) Value(name string) string {
	return fasql.GetSetting(name)
}

func (a *DBAdapter) Save(values map[string]string) error {
	return fasql.UpdateSettings(a.Opts, values)
}

// FileAdapter stores settings in the JSON settings file
type FileAdapter struct{}

func (FileAdapter) Value(name string) string {
	return config.GetFileSetting(name)
}

func (FileAdapter) Save(values map[string]string) error {
	return config.SaveFileSettings(values)
}
