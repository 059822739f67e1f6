package fatemplates

import (
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fautil"
)

// DateTimeFormat is used for every timestamp shown on the manage pages
const DateTimeFormat = "Jan 02, 2006, 15:04:05"

var (
	ErrInvalidKey = errors.New("template map expects string keys")
	ErrInvalidMap = errors.New("invalid template map call")
)

var funcMap = template.FuncMap{
	"add": func(a, b int) int {
		return a + b
	},
	"subtract": func(a, b int) int {
		return a - b
	},
	"intToString": strconv.Itoa,
	"formatTimestamp": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(DateTimeFormat)
	},
	"formatDuration": func(d time.Duration) string {
		return strconv.FormatFloat(d.Seconds(), 'f', 4, 64) + "s"
	},
	"stripHTML": func(htmlStr any) string {
		return fautil.StripHTML(fmt.Sprint(htmlStr))
	},
	"truncate": fautil.Truncate,
	"isChecked": func(val string) bool {
		return val != "" && val != "0"
	},
	"join": strings.Join,
	"map": func(values ...any) (map[string]any, error) {
		dict := make(map[string]any)
		if len(values)%2 != 0 {
			return nil, ErrInvalidMap
		}
		for k := 0; k < len(values); k += 2 {
			key, ok := values[k].(string)
			if !ok {
				return nil, ErrInvalidKey
			}
			dict[key] = values[k+1]
		}
		return dict, nil
	},
	"webPath": config.WebPath,
	"forumName": func() string {
		return config.GetSiteConfig().ForumName
	},
}

// AddTemplateFuncs adds the functions in the given FuncMap (map[string]any, with "any" expected to be a function)
// to the map of functions available to templates. Templates must be reloaded to use them
func AddTemplateFuncs(funcs template.FuncMap) {
	for key, tFunc := range funcs {
		funcMap[key] = tFunc
	}
}
