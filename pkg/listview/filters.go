package listview

import (
	"net/http"
	"strings"
)

const (
	OpEquals = "="
	OpLike   = "LIKE"

	likeEscapeChar = "!"
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// FilterColumn is a column that a list can be filtered by. SQL is the column expression. If it contains
// a ? placeholder it is used as the whole condition, for example a subquery
type FilterColumn struct {
	Name  string
	SQL   string
	Label string
	Op    string
}

// Filter is a requested filter value
type Filter struct {
	Column string
	Value  string
}

// EscapeLike escapes the LIKE wildcards in str so that it is matched literally. The resulting pattern
// must be used with ESCAPE '!'
func EscapeLike(str string) string {
	return likeEscaper.Replace(str)
}

// LikeContains returns a LIKE pattern matching values that contain str
func LikeContains(str string) string {
	return "%" + EscapeLike(str) + "%"
}

func findColumn(name string, whitelist []FilterColumn) *FilterColumn {
	for c := range whitelist {
		if whitelist[c].Name == name {
			return &whitelist[c]
		}
	}
	return nil
}

// FilterSQL builds a WHERE clause and its arguments from the filters. Filters on columns not in the
// whitelist and filters with empty values are ignored. If there are no usable filters, it returns "1=1"
func FilterSQL(filters []Filter, whitelist []FilterColumn) (string, []any) {
	var conditions []string
	var args []any
	for _, filter := range filters {
		col := findColumn(filter.Column, whitelist)
		if col == nil || filter.Value == "" {
			continue
		}
		value := filter.Value
		condition := col.SQL
		if col.Op == OpLike {
			value = LikeContains(value)
			if !strings.Contains(condition, "?") {
				condition += " LIKE ? ESCAPE '" + likeEscapeChar + "'"
			}
		} else if !strings.Contains(condition, "?") {
			condition += " = ?"
		}
		conditions = append(conditions, condition)
		args = append(args, value)
	}
	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), args
}

// FilterFromRequest returns the filter given by the filter and value request parameters, or nil if
// there isn't one or its column isn't in the whitelist
func FilterFromRequest(request *http.Request, whitelist []FilterColumn) *Filter {
	name := request.FormValue("filter")
	value := request.FormValue("value")
	if name == "" || value == "" || findColumn(name, whitelist) == nil {
		return nil
	}
	return &Filter{Column: name, Value: value}
}

// Label returns the label of the filter's column
func (f *Filter) Label(whitelist []FilterColumn) string {
	if col := findColumn(f.Column, whitelist); col != nil {
		return col.Label
	}
	return f.Column
}
