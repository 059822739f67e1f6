package manage

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/listview"
)

type listTab struct {
	Label  string
	URL    string
	Active bool
	Count  int
}

type activeFilter struct {
	Label     string
	Value     string
	RemoveURL string
}

type listSearch struct {
	Action string
	Hidden map[string]string
	Value  string
	Type   string
	Types  []searchType
}

type searchType struct {
	Value string
	Label string
}

// listItemsPerPage returns the page size of the log lists
func listItemsPerPage() int {
	if perPage := fasql.GetSettingInt("defaultMaxListItems"); perPage > 0 {
		return perPage
	}
	if perPage := config.GetSiteConfig().ItemsPerPage; perPage > 0 {
		return perPage
	}
	return listview.DefaultItemsPerPage
}

func escaped(str string) template.HTML {
	return template.HTML(template.HTMLEscapeString(str)) // skipcq: GSC-G203
}

func link(href string, text string) template.HTML {
	return template.HTML(`<a href="` + template.HTMLEscapeString(href) + `">` + template.HTMLEscapeString(text) + `</a>`) // skipcq: GSC-G203
}

// filterParams returns the query values that keep the filter active
func filterParams(filter *listview.Filter) url.Values {
	if filter == nil {
		return nil
	}
	return url.Values{"filter": {filter.Column}, "value": {filter.Value}}
}

// filterWhere returns the WHERE clause of the filter, or an empty string if there is no filter
func filterWhere(filter *listview.Filter, whitelist []listview.FilterColumn) (string, []any) {
	if filter == nil {
		return "", nil
	}
	return listview.FilterSQL([]listview.Filter{*filter}, whitelist)
}

func listDataBase(request *http.Request, staff *fasql.Staff, areaID, sa string) (map[string]any, error) {
	token, err := formToken(request, areaID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"subActions": areaTabs(areaID, staff.Rank, sa),
		"token":      token,
	}, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
