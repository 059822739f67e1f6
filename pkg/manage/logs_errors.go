package manage

import (
	"bufio"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/listview"
	"github.com/forumkit/forumadmin/pkg/server"
)

// viewFileWindow is the number of lines shown before and after the line of an error
const viewFileWindow = 10

var (
	errorLogFilters = []listview.FilterColumn{
		{Name: "id_member", SQL: "id_member", Label: "Member", Op: listview.OpEquals},
		{Name: "ip", SQL: "ip", Label: "IP address", Op: listview.OpEquals},
		{Name: "session", SQL: "session", Label: "Session", Op: listview.OpEquals},
		{Name: "url", SQL: "url", Label: "URL", Op: listview.OpLike},
		{Name: "message", SQL: "message", Label: "Message", Op: listview.OpLike},
		{Name: "error_type", SQL: "error_type", Label: "Error type", Op: listview.OpEquals},
		{Name: "file", SQL: "file", Label: "File", Op: listview.OpLike},
	}

	ErrFileOutsideSource = server.NewServerError("the file is outside of the source directory", http.StatusForbidden)
	ErrSourceNotFound    = server.NewServerError("the file does not exist", http.StatusNotFound)
)

type sourceLine struct {
	Number  int
	Text    string
	Current bool
}

// errorLogFilter returns the requested filter, with the values of text columns stripped of HTML
func errorLogFilter(request *http.Request) *listview.Filter {
	filter := listview.FilterFromRequest(request, errorLogFilters)
	if filter == nil {
		return nil
	}
	switch filter.Column {
	case "url", "message", "file":
		if filter.Value = fautil.StripHTML(filter.Value); filter.Value == "" {
			return nil
		}
	}
	return filter
}

func errorLogFilterLink(column string, value string, text string) template.HTML {
	return link(areaURL("logs", "errorlog", url.Values{"filter": {column}, "value": {value}}), text)
}

func errorLogCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	opts := fasql.ContextOptions(request.Context())
	filter := errorLogFilter(request)
	where, args := filterWhere(filter, errorLogFilters)

	if request.Method == http.MethodPost && (request.PostFormValue("delete") != "" || request.PostFormValue("delall") != "") {
		if err := checkFormToken(writer, request, "logs", errEv); err != nil {
			return nil, err
		}
		var ids []int
		if request.PostFormValue("delall") == "" {
			ids = append([]int{}, formInts(request, "delete[]")...)
		}
		deleted, err := fasql.DeleteErrorLog(opts, ids, where, args...)
		if err != nil {
			errEv.Err(err).Caller().Msg("Unable to delete error log entries")
			return nil, err
		}
		infoEv.Int64("deleted", deleted).Msg("Deleted error log entries")
		if wantsJSON {
			return map[string]any{"deleted": deleted}, nil
		}
		return redirect(writer, request, areaURL("logs", "errorlog", filterParams(filter)))
	}

	listing := &fasql.Listing{Where: where, Args: args}
	list := &listview.List{
		ID:              "error_log",
		Title:           "Error log",
		BaseURL:         areaURL("logs", "errorlog", nil),
		ItemsPerPage:    listItemsPerPage(),
		DefaultSort:     "time",
		DefaultSortDesc: true,
		NoItemsLabel:    "No errors have been logged",
		Params:          filterParams(filter),
		GetCount: func() (int, error) {
			return fasql.CountErrorLog(opts, listing)
		},
		GetItems: func(start, limit int, sort string) ([]any, error) {
			entries, err := fasql.GetErrorLog(opts, &fasql.Listing{
				Where: listing.Where, Args: listing.Args, OrderBy: sort, Limit: limit, Offset: start,
			})
			items := make([]any, len(entries))
			for e := range entries {
				items[e] = &entries[e]
			}
			return items, err
		},
		Columns: []listview.Column{
			{ID: "member", Header: "Member", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				if entry.MemberID == 0 {
					return "Guest"
				}
				return errorLogFilterLink("id_member", strconv.Itoa(entry.MemberID), strconv.Itoa(entry.MemberID))
			}},
			{ID: "ip", Header: "IP", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				return errorLogFilterLink("ip", entry.IP, entry.IP)
			}},
			{ID: "time", Header: "Time", Sort: &listview.Sort{Asc: "id_error ASC", Desc: "id_error DESC"}, Value: func(row any) template.HTML {
				return escaped(row.(*fasql.ErrorLogEntry).Time().Format(fatemplates.DateTimeFormat))
			}},
			{ID: "url", Header: "URL", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				return errorLogFilterLink("url", entry.URL, entry.URL)
			}},
			{ID: "message", Header: "Message", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				return errorLogFilterLink("message", entry.Message, fautil.Truncate(entry.Message, 200))
			}},
			{ID: "error_type", Header: "Type", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				return errorLogFilterLink("error_type", entry.ErrorType, entry.ErrorType)
			}},
			{ID: "file", Header: "File", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				if entry.File == "" {
					return ""
				}
				return link(areaURL("logs", "viewfile", url.Values{
					"file": {entry.File},
					"line": {strconv.Itoa(entry.Line)},
				}), entry.File+":"+strconv.Itoa(entry.Line))
			}},
			{ID: "session", Header: "Session", Value: func(row any) template.HTML {
				entry := row.(*fasql.ErrorLogEntry)
				return errorLogFilterLink("session", entry.Session, entry.Session)
			}},
		},
		Form: &listview.Form{
			Action:       areaURL("logs", "errorlog", filterParams(filter)),
			CheckboxName: "delete[]",
			CheckboxValue: func(row any) string {
				return strconv.Itoa(row.(*fasql.ErrorLogEntry).ID)
			},
			Buttons: []listview.Button{
				{Name: "delete", Label: "Remove selection", Confirm: "Remove the selected errors?"},
				{Name: "delall", Label: "Remove all", Confirm: "Remove every error matching the current filter?"},
			},
		},
	}
	built, err := list.Build(request)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to get error log")
		return nil, err
	}
	typeCounts, err := fasql.GetErrorTypeCounts(opts)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to get error type counts")
		return nil, err
	}
	if wantsJSON {
		return map[string]any{"total": built.TotalItems, "start": built.Start, "rows": built.Rows, "types": typeCounts}, nil
	}

	var total int
	for _, tc := range typeCounts {
		total += tc.Count
	}
	tabs := []listTab{{
		Label:  "All",
		URL:    areaURL("logs", "errorlog", nil),
		Active: filter == nil || filter.Column != "error_type",
		Count:  total,
	}}
	for _, tc := range typeCounts {
		tabs = append(tabs, listTab{
			Label:  tc.ErrorType,
			URL:    areaURL("logs", "errorlog", url.Values{"filter": {"error_type"}, "value": {tc.ErrorType}}),
			Active: filter != nil && filter.Column == "error_type" && filter.Value == tc.ErrorType,
			Count:  tc.Count,
		})
	}

	data, err := listDataBase(request, staff, "logs", "errorlog")
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	data["list"] = built
	data["tabs"] = tabs
	if filter != nil && filter.Column != "error_type" {
		data["filter"] = activeFilter{
			Label:     filter.Label(errorLogFilters),
			Value:     filter.Value,
			RemoveURL: areaURL("logs", "errorlog", nil),
		}
	}
	return renderTemplate(fatemplates.ManageList, data)
}

// resolveSourceFile returns the absolute path of file if it is inside the source directory
func resolveSourceFile(file string) (string, error) {
	sourceDir, err := filepath.Abs(config.GetSystemCriticalConfig().SourceDir)
	if err != nil {
		return "", err
	}
	fullPath := file
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(sourceDir, fullPath)
	}
	fullPath = filepath.Clean(fullPath)
	rel, err := filepath.Rel(sourceDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrFileOutsideSource
	}
	return fullPath, nil
}

// readSourceLines returns the lines of the file around the given line
func readSourceLines(fullPath string, line int) ([]sourceLine, error) {
	fi, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer fi.Close()
	first := max(line-viewFileWindow, 1)
	last := line + viewFileWindow
	var lines []sourceLine
	scanner := bufio.NewScanner(fi)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan() && n <= last; n++ {
		if n < first {
			continue
		}
		lines = append(lines, sourceLine{Number: n, Text: scanner.Text(), Current: n == line})
	}
	return lines, scanner.Err()
}

func viewFileCallback(writer http.ResponseWriter, request *http.Request, _ *fasql.Staff, wantsJSON bool, _ *zerolog.Event, errEv *zerolog.Event) (any, error) {
	file := request.FormValue("file")
	line, _ := strconv.Atoi(request.FormValue("line"))
	errEv.Str("file", file).Int("line", line)
	fullPath, err := resolveSourceFile(file)
	if err != nil {
		errEv.Err(err).Caller().Msg("Rejected request to view file")
		writer.WriteHeader(server.StatusCode(err, http.StatusInternalServerError))
		return nil, err
	}
	lines, err := readSourceLines(fullPath, line)
	if errors.Is(err, fs.ErrNotExist) {
		writer.WriteHeader(http.StatusNotFound)
		return nil, ErrSourceNotFound
	} else if err != nil {
		errEv.Err(err).Caller().Msg("Unable to read file")
		return nil, err
	}
	if wantsJSON {
		return map[string]any{"file": file, "lines": lines}, nil
	}
	return renderTemplate(fatemplates.ManageViewFile, map[string]any{
		"file":  file,
		"lines": lines,
	})
}
