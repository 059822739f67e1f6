package manage

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/listview"
)

var actionLogSearchTypes = []searchType{
	{Value: "action", Label: "Action"},
	{Value: "member", Label: "Member"},
	{Value: "position", Label: "Position"},
	{Value: "ip", Label: "IP address"},
}

// actionLogSearchSQL returns the condition matching the search. The staff table is only queried in
// subqueries since the condition is also used when deleting entries
func actionLogSearchSQL(searchType string, search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	pattern := listview.LikeContains(search)
	switch searchType {
	case "member":
		return "id_member IN (SELECT id FROM DBPREFIXstaff WHERE username LIKE ? ESCAPE '!')", []any{pattern}
	case "position":
		var ranks []any
		for _, rank := range []int{NoPerms, JanitorPerms, ModPerms, AdminPerms} {
			if strings.Contains(strings.ToLower(fasql.RankTitle(rank)), strings.ToLower(search)) {
				ranks = append(ranks, rank)
			}
		}
		if len(ranks) == 0 {
			return "1=0", nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ranks)), ",")
		return "COALESCE((SELECT global_rank FROM DBPREFIXstaff WHERE DBPREFIXstaff.id = id_member), 0) IN (" + placeholders + ")", ranks
	case "ip":
		return "ip LIKE ? ESCAPE '!'", []any{pattern}
	default:
		return "action LIKE ? ESCAPE '!'", []any{pattern}
	}
}

func actionLogSearch(request *http.Request) (string, string) {
	stype := request.FormValue("search_type")
	if !slices.ContainsFunc(actionLogSearchTypes, func(st searchType) bool { return st.Value == stype }) {
		stype = "action"
	}
	return strings.TrimSpace(request.FormValue("search")), stype
}

// extraDetails renders the extra details of a log entry as key: value lines, sorted by key
func extraDetails(entry *fasql.ActionLogEntry) template.HTML {
	details := entry.ExtraDetails()
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	var lines []string
	for _, key := range keys {
		lines = append(lines, template.HTMLEscapeString(key+": "+fmt.Sprint(details[key])))
	}
	return template.HTML(strings.Join(lines, "<br />")) // skipcq: GSC-G203
}

func actionLogCallback(logType int, sa string) CallbackFunction {
	return func(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
		opts := fasql.ContextOptions(request.Context())
		search, searchType := actionLogSearch(request)
		where, args := actionLogSearchSQL(searchType, search)
		var params url.Values
		if search != "" {
			params = url.Values{"search": {search}, "search_type": {searchType}}
		}

		if request.Method == http.MethodPost && (request.PostFormValue("remove") != "" || request.PostFormValue("removeall") != "") {
			if err := checkFormToken(writer, request, "logs", errEv); err != nil {
				return nil, err
			}
			var ids []int
			if request.PostFormValue("removeall") == "" {
				ids = append([]int{}, formInts(request, "delete[]")...)
			}
			deleted, err := fasql.DeleteActionLog(opts, logType, ids, time.Now(), where, args...)
			if err != nil {
				errEv.Err(err).Caller().Msg("Unable to delete log entries")
				return nil, err
			}
			infoEv.Int64("deleted", deleted).Int("logType", logType).Msg("Deleted log entries")
			if wantsJSON {
				return map[string]any{"deleted": deleted}, nil
			}
			return redirect(writer, request, areaURL("logs", sa, params))
		}

		listing := &fasql.Listing{Where: where, Args: args}
		title := "Moderation log"
		if logType == fasql.AdminLog {
			title = "Administration log"
		}
		list := &listview.List{
			ID:              sa,
			Title:           title,
			BaseURL:         areaURL("logs", sa, nil),
			ItemsPerPage:    listItemsPerPage(),
			DefaultSort:     "time",
			DefaultSortDesc: true,
			NoItemsLabel:    "There are no entries in the log",
			Params:          params,
			GetCount: func() (int, error) {
				return fasql.CountActionLog(opts, logType, listing)
			},
			GetItems: func(start, limit int, sort string) ([]any, error) {
				entries, err := fasql.GetActionLog(opts, logType, &fasql.Listing{
					Where: listing.Where, Args: listing.Args, OrderBy: sort, Limit: limit, Offset: start,
				})
				items := make([]any, len(entries))
				for e := range entries {
					items[e] = &entries[e]
				}
				return items, err
			},
			Columns: []listview.Column{
				{ID: "action", Header: "Action", Sort: &listview.Sort{Asc: "action ASC", Desc: "action DESC"}, Value: func(row any) template.HTML {
					return escaped(row.(*fasql.ActionLogEntry).Action)
				}},
				{ID: "time", Header: "Time", Sort: &listview.Sort{Asc: "log_time ASC, id_action ASC", Desc: "log_time DESC, id_action DESC"}, Value: func(row any) template.HTML {
					return escaped(row.(*fasql.ActionLogEntry).Time().Format(fatemplates.DateTimeFormat))
				}},
				{ID: "member", Header: "Member", Sort: &listview.Sort{Asc: "member_name ASC", Desc: "member_name DESC"}, Value: func(row any) template.HTML {
					entry := row.(*fasql.ActionLogEntry)
					if entry.MemberName == "" {
						return escaped("#" + strconv.Itoa(entry.MemberID))
					}
					return escaped(entry.MemberName)
				}},
				{ID: "position", Header: "Position", Sort: &listview.Sort{Asc: "staff_rank ASC", Desc: "staff_rank DESC"}, Value: func(row any) template.HTML {
					return escaped(row.(*fasql.ActionLogEntry).Position())
				}},
				{ID: "ip", Header: "IP", Sort: &listview.Sort{Asc: "ip ASC", Desc: "ip DESC"}, Value: func(row any) template.HTML {
					return escaped(row.(*fasql.ActionLogEntry).IP)
				}},
				{ID: "extra", Header: "Details", Value: func(row any) template.HTML {
					return extraDetails(row.(*fasql.ActionLogEntry))
				}},
			},
			Form: &listview.Form{
				Action:       areaURL("logs", sa, params),
				CheckboxName: "delete[]",
				CheckboxValue: func(row any) string {
					return strconv.Itoa(row.(*fasql.ActionLogEntry).ID)
				},
				Buttons: []listview.Button{
					{Name: "remove", Label: "Remove selection", Confirm: "Remove the selected entries?"},
					{Name: "removeall", Label: "Remove all", Confirm: "Remove every entry matching the search?"},
				},
			},
		}
		built, err := list.Build(request)
		if err != nil {
			errEv.Err(err).Caller().Int("logType", logType).Msg("Unable to get log entries")
			return nil, err
		}
		if wantsJSON {
			return map[string]any{"total": built.TotalItems, "start": built.Start, "rows": built.Rows}, nil
		}
		data, err := listDataBase(request, staff, "logs", sa)
		if err != nil {
			errEv.Err(err).Caller().Send()
			return nil, err
		}
		data["list"] = built
		data["notice"] = "Entries less than 24 hours old can't be removed"
		data["search"] = listSearch{
			Action: areaURL("logs", "", nil),
			Hidden: map[string]string{"sa": sa},
			Value:  search,
			Type:   searchType,
			Types:  actionLogSearchTypes,
		}
		return renderTemplate(fatemplates.ManageList, data)
	}
}
