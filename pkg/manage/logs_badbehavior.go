package manage

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/listview"
	"github.com/forumkit/forumadmin/pkg/server"
)

var badBehaviorFilters = []listview.FilterColumn{
	{Name: "ip", SQL: "ip", Label: "IP address", Op: listview.OpEquals},
	{Name: "useragent", SQL: "user_agent", Label: "User agent", Op: listview.OpLike},
	{Name: "session", SQL: "session", Label: "Session", Op: listview.OpEquals},
	{Name: "id_member", SQL: "id_member", Label: "Member", Op: listview.OpEquals},
	{Name: "valid", SQL: "valid", Label: "Valid key", Op: listview.OpEquals},
	{Name: "request_uri", SQL: "request_uri", Label: "Request URI", Op: listview.OpLike},
}

func badBehaviorURL(filter *listview.Filter, params url.Values) string {
	merged := filterParams(filter)
	if merged == nil {
		merged = url.Values{}
	}
	for key, vals := range params {
		merged[key] = vals
	}
	return areaURL("logs", "badbehaviorlog", merged)
}

func badBehaviorFilterLink(column string, value string, text string) template.HTML {
	return link(areaURL("logs", "badbehaviorlog", url.Values{"filter": {column}, "value": {value}}), text)
}

func badBehaviorLogCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	opts := fasql.ContextOptions(request.Context())
	filter := listview.FilterFromRequest(request, badBehaviorFilters)
	where, args := filterWhere(filter, badBehaviorFilters)

	if request.Method == http.MethodPost && (request.PostFormValue("delete") != "" || request.PostFormValue("delall") != "") {
		if err := checkFormToken(writer, request, "logs", errEv); err != nil {
			return nil, err
		}
		var ids []int
		if request.PostFormValue("delall") == "" {
			// non-nil so that nothing is deleted if nothing was selected
			ids = append([]int{}, formInts(request, "delete[]")...)
		}
		deleted, err := fasql.DeleteBadBehaviorLog(opts, ids, where, args...)
		if err != nil {
			errEv.Err(err).Caller().Msg("Unable to delete bad behavior log entries")
			return nil, err
		}
		infoEv.Int64("deleted", deleted).Msg("Deleted bad behavior log entries")
		if wantsJSON {
			return map[string]any{"deleted": deleted}, nil
		}
		return redirect(writer, request, badBehaviorURL(filter, nil))
	}

	if viewStr := request.FormValue("view"); viewStr != "" {
		return badBehaviorEntry(writer, request, staff, viewStr, filter, wantsJSON, errEv)
	}

	listing := &fasql.Listing{Where: where, Args: args}
	list := &listview.List{
		ID:              "badbehavior_log",
		Title:           "Bad Behavior log",
		BaseURL:         areaURL("logs", "badbehaviorlog", nil),
		ItemsPerPage:    listItemsPerPage(),
		DefaultSort:     "date",
		DefaultSortDesc: true,
		NoItemsLabel:    "There are no entries in the Bad Behavior log",
		Params:          filterParams(filter),
		GetCount: func() (int, error) {
			return fasql.CountBadBehaviorLog(opts, listing)
		},
		GetItems: func(start, limit int, sort string) ([]any, error) {
			entries, err := fasql.GetBadBehaviorLog(opts, &fasql.Listing{
				Where: listing.Where, Args: listing.Args, OrderBy: sort, Limit: limit, Offset: start,
			})
			items := make([]any, len(entries))
			for e := range entries {
				items[e] = &entries[e]
			}
			return items, err
		},
		Columns: []listview.Column{
			{ID: "id", Header: "ID", Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				return link(badBehaviorURL(filter, url.Values{"view": {strconv.Itoa(entry.ID)}}), strconv.Itoa(entry.ID))
			}},
			{ID: "ip", Header: "IP", Sort: &listview.Sort{Asc: "ip ASC, id ASC", Desc: "ip DESC, id DESC"}, Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				return badBehaviorFilterLink("ip", entry.IP, entry.IP)
			}},
			{ID: "date", Header: "Date", Sort: &listview.Sort{Asc: "log_time ASC, id ASC", Desc: "log_time DESC, id DESC"}, Value: func(row any) template.HTML {
				return escaped(row.(*fasql.BadBehaviorEntry).Time().Format(fatemplates.DateTimeFormat))
			}},
			{ID: "request", Header: "Request", Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				return escaped(entry.RequestMethod) + " " + badBehaviorFilterLink("request_uri", entry.RequestURI, entry.RequestURI)
			}},
			{ID: "useragent", Header: "User agent", Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				return badBehaviorFilterLink("useragent", entry.UserAgent, entry.UserAgent)
			}},
			{ID: "valid", Header: "Key", Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				return badBehaviorFilterLink("valid", entry.Valid, entry.Valid)
			}},
			{ID: "member", Header: "Member", Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				if entry.MemberID == 0 {
					return "Guest"
				}
				return badBehaviorFilterLink("id_member", strconv.Itoa(entry.MemberID), strconv.Itoa(entry.MemberID))
			}},
			{ID: "session", Header: "Session", Value: func(row any) template.HTML {
				entry := row.(*fasql.BadBehaviorEntry)
				return badBehaviorFilterLink("session", entry.Session, entry.Session)
			}},
		},
		Form: &listview.Form{
			Action:       badBehaviorURL(filter, nil),
			CheckboxName: "delete[]",
			CheckboxValue: func(row any) string {
				return strconv.Itoa(row.(*fasql.BadBehaviorEntry).ID)
			},
			Buttons: []listview.Button{
				{Name: "delete", Label: "Remove selection", Confirm: "Remove the selected entries?"},
				{Name: "delall", Label: "Remove all", Confirm: "Remove every entry matching the current filter?"},
			},
		},
	}
	built, err := list.Build(request)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to get bad behavior log")
		return nil, err
	}
	if wantsJSON {
		return map[string]any{"total": built.TotalItems, "start": built.Start, "rows": built.Rows}, nil
	}
	data, err := listDataBase(request, staff, "logs", "badbehaviorlog")
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	data["list"] = built
	if filter != nil {
		data["filter"] = activeFilter{
			Label:     filter.Label(badBehaviorFilters),
			Value:     filter.Value,
			RemoveURL: areaURL("logs", "badbehaviorlog", nil),
		}
	}
	return renderTemplate(fatemplates.ManageList, data)
}

func badBehaviorEntry(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, viewStr string, filter *listview.Filter, wantsJSON bool, errEv *zerolog.Event) (any, error) {
	id, err := strconv.Atoi(viewStr)
	if err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return nil, server.NewServerError("invalid entry ID", http.StatusBadRequest)
	}
	entry, err := fasql.GetBadBehaviorEntry(fasql.ContextOptions(request.Context()), id)
	if errors.Is(err, fasql.ErrNoRows) {
		writer.WriteHeader(http.StatusNotFound)
		return nil, server.NewServerError("the log entry does not exist", http.StatusNotFound)
	} else if err != nil {
		errEv.Err(err).Caller().Int("id", id).Msg("Unable to get bad behavior log entry")
		return nil, err
	}
	if wantsJSON {
		return entry, nil
	}
	return renderTemplate(fatemplates.ManageBadBehavior, map[string]any{
		"subActions": areaTabs("logs", staff.Rank, "badbehaviorlog"),
		"entry":      entry,
		"filterURL":  areaURL("logs", "badbehaviorlog", nil),
		"backURL":    badBehaviorURL(filter, nil),
	})
}
