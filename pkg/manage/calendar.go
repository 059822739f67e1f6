package manage

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/listview"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/settingsform"
)

const (
	holidaysPerPage    = 20
	maxHolidayTitleLen = 60
	minHolidayYear     = 1900
	maxHolidayYear     = 2200
)

var (
	ErrHolidayNotFound   = server.NewServerError("the holiday does not exist", http.StatusNotFound)
	ErrHolidayTitle      = errors.New("the holiday needs a title of at most 60 characters")
	ErrInvalidHolidayDay = errors.New("the date of the holiday is invalid")
	ErrInvalidYearRange  = errors.New("the minimum year must not be after the maximum year")
)

func holidaysCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	opts := fasql.ContextOptions(request.Context())
	if request.Method == http.MethodPost && request.PostFormValue("delete") != "" {
		if err := checkFormToken(writer, request, "calendar", errEv); err != nil {
			return nil, err
		}
		deleted, err := fasql.DeleteHolidays(opts, formInts(request, "holiday[]"))
		if err != nil {
			errEv.Err(err).Caller().Msg("Unable to delete holidays")
			return nil, err
		}
		infoEv.Int64("deleted", deleted).Msg("Deleted holidays")
		if wantsJSON {
			return map[string]any{"deleted": deleted}, nil
		}
		return redirect(writer, request, areaURL("calendar", "holidays", nil))
	}

	list := &listview.List{
		ID:           "holidays",
		Title:        "Holidays",
		BaseURL:      areaURL("calendar", "holidays", nil),
		ItemsPerPage: holidaysPerPage,
		DefaultSort:  "date",
		NoItemsLabel: "There are no holidays",
		GetCount: func() (int, error) {
			return fasql.CountHolidays(opts)
		},
		GetItems: func(start, limit int, sort string) ([]any, error) {
			holidays, err := fasql.GetHolidays(opts, start, limit, sort == "desc")
			items := make([]any, len(holidays))
			for h := range holidays {
				items[h] = &holidays[h]
			}
			return items, err
		},
		Columns: []listview.Column{
			{ID: "title", Header: "Title", Value: func(row any) template.HTML {
				holiday := row.(*fasql.Holiday)
				return link(areaURL("calendar", "editholiday", url.Values{"holiday": {strconv.Itoa(holiday.ID)}}), holiday.Title)
			}},
			{ID: "date", Header: "Date", Sort: &listview.Sort{Asc: "asc", Desc: "desc"}, Value: func(row any) template.HTML {
				return escaped(row.(*fasql.Holiday).DisplayDate())
			}},
		},
		Form: &listview.Form{
			Action:       areaURL("calendar", "holidays", nil),
			CheckboxName: "holiday[]",
			CheckboxValue: func(row any) string {
				return strconv.Itoa(row.(*fasql.Holiday).ID)
			},
			Buttons: []listview.Button{
				{Name: "delete", Label: "Remove selection", Confirm: "Remove the selected holidays?"},
			},
		},
		AdditionalRows: []listview.AdditionalRow{
			{Below: true, Value: link(areaURL("calendar", "editholiday", nil), "Add a holiday")},
		},
	}
	built, err := list.Build(request)
	if err != nil {
		errEv.Err(err).Caller().Msg("Unable to get holidays")
		return nil, err
	}
	if wantsJSON {
		return map[string]any{"total": built.TotalItems, "start": built.Start, "rows": built.Rows}, nil
	}
	data, err := listDataBase(request, staff, "calendar", "holidays")
	if err != nil {
		errEv.Err(err).Caller().Send()
		return nil, err
	}
	data["list"] = built
	return renderTemplate(fatemplates.ManageList, data)
}

// holidayForm is the submitted holiday
type holidayForm struct {
	Title string
	Year  int
	Month time.Month
	Day   int
}

func parseHolidayForm(request *http.Request) (*holidayForm, error) {
	form := &holidayForm{Title: strings.TrimSpace(request.PostFormValue("title"))}
	if form.Title == "" || utf8.RuneCountInString(form.Title) > maxHolidayTitleLen {
		return form, ErrHolidayTitle
	}
	var err error
	if form.Year, err = strconv.Atoi(request.PostFormValue("year")); err != nil {
		return form, ErrInvalidHolidayDay
	}
	month, err := strconv.Atoi(request.PostFormValue("month"))
	if err != nil {
		return form, ErrInvalidHolidayDay
	}
	form.Month = time.Month(month)
	if form.Day, err = strconv.Atoi(request.PostFormValue("day")); err != nil {
		return form, ErrInvalidHolidayDay
	}
	if form.Year != fasql.RecurringHolidayYear && (form.Year < minHolidayYear || form.Year > maxHolidayYear) {
		return form, ErrInvalidHolidayDay
	}
	if !fasql.ValidHolidayDate(form.Year, form.Month, form.Day) {
		return form, ErrInvalidHolidayDay
	}
	return form, nil
}

func holidayYears(selected int) []int {
	minYear := max(fasql.GetSettingInt("cal_minyear"), minHolidayYear)
	maxYear := min(fasql.GetSettingInt("cal_maxyear"), maxHolidayYear)
	if minYear > maxYear {
		minYear, maxYear = minHolidayYear, maxHolidayYear
	}
	if selected != fasql.RecurringHolidayYear && selected >= minHolidayYear && selected <= maxHolidayYear {
		minYear = min(minYear, selected)
		maxYear = max(maxYear, selected)
	}
	years := make([]int, 0, maxYear-minYear+1)
	for y := minYear; y <= maxYear; y++ {
		years = append(years, y)
	}
	return years
}

func renderHolidayForm(request *http.Request, staff *fasql.Staff, holiday *fasql.Holiday, form *holidayForm, notice string) (any, error) {
	token, err := formToken(request, "calendar")
	if err != nil {
		return nil, err
	}
	months := make([]settingsform.Option, 12)
	for m := range months {
		month := time.Month(m + 1)
		months[m] = settingsform.Option{Value: strconv.Itoa(int(month)), Label: month.String()}
	}
	days := make([]int, 31)
	for d := range days {
		days[d] = d + 1
	}
	return renderTemplate(fatemplates.ManageHoliday, map[string]any{
		"subActions": areaTabs("calendar", staff.Rank, "editholiday"),
		"notice":     notice,
		"token":      token,
		"holiday":    holiday,
		"title":      form.Title,
		"year":       form.Year,
		"years":      holidayYears(form.Year),
		"month":      strconv.Itoa(int(form.Month)),
		"months":     months,
		"day":        form.Day,
		"days":       days,
	})
}

func editHolidayCallback(writer http.ResponseWriter, request *http.Request, staff *fasql.Staff, wantsJSON bool, infoEv *zerolog.Event, errEv *zerolog.Event) (any, error) {
	opts := fasql.ContextOptions(request.Context())
	holiday := &fasql.Holiday{}
	if idStr := request.FormValue("holiday"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			writer.WriteHeader(http.StatusNotFound)
			return nil, ErrHolidayNotFound
		}
		if holiday, err = fasql.GetHoliday(opts, id); errors.Is(err, fasql.ErrNoRows) {
			writer.WriteHeader(http.StatusNotFound)
			return nil, ErrHolidayNotFound
		} else if err != nil {
			errEv.Err(err).Caller().Int("holiday", id).Msg("Unable to get holiday")
			return nil, err
		}
	}

	if request.Method == http.MethodPost && (request.PostFormValue("edit") != "" || request.PostFormValue("delete") != "") {
		if err := checkFormToken(writer, request, "calendar", errEv); err != nil {
			return nil, err
		}
		if request.PostFormValue("delete") != "" {
			if holiday.ID == 0 {
				writer.WriteHeader(http.StatusNotFound)
				return nil, ErrHolidayNotFound
			}
			if _, err := fasql.DeleteHolidays(opts, []int{holiday.ID}); err != nil {
				errEv.Err(err).Caller().Int("holiday", holiday.ID).Msg("Unable to delete holiday")
				return nil, err
			}
			infoEv.Int("holiday", holiday.ID).Msg("Deleted holiday")
		} else {
			form, err := parseHolidayForm(request)
			if err != nil {
				writer.WriteHeader(http.StatusBadRequest)
				if wantsJSON {
					return nil, server.NewServerError(err, http.StatusBadRequest)
				}
				return renderHolidayForm(request, staff, holiday, form, err.Error())
			}
			holiday.Title = form.Title
			holiday.EventDate = fasql.HolidayDate(form.Year, form.Month, form.Day)
			if err = fasql.SaveHoliday(opts, holiday); err != nil {
				errEv.Err(err).Caller().Str("title", holiday.Title).Msg("Unable to save holiday")
				return nil, err
			}
			infoEv.Int("holiday", holiday.ID).Str("date", holiday.EventDate).Msg("Saved holiday")
		}
		if wantsJSON {
			return holiday, nil
		}
		return redirect(writer, request, areaURL("calendar", "holidays", nil))
	}

	if wantsJSON {
		return holiday, nil
	}
	form := &holidayForm{Title: holiday.Title}
	if holiday.ID > 0 {
		form.Year, form.Month, form.Day = holiday.Date()
	} else {
		now := time.Now()
		form.Year, form.Month, form.Day = now.Year(), now.Month(), now.Day()
	}
	return renderHolidayForm(request, staff, holiday, form, "")
}

var calendarShowOptions = []settingsform.Option{
	{Value: "0", Label: "Never"},
	{Value: "1", Label: "In the calendar only"},
	{Value: "2", Label: "On the board index only"},
	{Value: "3", Label: "In the calendar and on the board index"},
}

func calendarVars(opts *fasql.RequestOptions) ([]settingsform.ConfigVar, error) {
	boards, err := fasql.GetBoards(opts)
	if err != nil {
		return nil, err
	}
	boardOptions := []settingsform.Option{{Value: "0", Label: "None"}}
	for _, board := range boards {
		label := board.Name
		if board.CategoryName != "" {
			label = board.CategoryName + " - " + board.Name
		}
		boardOptions = append(boardOptions, settingsform.Option{Value: strconv.Itoa(board.ID), Label: label})
	}
	return []settingsform.ConfigVar{
		{Type: settingsform.TypeCheck, Name: "cal_enabled", Label: "Enable the calendar"},
		{Type: settingsform.TypeTitle, Label: "Permissions"},
		{Type: settingsform.TypePermissions, Name: "calendar_view", Label: "Can view the calendar"},
		{Type: settingsform.TypePermissions, Name: "calendar_post", Label: "Can post events"},
		{Type: settingsform.TypePermissions, Name: "calendar_edit_own", Label: "Can edit their own events"},
		{Type: settingsform.TypePermissions, Name: "calendar_edit_any", Label: "Can edit any event"},
		{Type: settingsform.TypeTitle, Label: "Display"},
		{Type: settingsform.TypeInt, Name: "cal_days_for_index", Label: "Days ahead shown on the board index",
			Min: settingsform.Limit(0), Max: settingsform.Limit(365)},
		{Type: settingsform.TypeSelect, Name: "cal_showholidays", Label: "Show holidays", Options: calendarShowOptions},
		{Type: settingsform.TypeSelect, Name: "cal_showbdays", Label: "Show birthdays", Options: calendarShowOptions},
		{Type: settingsform.TypeSelect, Name: "cal_showevents", Label: "Show events", Options: calendarShowOptions},
		{Type: settingsform.TypeTitle, Label: "Events"},
		{Type: settingsform.TypeSelect, Name: "cal_defaultboard", Label: "Default board for event topics", Options: boardOptions},
		{Type: settingsform.TypeCheck, Name: "cal_allow_unlinked", Label: "Allow events not linked to posts"},
		{Type: settingsform.TypeCheck, Name: "cal_showInTopic", Label: "Show linked events in topics"},
		{Type: settingsform.TypeCheck, Name: "cal_allowspan", Label: "Allow events to span multiple days"},
		{Type: settingsform.TypeInt, Name: "cal_maxspan", Label: "Maximum days an event can span", Subtext: "0 for no limit",
			Min: settingsform.Limit(0)},
		{Type: settingsform.TypeInt, Name: "cal_minyear", Label: "Minimum year", Min: settingsform.Limit(minHolidayYear), Max: settingsform.Limit(maxHolidayYear)},
		{Type: settingsform.TypeInt, Name: "cal_maxyear", Label: "Maximum year", Min: settingsform.Limit(minHolidayYear), Max: settingsform.Limit(maxHolidayYear)},
	}, nil
}

func validateCalendar(form *settingsform.Form, values *settingsform.Values, _ *http.Request) []string {
	if values.Int("cal_minyear") > values.Int("cal_maxyear") {
		form.Invalidate("cal_maxyear", ErrInvalidYearRange.Error())
	}
	return nil
}

func registerCalendarArea() {
	page := &settingsPage{
		Area:     "calendar",
		SA:       "settings",
		Vars:     calendarVars,
		Validate: validateCalendar,
	}
	registerArea(&area{
		ID:        "calendar",
		Title:     "Calendar",
		DefaultSA: "holidays",
		SubActions: []subAction{
			{ID: "holidays", Label: "Holidays", Permission: "admin_forum", Handler: holidaysCallback},
			{ID: "editholiday", Label: "Add holiday", Permission: "admin_forum", Handler: editHolidayCallback},
			{ID: "settings", Label: "Settings", Permission: "admin_forum", Handler: page.handler},
		},
	})
}
