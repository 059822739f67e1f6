package fasql

import (
	"fmt"
	"strconv"
	"time"
)

// RecurringHolidayYear is stored as the year of holidays that happen every year
const RecurringHolidayYear = 4

// Holiday is a row of the calendar_holidays table. EventDate is formatted as YYYY-MM-DD
type Holiday struct {
	ID        int    `db:"id_holiday" json:"id"`
	EventDate string `db:"event_date" json:"event_date"`
	Title     string `db:"title" json:"title"`
}

// Date returns the parsed year, month and day of the holiday
func (h *Holiday) Date() (year int, month time.Month, day int) {
	t, err := time.Parse("2006-01-02", h.EventDate)
	if err != nil {
		return 0, 0, 0
	}
	return t.Year(), t.Month(), t.Day()
}

// Recurring returns true if the holiday happens every year
func (h *Holiday) Recurring() bool {
	year, _, _ := h.Date()
	return year == RecurringHolidayYear
}

// DisplayDate returns the date formatted for the holiday list, without a year for recurring holidays
func (h *Holiday) DisplayDate() string {
	year, month, day := h.Date()
	if year == 0 {
		return h.EventDate
	}
	if year == RecurringHolidayYear {
		return fmt.Sprintf("%s %d", month, day)
	}
	return fmt.Sprintf("%s %d, %d", month, day, year)
}

// HolidayDate formats the event_date value for the given date
func HolidayDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// ValidHolidayDate returns true if the day exists in the month. Recurring holidays use year 4, a leap
// year, so February 29 is allowed for them
func ValidHolidayDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= lastDay
}

// CountHolidays returns the number of holidays
func CountHolidays(opts *RequestOptions) (int, error) {
	return countRows(opts, "DBPREFIXcalendar_holidays", nil)
}

// GetHolidays returns holidays sorted by month and day, or in reverse if desc is true
func GetHolidays(opts *RequestOptions, start, limit int, desc bool) ([]Holiday, error) {
	order := "SUBSTR(event_date, 6), event_date"
	if desc {
		order = "SUBSTR(event_date, 6) DESC, event_date DESC"
	}
	return selectRows[Holiday](opts, "id_holiday, event_date, title", "DBPREFIXcalendar_holidays", &Listing{
		OrderBy: order,
		Limit:   limit,
		Offset:  start,
	})
}

// GetHoliday returns the holiday with the given ID
func GetHoliday(opts *RequestOptions, id int) (*Holiday, error) {
	holidays, err := selectRows[Holiday](opts, "id_holiday, event_date, title", "DBPREFIXcalendar_holidays", &Listing{
		Where: "id_holiday = ?",
		Args:  []any{id},
	})
	if err != nil {
		return nil, err
	}
	if len(holidays) == 0 {
		return nil, ErrNoRows
	}
	return &holidays[0], nil
}

// SaveHoliday inserts the holiday if its ID is 0, or updates it otherwise
func SaveHoliday(opts *RequestOptions, holiday *Holiday) error {
	if holiday.ID == 0 {
		result, err := Exec(opts, `INSERT INTO DBPREFIXcalendar_holidays (event_date, title) VALUES(?,?)`,
			holiday.EventDate, holiday.Title)
		if err != nil {
			return err
		}
		if id, err := result.LastInsertId(); err == nil {
			holiday.ID = int(id)
		}
	} else {
		_, err := Exec(opts, `UPDATE DBPREFIXcalendar_holidays SET event_date = ?, title = ? WHERE id_holiday = ?`,
			holiday.EventDate, holiday.Title, holiday.ID)
		if err != nil {
			return err
		}
	}
	return MarkCalendarUpdated(opts, time.Now())
}

// DeleteHolidays removes the holidays with the given IDs
func DeleteHolidays(opts *RequestOptions, ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	deleted, err := deleteRows(opts, "DBPREFIXcalendar_holidays", "id_holiday", ids, "")
	if err != nil {
		return deleted, err
	}
	return deleted, MarkCalendarUpdated(opts, time.Now())
}

// MarkCalendarUpdated sets calendar_updated so that cached calendar data is rebuilt
func MarkCalendarUpdated(opts *RequestOptions, when time.Time) error {
	return UpdateSettings(opts, map[string]string{
		"calendar_updated": strconv.FormatInt(when.Unix(), 10),
	})
}
