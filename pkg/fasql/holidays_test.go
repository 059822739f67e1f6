package fasql

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestValidHolidayDate(t *testing.T) {
	assert.True(t, ValidHolidayDate(RecurringHolidayYear, time.February, 29))
	assert.False(t, ValidHolidayDate(2023, time.February, 29))
	assert.True(t, ValidHolidayDate(2024, time.February, 29))
	assert.False(t, ValidHolidayDate(2024, time.April, 31))
	assert.False(t, ValidHolidayDate(2024, 13, 1))
	assert.False(t, ValidHolidayDate(2024, time.May, 0))
}

func TestHolidayDisplayDate(t *testing.T) {
	recurring := Holiday{EventDate: HolidayDate(RecurringHolidayYear, time.December, 25)}
	assert.Equal(t, "0004-12-25", recurring.EventDate)
	assert.True(t, recurring.Recurring())
	assert.Equal(t, "December 25", recurring.DisplayDate())

	once := Holiday{EventDate: "2024-11-28"}
	assert.False(t, once.Recurring())
	assert.Equal(t, "November 28, 2024", once.DisplayDate())
}

func TestGetHolidays(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`SELECT id_holiday, event_date, title FROM calendar_holidays WHERE 1=1 ORDER BY SUBSTR\(event_date, 6\), event_date LIMIT \? OFFSET \?`).
		ExpectQuery().WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id_holiday", "event_date", "title"}).
			AddRow(1, "0004-01-01", "New Year's").
			AddRow(2, "0004-12-25", "Christmas"))
	holidays, err := GetHolidays(nil, 0, 20, false)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, []Holiday{
		{ID: 1, EventDate: "0004-01-01", Title: "New Year's"},
		{ID: 2, EventDate: "0004-12-25", Title: "Christmas"},
	}, holidays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveHoliday(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`INSERT INTO calendar_holidays \(event_date, title\) VALUES\(\?,\?\)`).
		ExpectExec().WithArgs("0004-07-04", "Independence Day").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectBegin()
	mock.ExpectPrepare(`DELETE FROM settings WHERE variable = \?`).
		ExpectExec().WithArgs("calendar_updated").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`INSERT INTO settings`).
		ExpectExec().WithArgs("calendar_updated", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	holiday := &Holiday{EventDate: "0004-07-04", Title: "Independence Day"}
	if !assert.NoError(t, SaveHoliday(nil, holiday)) {
		t.FailNow()
	}
	assert.Equal(t, 5, holiday.ID)
	assert.NotEmpty(t, GetSetting("calendar_updated"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
