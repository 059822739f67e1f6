package fasql

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var errorLogTestColumns = []string{"id_error", "log_time", "id_member", "ip", "url", "message", "session", "error_type", "file", "line"}

func TestGetErrorLog(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`SELECT COUNT\(\*\) FROM log_errors WHERE error_type = \?`).
		ExpectQuery().WithArgs("database").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	mock.ExpectPrepare(`SELECT id_error, log_time, .+ FROM log_errors WHERE error_type = \? ORDER BY log_time DESC LIMIT \? OFFSET \?`).
		ExpectQuery().WithArgs("database", 30, 0).
		WillReturnRows(sqlmock.NewRows(errorLogTestColumns).
			AddRow(3, 1700000000, 1, "127.0.0.1", "/manage/logs", "table missing", "abc", "database", "pkg/fasql/util.go", 42))

	listing := &Listing{Where: "error_type = ?", Args: []any{"database"}, OrderBy: "log_time DESC", Limit: 30}
	count, err := CountErrorLog(nil, listing)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, 1, count)
	entries, err := GetErrorLog(nil, listing)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if !assert.Len(t, entries, 1) {
		t.FailNow()
	}
	assert.Equal(t, "table missing", entries[0].Message)
	assert.Equal(t, 42, entries[0].Line)
	assert.Equal(t, int64(1700000000), entries[0].Time().Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetErrorLogEntryNotFound(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`SELECT id_error, .+ FROM log_errors WHERE id_error = \?`).
		ExpectQuery().WithArgs(7).WillReturnRows(sqlmock.NewRows(errorLogTestColumns))
	_, err := GetErrorLogEntry(nil, 7)
	assert.ErrorIs(t, err, ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogErrorEntry(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`INSERT INTO log_errors`).ExpectExec().
		WithArgs(sqlmock.AnyArg(), 0, "10.0.0.1", "/manage/bbc", "bad token", "", "general", "", 0).
		WillReturnResult(sqlmock.NewResult(9, 1))
	entry := &ErrorLogEntry{IP: "10.0.0.1", URL: "/manage/bbc", Message: "bad token"}
	logged, err := LogErrorEntry(nil, entry)
	assert.NoError(t, err)
	assert.True(t, logged)
	assert.Equal(t, 9, entry.ID)

	settingsMutex.Lock()
	settingsCache = map[string]string{"enableErrorLogging": "0"}
	settingsMutex.Unlock()
	logged, err = LogErrorEntry(nil, &ErrorLogEntry{Message: "ignored"})
	assert.NoError(t, err)
	assert.False(t, logged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRows(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`DELETE FROM log_badbehavior WHERE ip = \? AND id IN \(\?,\?\)`).
		ExpectExec().WithArgs("192.168.1.1", 4, 5).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectPrepare(`DELETE FROM log_badbehavior WHERE 1=1`).
		ExpectExec().WillReturnResult(sqlmock.NewResult(0, 10))

	deleted, err := DeleteBadBehaviorLog(nil, []int{4, 5}, "ip = ?", "192.168.1.1")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	deleted, err = DeleteBadBehaviorLog(nil, []int{}, "")
	assert.NoError(t, err)
	assert.Zero(t, deleted, "an empty ID list should not delete anything")

	deleted, err = DeleteBadBehaviorLog(nil, nil, "")
	assert.NoError(t, err)
	assert.EqualValues(t, 10, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteActionLog(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)
	now := time.Now()

	mock.ExpectPrepare(`DELETE FROM log_actions WHERE id_log = \? AND log_time < \? AND \(action LIKE \?\) AND id_action IN \(\?\)`).
		ExpectExec().WithArgs(AdminLog, now.Add(-ActionLogMinAge).Unix(), "%settings%", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	deleted, err := DeleteActionLog(nil, AdminLog, []int{3}, now, "action LIKE ?", "%settings%")
	assert.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogAction(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`INSERT INTO log_actions`).ExpectExec().
		WithArgs(AdminLog, sqlmock.AnyArg(), 1, "127.0.0.1", "settings_bbc", 2, 0, 0, `{"board":2,"sa":"display"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	err := LogAction(nil, AdminLog, "settings_bbc", 1, "127.0.0.1", map[string]any{"sa": "display", "board": 2})
	assert.NoError(t, err)

	settingsMutex.Lock()
	settingsCache = map[string]string{"modlog_enabled": "0"}
	settingsMutex.Unlock()
	assert.NoError(t, LogAction(nil, ModerationLog, "lock", 1, "127.0.0.1", nil),
		"moderation actions should be skipped when the moderation log is disabled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionLogEntryDetails(t *testing.T) {
	entry := ActionLogEntry{Extra: `{"topic":12,"member":"bob"}`, StaffRank: ModPerms}
	assert.Equal(t, map[string]any{"topic": float64(12), "member": "bob"}, entry.ExtraDetails())
	assert.Equal(t, "Moderator", entry.Position())
	entry.Extra = "not json"
	assert.Empty(t, entry.ExtraDetails())
}

func TestBadBehaviorHeaders(t *testing.T) {
	entry := BadBehaviorEntry{HTTPHeaders: "Host: example.com\r\nAccept: */*\r\n\r\n"}
	assert.Equal(t, []string{"Host: example.com", "Accept: */*"}, entry.Headers())
}
