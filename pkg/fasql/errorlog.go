package fasql

import (
	"net/http"
	"time"

	"github.com/forumkit/forumadmin/pkg/fautil"
)

const errorLogColumns = "id_error, log_time, id_member, ip, url, message, session, error_type, file, line"

// ErrorLogEntry is a row of the error log
type ErrorLogEntry struct {
	ID        int    `db:"id_error" json:"id"`
	LogTime   int64  `db:"log_time" json:"log_time"`
	MemberID  int    `db:"id_member" json:"id_member"`
	IP        string `db:"ip" json:"ip"`
	URL       string `db:"url" json:"url"`
	Message   string `db:"message" json:"message"`
	Session   string `db:"session" json:"session"`
	ErrorType string `db:"error_type" json:"error_type"`
	File      string `db:"file" json:"file"`
	Line      int    `db:"line" json:"line"`
}

// Time returns the time the error was logged
func (e *ErrorLogEntry) Time() time.Time {
	return time.Unix(e.LogTime, 0)
}

// ErrorTypeCount is the number of error log entries of one error type
type ErrorTypeCount struct {
	ErrorType string `db:"error_type" json:"error_type"`
	Count     int    `db:"num_errors" json:"count"`
}

// LogErrorEntry adds an entry to the error log if error logging is enabled. It returns false if the
// entry wasn't stored because logging is disabled
func LogErrorEntry(opts *RequestOptions, entry *ErrorLogEntry) (bool, error) {
	if !GetSettingBool("enableErrorLogging") {
		return false, nil
	}
	if entry.LogTime == 0 {
		entry.LogTime = time.Now().Unix()
	}
	if entry.ErrorType == "" {
		entry.ErrorType = "general"
	}
	const insertSQL = `INSERT INTO DBPREFIXlog_errors
	(log_time, id_member, ip, url, message, session, error_type, file, line)
	VALUES(?,?,?,?,?,?,?,?,?)`
	result, err := Exec(opts, insertSQL, entry.LogTime, entry.MemberID, entry.IP, entry.URL,
		entry.Message, entry.Session, entry.ErrorType, entry.File, entry.Line)
	if err != nil {
		return false, err
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = int(id)
	}
	return true, nil
}

// LogRequestError adds an error log entry for an error that happened while handling the request
func LogRequestError(request *http.Request, memberID int, session, errType, message, file string, line int) (bool, error) {
	return LogErrorEntry(ContextOptions(request.Context()), &ErrorLogEntry{
		MemberID:  memberID,
		IP:        fautil.GetRealIP(request),
		URL:       request.URL.RequestURI(),
		Message:   message,
		Session:   session,
		ErrorType: errType,
		File:      file,
		Line:      line,
	})
}

// CountErrorLog returns the number of error log entries matching the listing
func CountErrorLog(opts *RequestOptions, listing *Listing) (int, error) {
	return countRows(opts, "DBPREFIXlog_errors", listing)
}

// GetErrorLog returns the error log entries selected by the listing
func GetErrorLog(opts *RequestOptions, listing *Listing) ([]ErrorLogEntry, error) {
	return selectRows[ErrorLogEntry](opts, errorLogColumns, "DBPREFIXlog_errors", listing)
}

// GetErrorLogEntry returns a single error log entry
func GetErrorLogEntry(opts *RequestOptions, id int) (*ErrorLogEntry, error) {
	entries, err := selectRows[ErrorLogEntry](opts, errorLogColumns, "DBPREFIXlog_errors", &Listing{
		Where: "id_error = ?",
		Args:  []any{id},
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoRows
	}
	return &entries[0], nil
}

// GetErrorTypeCounts returns the number of entries of each error type, sorted by type
func GetErrorTypeCounts(opts *RequestOptions) ([]ErrorTypeCount, error) {
	return selectRows[ErrorTypeCount](opts, "error_type, COUNT(id_error) AS num_errors",
		"DBPREFIXlog_errors", &Listing{Where: "1=1 GROUP BY error_type", OrderBy: "error_type"})
}

// DeleteErrorLog deletes the entries with the given IDs that match the where clause.
// If ids is nil, every entry matching the where clause is deleted
func DeleteErrorLog(opts *RequestOptions, ids []int, where string, args ...any) (int64, error) {
	return deleteRows(opts, "DBPREFIXlog_errors", "id_error", ids, where, args...)
}
