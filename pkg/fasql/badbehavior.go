package fasql

import (
	"strings"
	"time"
)

const badBehaviorColumns = `id, ip, log_time, request_method, request_uri, server_protocol, http_headers,
	user_agent, request_entity, valid, id_member, session`

// BadBehaviorEntry is a request that was logged by the bad behavior checks
type BadBehaviorEntry struct {
	ID             int    `db:"id" json:"id"`
	IP             string `db:"ip" json:"ip"`
	LogTime        int64  `db:"log_time" json:"log_time"`
	RequestMethod  string `db:"request_method" json:"request_method"`
	RequestURI     string `db:"request_uri" json:"request_uri"`
	ServerProtocol string `db:"server_protocol" json:"server_protocol"`
	HTTPHeaders    string `db:"http_headers" json:"http_headers"`
	UserAgent      string `db:"user_agent" json:"user_agent"`
	RequestEntity  string `db:"request_entity" json:"request_entity"`
	Valid          string `db:"valid" json:"valid"`
	MemberID       int    `db:"id_member" json:"id_member"`
	Session        string `db:"session" json:"session"`
}

// Time returns the time the request was logged
func (e *BadBehaviorEntry) Time() time.Time {
	return time.Unix(e.LogTime, 0)
}

// Headers returns the logged HTTP headers, one per line
func (e *BadBehaviorEntry) Headers() []string {
	var headers []string
	for _, line := range strings.Split(strings.ReplaceAll(e.HTTPHeaders, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			headers = append(headers, line)
		}
	}
	return headers
}

// LogBadBehavior stores a bad behavior log entry
func LogBadBehavior(opts *RequestOptions, entry *BadBehaviorEntry) error {
	if entry.LogTime == 0 {
		entry.LogTime = time.Now().Unix()
	}
	const insertSQL = `INSERT INTO DBPREFIXlog_badbehavior
	(ip, log_time, request_method, request_uri, server_protocol, http_headers, user_agent, request_entity, valid, id_member, session)
	VALUES(?,?,?,?,?,?,?,?,?,?,?)`
	_, err := Exec(opts, insertSQL, entry.IP, entry.LogTime, entry.RequestMethod, entry.RequestURI, entry.ServerProtocol,
		entry.HTTPHeaders, entry.UserAgent, entry.RequestEntity, entry.Valid, entry.MemberID, entry.Session)
	return err
}

// CountBadBehaviorLog returns the number of entries matching the listing
func CountBadBehaviorLog(opts *RequestOptions, listing *Listing) (int, error) {
	return countRows(opts, "DBPREFIXlog_badbehavior", listing)
}

// GetBadBehaviorLog returns the entries selected by the listing
func GetBadBehaviorLog(opts *RequestOptions, listing *Listing) ([]BadBehaviorEntry, error) {
	return selectRows[BadBehaviorEntry](opts, badBehaviorColumns, "DBPREFIXlog_badbehavior", listing)
}

// GetBadBehaviorEntry returns a single bad behavior log entry
func GetBadBehaviorEntry(opts *RequestOptions, id int) (*BadBehaviorEntry, error) {
	entries, err := selectRows[BadBehaviorEntry](opts, badBehaviorColumns, "DBPREFIXlog_badbehavior", &Listing{
		Where: "id = ?",
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

// DeleteBadBehaviorLog deletes the entries with the given IDs that match the where clause.
// If ids is nil, every entry matching the where clause is deleted
func DeleteBadBehaviorLog(opts *RequestOptions, ids []int, where string, args ...any) (int64, error) {
	return deleteRows(opts, "DBPREFIXlog_badbehavior", "id", ids, where, args...)
}
