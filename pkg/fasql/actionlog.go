package fasql

import (
	"encoding/json"
	"time"
)

const (
	ModerationLog = 1
	ReportLog     = 2
	AdminLog      = 3

	// ActionLogMinAge is how old a moderation or admin log entry must be before it can be removed
	ActionLogMinAge = 24 * time.Hour

	actionLogColumns = `id_action, id_log, log_time, id_member, ip, action, id_board, id_topic, id_msg, extra,
	COALESCE(staff.username, '') AS member_name, COALESCE(staff.global_rank, 0) AS staff_rank`
	actionLogFrom = "DBPREFIXlog_actions LEFT JOIN DBPREFIXstaff AS staff ON staff.id = id_member"
)

// ActionLogEntry is a row of the moderation, report, or admin log, with the name and rank of the staff
// member who performed the action
type ActionLogEntry struct {
	ID         int    `db:"id_action" json:"id"`
	LogType    int    `db:"id_log" json:"id_log"`
	LogTime    int64  `db:"log_time" json:"log_time"`
	MemberID   int    `db:"id_member" json:"id_member"`
	IP         string `db:"ip" json:"ip"`
	Action     string `db:"action" json:"action"`
	BoardID    int    `db:"id_board" json:"id_board"`
	TopicID    int    `db:"id_topic" json:"id_topic"`
	MessageID  int    `db:"id_msg" json:"id_msg"`
	Extra      string `db:"extra" json:"extra"`
	MemberName string `db:"member_name" json:"member_name"`
	StaffRank  int    `db:"staff_rank" json:"staff_rank"`
}

// Time returns the time the action was logged
func (e *ActionLogEntry) Time() time.Time {
	return time.Unix(e.LogTime, 0)
}

// ExtraDetails decodes the JSON object of extra details. Invalid JSON results in an empty map
func (e *ActionLogEntry) ExtraDetails() map[string]any {
	details := map[string]any{}
	if e.Extra != "" {
		json.Unmarshal([]byte(e.Extra), &details)
	}
	return details
}

// Position returns the name of the rank of the staff member who performed the action
func (e *ActionLogEntry) Position() string {
	return RankTitle(e.StaffRank)
}

// LogAction adds an entry to the moderation (or report or admin) log. The board, topic, and msg keys of
// extra are also stored in their own columns
func LogAction(opts *RequestOptions, logType int, action string, staffID int, ip string, extra map[string]any) error {
	if logType == ModerationLog && !GetSettingBool("modlog_enabled") {
		return nil
	}
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return err
	}
	const insertSQL = `INSERT INTO DBPREFIXlog_actions
	(id_log, log_time, id_member, ip, action, id_board, id_topic, id_msg, extra)
	VALUES(?,?,?,?,?,?,?,?,?)`
	_, err = Exec(opts, insertSQL, logType, time.Now().Unix(), staffID, ip, action,
		extraInt(extra, "board"), extraInt(extra, "topic"), extraInt(extra, "msg"), string(extraJSON))
	return err
}

func extraInt(extra map[string]any, key string) int {
	switch val := extra[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return 0
}

func actionLogListing(logType int, listing *Listing) *Listing {
	newListing := Listing{Where: "id_log = ?", Args: []any{logType}}
	if listing != nil {
		newListing.OrderBy = listing.OrderBy
		newListing.Limit = listing.Limit
		newListing.Offset = listing.Offset
		if listing.Where != "" {
			newListing.Where += " AND (" + listing.Where + ")"
			newListing.Args = append(newListing.Args, listing.Args...)
		}
	}
	return &newListing
}

// CountActionLog returns the number of entries of the log type matching the listing
func CountActionLog(opts *RequestOptions, logType int, listing *Listing) (int, error) {
	return countRows(opts, actionLogFrom, actionLogListing(logType, listing))
}

// GetActionLog returns the entries of the log type selected by the listing
func GetActionLog(opts *RequestOptions, logType int, listing *Listing) ([]ActionLogEntry, error) {
	return selectRows[ActionLogEntry](opts, actionLogColumns, actionLogFrom, actionLogListing(logType, listing))
}

// DeleteActionLog deletes entries of the log type that match the where clause and are older than ActionLogMinAge.
// If ids is nil, every matching entry is deleted, otherwise only the ones with the given IDs
func DeleteActionLog(opts *RequestOptions, logType int, ids []int, now time.Time, where string, args ...any) (int64, error) {
	fullWhere := "id_log = ? AND log_time < ?"
	fullArgs := []any{logType, now.Add(-ActionLogMinAge).Unix()}
	if where != "" {
		fullWhere += " AND (" + where + ")"
		fullArgs = append(fullArgs, args...)
	}
	return deleteRows(opts, "DBPREFIXlog_actions", "id_action", ids, fullWhere, fullArgs...)
}
