package fasql

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PruneLogNames are the settings that hold the number of days to keep each log, in the order they are
// stored in the pruningOptions setting
var PruneLogNames = []string{
	"pruneErrorLog",
	"pruneModLog",
	"pruneBanLog",
	"pruneReportLog",
	"pruneScheduledTaskLog",
	"pruneBadbehaviorLog",
	"pruneSpiderHitLog",
}

// PruningOptions holds the number of days to keep each log. Zero means the log is never pruned
type PruningOptions struct {
	Enabled          bool
	ErrorLog         int
	ModLog           int
	BanLog           int
	ReportLog        int
	ScheduledTaskLog int
	BadBehaviorLog   int
	SpiderHitLog     int
}

func (p *PruningOptions) fields() []*int {
	return []*int{&p.ErrorLog, &p.ModLog, &p.BanLog, &p.ReportLog, &p.ScheduledTaskLog, &p.BadBehaviorLog, &p.SpiderHitLog}
}

// ParsePruningOptions decodes the comma separated pruningOptions setting. An empty string means pruning
// is disabled, missing or invalid values are treated as 0
func ParsePruningOptions(csv string) PruningOptions {
	var p PruningOptions
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return p
	}
	p.Enabled = true
	values := strings.Split(csv, ",")
	for i, field := range p.fields() {
		if i >= len(values) {
			break
		}
		days, err := strconv.Atoi(strings.TrimSpace(values[i]))
		if err == nil && days > 0 {
			*field = days
		}
	}
	return p
}

// PruningOptionsFromValues builds the options from a map of the values in PruneLogNames
func PruningOptionsFromValues(enabled bool, values map[string]int) PruningOptions {
	p := PruningOptions{Enabled: enabled}
	for i, field := range p.fields() {
		*field = max(values[PruneLogNames[i]], 0)
	}
	return p
}

// Values returns the number of days for each log, keyed by the names in PruneLogNames
func (p *PruningOptions) Values() map[string]int {
	values := make(map[string]int, len(PruneLogNames))
	for i, field := range p.fields() {
		values[PruneLogNames[i]] = *field
	}
	return values
}

// String encodes the options the way they are stored in the pruningOptions setting
func (p *PruningOptions) String() string {
	if !p.Enabled {
		return ""
	}
	strs := make([]string, 0, len(PruneLogNames))
	for _, field := range p.fields() {
		strs = append(strs, strconv.Itoa(*field))
	}
	return strings.Join(strs, ",")
}

// PruneResult holds the number of entries deleted from each log
type PruneResult map[string]int64

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (r PruneResult) MarshalZerologObject(e *zerolog.Event) {
	for log, count := range r {
		e.Int64(log, count)
	}
}

// PruneLogs deletes log entries older than the configured number of days. The scheduled task and spider
// hit logs aren't stored by the admin panel and are skipped
func PruneLogs(opts *RequestOptions, p PruningOptions, now time.Time) (PruneResult, error) {
	result := PruneResult{}
	if !p.Enabled {
		return result, nil
	}
	cutoff := func(days int) int64 {
		return now.Add(-time.Duration(days) * 24 * time.Hour).Unix()
	}
	type pruneStep struct {
		name  string
		days  int
		table string
		where string
		args  []any
	}
	steps := []pruneStep{
		{"pruneErrorLog", p.ErrorLog, "DBPREFIXlog_errors", "log_time < ?", nil},
		{"pruneModLog", p.ModLog, "DBPREFIXlog_actions", "id_log = ? AND log_time < ?", []any{ModerationLog}},
		{"pruneBanLog", p.BanLog, "DBPREFIXlog_actions", "id_log = ? AND log_time < ?", []any{AdminLog}},
		{"pruneReportLog", p.ReportLog, "DBPREFIXlog_actions", "id_log = ? AND log_time < ?", []any{ReportLog}},
		{"pruneBadbehaviorLog", p.BadBehaviorLog, "DBPREFIXlog_badbehavior", "log_time < ?", nil},
	}
	for _, step := range steps {
		if step.days <= 0 {
			continue
		}
		args := append(step.args, cutoff(step.days))
		deleted, err := deleteRows(opts, step.table, "", nil, step.where, args...)
		if err != nil {
			return result, err
		}
		result[step.name] = deleted
	}
	return result, nil
}
