// Package querylog keeps the SQL statements run while handling a staff member's most recent request,
// so that they can be inspected in the query viewer
package querylog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forumkit/forumadmin/pkg/fautil"
)

const (
	maxQueriesPerRequest = 500
	maxSessions          = 100
)

// Entry is a single recorded statement
type Entry struct {
	Op       string
	Query    string
	Args     string
	Error    string
	Duration time.Duration
	Start    time.Time
}

// IsSelect returns true if the statement is a SELECT query, and can therefore be explained
func (e *Entry) IsSelect() bool {
	trimmed := strings.TrimLeft(e.Query, " \t\r\n(")
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "SELECT")
}

// Request holds the statements recorded for one HTTP request
type Request struct {
	ID      string
	Path    string
	Started time.Time
	Entries []Entry
}

// TotalDuration returns the sum of the durations of every recorded statement
func (r *Request) TotalDuration() time.Duration {
	var total time.Duration
	for _, entry := range r.Entries {
		total += entry.Duration
	}
	return total
}

type activeRequest struct {
	session string
	req     *Request
}

var (
	mu        sync.Mutex
	active    = map[string]*activeRequest{}
	completed = map[string]*Request{}
)

// Begin starts recording statements run with a context carrying requestID, on behalf of the staff session
func Begin(requestID, session, path string) {
	if requestID == "" || session == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	active[requestID] = &activeRequest{
		session: session,
		req:     &Request{ID: requestID, Path: path, Started: time.Now()},
	}
}

// End stops recording for requestID and makes it the most recent request of its session
func End(requestID string) {
	mu.Lock()
	defer mu.Unlock()
	ar, ok := active[requestID]
	if !ok {
		return
	}
	delete(active, requestID)
	completed[ar.session] = ar.req
	if len(completed) > maxSessions {
		evictOldest()
	}
}

func evictOldest() {
	var oldestSession string
	var oldest time.Time
	for session, req := range completed {
		if oldestSession == "" || req.Started.Before(oldest) {
			oldestSession = session
			oldest = req.Started
		}
	}
	delete(completed, oldestSession)
}

// ForSession returns the most recently completed request of the staff session, or nil if nothing was recorded
func ForSession(session string) *Request {
	mu.Lock()
	defer mu.Unlock()
	req, ok := completed[session]
	if !ok {
		return nil
	}
	reqCopy := *req
	reqCopy.Entries = append([]Entry(nil), req.Entries...)
	return &reqCopy
}

// Reset discards everything that has been recorded
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	active = map[string]*activeRequest{}
	completed = map[string]*Request{}
}

// Log receives the events of the instrumented SQL drivers. Events without a query (transaction begin/commit,
// etc) and statement preparation are ignored, as are events from contexts that aren't being recorded
func Log(ctx context.Context, msg string, keyvals ...any) {
	requestID := fautil.RequestID(ctx)
	if requestID == "" || msg == "sql-prepare" {
		return
	}
	entry := Entry{Op: msg}
	hasQuery := false
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, _ := keyvals[i].(string)
		val := keyvals[i+1]
		switch key {
		case "query":
			entry.Query, _ = val.(string)
			hasQuery = entry.Query != ""
		case "args":
			entry.Args = fmt.Sprint(val)
		case "err":
			if err, ok := val.(error); ok && err != nil {
				entry.Error = err.Error()
			}
		case "duration":
			entry.Duration, _ = val.(time.Duration)
		}
	}
	if !hasQuery {
		return
	}
	entry.Start = time.Now().Add(-entry.Duration)

	mu.Lock()
	defer mu.Unlock()
	ar, ok := active[requestID]
	if !ok || len(ar.req.Entries) >= maxQueriesPerRequest {
		return
	}
	ar.req.Entries = append(ar.req.Entries, entry)
}

// Sessions returns the sessions with a completed request, sorted by the time the request started
func Sessions() []string {
	mu.Lock()
	defer mu.Unlock()
	sessions := make([]string, 0, len(completed))
	for session := range completed {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return completed[sessions[i]].Started.Before(completed[sessions[j]].Started)
	})
	return sessions
}
