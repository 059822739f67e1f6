package manage

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fasql/querylog"
	"github.com/forumkit/forumadmin/pkg/fatemplates"
	"github.com/forumkit/forumadmin/pkg/server"
)

var (
	ErrDebugDisabled = server.NewServerError("the query viewer is only available in debug mode", http.StatusNotFound)
	ErrNotExplicable = server.NewServerError("only SELECT queries can be explained", http.StatusBadRequest)

	postgresPlaceholderRE = regexp.MustCompile(`\$(\d+)`)
)

type explainResult struct {
	Columns []string
	Rows    [][]string
}

// explainPrefix returns the statement that shows the query plan with the current driver
func explainPrefix() string {
	if fasql.SQLDriver() == "sqlite3" {
		return "EXPLAIN QUERY PLAN "
	}
	return "EXPLAIN "
}

// outsideQuotes returns the query with its string literals and quoted identifiers removed. Quotes
// are escaped by doubling them, or with a backslash in MySQL
func outsideQuotes(query string) string {
	var sb strings.Builder
	var quote rune
	backslashEscapes := fasql.SQLDriver() == "mysql"
	escaped := false
	for _, r := range query {
		switch {
		case quote == 0:
			if r == '\'' || r == '"' || r == '`' {
				quote = r
				continue
			}
			sb.WriteRune(r)
		case escaped:
			escaped = false
		case r == '\\' && backslashEscapes:
			escaped = true
		case r == quote:
			// a doubled quote ends the literal and immediately opens it again
			quote = 0
		}
	}
	return sb.String()
}

// placeholderCount returns the number of arguments the recorded query takes
func placeholderCount(query string) int {
	query = outsideQuotes(query)
	if fasql.SQLDriver() == "postgres" {
		var highest int
		for _, match := range postgresPlaceholderRE.FindAllStringSubmatch(query, -1) {
			if n, err := strconv.Atoi(match[1]); err == nil && n > highest {
				highest = n
			}
		}
		return highest
	}
	return strings.Count(query, "?")
}

// explainQuery runs EXPLAIN on the query with every placeholder bound to NULL
func explainQuery(opts *fasql.RequestOptions, query string) (*explainResult, error) {
	args := make([]any, placeholderCount(query))
	rows, err := fasql.Query(opts, explainPrefix()+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := &explainResult{}
	if result.Columns, err = rows.Columns(); err != nil {
		return nil, err
	}
	for rows.Next() {
		values, err := sqlx.SliceScan(rows)
		if err != nil {
			return nil, err
		}
		row := make([]string, len(values))
		for v, val := range values {
			switch typed := val.(type) {
			case nil:
				row[v] = "NULL"
			case []byte:
				row[v] = string(typed)
			default:
				row[v] = fmt.Sprint(typed)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func viewQueryCallback(writer http.ResponseWriter, request *http.Request, _ *fasql.Staff, wantsJSON bool, _ *zerolog.Event, errEv *zerolog.Event) (any, error) {
	if !config.DebugEnabled() {
		writer.WriteHeader(http.StatusNotFound)
		return nil, ErrDebugDisabled
	}
	recorded := querylog.ForSession(sessionKey(request))
	data := map[string]any{
		"request":  recorded,
		"selected": -1,
	}
	if qqStr := request.FormValue("qq"); qqStr != "" && recorded != nil {
		qq, err := strconv.Atoi(qqStr)
		if err != nil || qq < 0 || qq >= len(recorded.Entries) {
			writer.WriteHeader(http.StatusBadRequest)
			return nil, server.NewServerError("invalid query index", http.StatusBadRequest)
		}
		entry := recorded.Entries[qq]
		if !entry.IsSelect() {
			writer.WriteHeader(http.StatusBadRequest)
			return nil, ErrNotExplicable
		}
		explain, err := explainQuery(fasql.ContextOptions(request.Context()), entry.Query)
		if err != nil {
			errEv.Err(err).Caller().Str("query", entry.Query).Msg("Unable to explain query")
			data["notice"] = "Unable to explain the query: " + err.Error()
		} else {
			data["explain"] = explain
		}
		data["selected"] = qq
	}
	if wantsJSON {
		return data, nil
	}
	return renderTemplate(fatemplates.ManageViewQuery, data)
}

func registerViewQueryPage() {
	registerAction(Action{
		ID:          "viewquery",
		Title:       "Query viewer",
		Permissions: AdminPerms,
		Permission:  "admin_forum",
		Hidden:      true,
		JSONoutput:  OptionalJSON,
		Callback:    viewQueryCallback,
	})
}
