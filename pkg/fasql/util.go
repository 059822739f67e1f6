package fasql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

const (
	MySQLDatetimeFormat = "2006-01-02 15:04:05"
)

var (
	ErrUnsupportedDB = errors.New("unsupported SQL driver")
	ErrNotConnected  = errors.New("error connecting to database")
	ErrNoRows        = sql.ErrNoRows
)

// RequestOptions is used to pass a context, cancel function, and/or transaction to the query functions
type RequestOptions struct {
	Context context.Context
	Cancel  context.CancelFunc
	Tx      *sql.Tx
}

// ContextOptions returns request options for running queries in the context of an HTTP request,
// so that the queries are tied to the request in the query log
func ContextOptions(ctx context.Context) *RequestOptions {
	return &RequestOptions{Context: ctx}
}

// PrepareContextSQL is used for generating a prepared SQL statement formatted according to the configured database driver
func PrepareContextSQL(ctx context.Context, query string, tx *sql.Tx) (*sql.Stmt, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fadb.PrepareContextSQL(ctx, query, tx)
}

// Close closes the connection to the SQL database
func Close() error {
	if fadb != nil {
		return fadb.Close()
	}
	return nil
}

// SQLDriver returns the name of the configured driver, or an empty string if there is no connection
func SQLDriver() string {
	if fadb == nil {
		return ""
	}
	return fadb.driver
}

// SetupSQLString replaces DBPREFIX and rebinds the placeholders of the query for the configured driver
func SetupSQLString(query string) (string, error) {
	if fadb == nil {
		return "", ErrNotConnected
	}
	return fadb.SetupSQLString(query), nil
}

// Exec executes the query using the given request options
func Exec(opts *RequestOptions, query string, values ...any) (sql.Result, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	return fadb.Exec(opts, query, values...)
}

/*
ExecSQL automatically escapes the given values and caches the statement
Example:

	var intVal int
	var stringVal string
	result, err := fasql.ExecSQL("INSERT INTO tablename (intval,stringval) VALUES(?,?)", intVal, stringVal)
*/
func ExecSQL(query string, values ...any) (sql.Result, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	return fadb.ExecSQL(query, values...)
}

// ExecTxSQL executes the query in the given transaction
func ExecTxSQL(tx *sql.Tx, query string, values ...any) (sql.Result, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	return fadb.ExecTxSQL(tx, query, values...)
}

// QueryRow gets a row from the db with the values in values[] and fills the respective pointers in out[]
func QueryRow(opts *RequestOptions, query string, values, out []any) error {
	if fadb == nil {
		return ErrNotConnected
	}
	return fadb.QueryRow(opts, query, values, out)
}

/*
QueryRowSQL gets a row from the db with the values in values[] and fills the respective pointers in out[]
Example:

	id := 32
	var intVal int
	var stringVal string
	err := QueryRowSQL("SELECT intval,stringval FROM table WHERE id = ?",
		[]any{id},
		[]any{&intVal, &stringVal})
*/
func QueryRowSQL(query string, values, out []any) error {
	if fadb == nil {
		return ErrNotConnected
	}
	return fadb.QueryRowSQL(query, values, out)
}

// Query runs the query using the given request options and returns the rows. The caller is
// responsible for closing them
func Query(opts *RequestOptions, query string, values ...any) (*sql.Rows, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	return fadb.Query(opts, query, values...)
}

// QuerySQL runs the query and returns the rows. The caller is responsible for closing them
func QuerySQL(query string, values ...any) (*sql.Rows, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	return fadb.QuerySQL(query, values...)
}

// BeginTx begins a new transaction with a background context
func BeginTx() (*sql.Tx, error) {
	return BeginContextTx(context.Background())
}

// BeginContextTx begins a new transaction with the given context
func BeginContextTx(ctx context.Context) (*sql.Tx, error) {
	if fadb == nil {
		return nil, ErrNotConnected
	}
	return fadb.BeginContextTx(ctx)
}

func optsTx(opts *RequestOptions) *sql.Tx {
	if opts == nil {
		return nil
	}
	return opts.Tx
}

func optsContext(opts *RequestOptions) context.Context {
	if opts == nil || opts.Context == nil {
		return context.Background()
	}
	return opts.Context
}

// optsWithTx returns a copy of opts (which may be nil) using the given transaction
func optsWithTx(opts *RequestOptions, tx *sql.Tx) *RequestOptions {
	newOpts := &RequestOptions{Tx: tx}
	if opts != nil {
		newOpts.Context = opts.Context
	}
	return newOpts
}

// inPlaceholders returns "?,?,?" with n placeholders for use in IN (...) clauses
func inPlaceholders(n int) string {
	if n < 1 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// intsToArgs converts a slice of ints to a slice of query arguments
func intsToArgs(ints []int) []any {
	args := make([]any, len(ints))
	for i, v := range ints {
		args[i] = v
	}
	return args
}

func errFilterDuplicatePrimaryKey(err error) (isPKerror bool, nonPKerror error) {
	if err == nil {
		return false, nil
	}

	switch fadb.driver {
	case "mysql":
		if !strings.Contains(err.Error(), "Duplicate entry") {
			return false, err
		}
	case "postgres":
		if !strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return false, err
		}
	case "sqlite3":
		if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, err
		}
	}
	return true, nil
}
