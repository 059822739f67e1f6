package fasql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/forumkit/forumadmin/pkg/config"
)

const (
	UnsupportedSQLVersionMsg = `syntax error in SQL query, confirm you are using a supported driver and SQL server (error text: %s)`
	mysqlConnStr             = "%s:%s@tcp(%s)/%s?parseTime=true&collation=utf8mb4_unicode_ci"
	postgresConnStr          = "postgres://%s:%s@%s/%s?sslmode=disable"
	sqlite3ConnStr           = "file:%s?_auth&_auth_user=%s&_auth_pass=%s&_auth_crypt=sha1"
)

var (
	fadb *FADB

	tcpHostIsolator = regexp.MustCompile(`\b(tcp\()?([^\(\)]*)\b`)
)

// FADB wraps the database connection, the configured driver, and the replacer used to
// fill in DBPREFIX and DBNAME in queries
type FADB struct {
	db       *sql.DB
	connStr  string
	driver   string
	bindType int
	replacer *strings.Replacer
	timeout  time.Duration
}

func (db *FADB) ConnectionString() string {
	return db.connStr
}

func (db *FADB) Connection() *sql.DB {
	return db.db
}

func (db *FADB) SQLDriver() string {
	return db.driver
}

func (db *FADB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// SetupSQLString replaces DBPREFIX and DBNAME in the query and rebinds the ? placeholders to the
// style the driver expects (e.g. $1, $2 for PostgreSQL)
func (db *FADB) SetupSQLString(query string) string {
	return sqlx.Rebind(db.bindType, db.replacer.Replace(query))
}

// PrepareContextSQL creates a prepared statement for the query using the given context, and
// the transaction if it is not nil
func (db *FADB) PrepareContextSQL(ctx context.Context, query string, tx *sql.Tx) (*sql.Stmt, error) {
	prepared := db.SetupSQLString(query)
	var stmt *sql.Stmt
	var err error
	if tx != nil {
		stmt, err = tx.PrepareContext(ctx, prepared)
	} else {
		stmt, err = db.db.PrepareContext(ctx, prepared)
	}
	if err != nil {
		return nil, sqlVersionError(err, db.driver, &prepared)
	}
	return stmt, nil
}

// Exec executes the query with the given options, creating a timeout context if one wasn't provided
func (db *FADB) Exec(opts *RequestOptions, query string, values ...any) (sql.Result, error) {
	opts = db.setupOptions(opts)
	defer opts.Cancel()
	stmt, err := db.PrepareContextSQL(opts.Context, query, opts.Tx)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.ExecContext(opts.Context, values...)
}

/*
ExecSQL automatically escapes the given values and caches the statement
Example:

	var intVal int
	var stringVal string
	result, err := db.ExecSQL("INSERT INTO tablename (intval,stringval) VALUES(?,?)", intVal, stringVal)
*/
func (db *FADB) ExecSQL(query string, values ...any) (sql.Result, error) {
	return db.Exec(nil, query, values...)
}

/*
ExecTxSQL automatically escapes the given values and caches the statement
Example:

	tx, err := BeginTx()
	// do error handling stuff
	defer tx.Rollback()
	var intVal int
	var stringVal string
	result, err := db.ExecTxSQL(tx, "INSERT INTO tablename (intval,stringval) VALUES(?,?)",
		intVal, stringVal)
*/
func (db *FADB) ExecTxSQL(tx *sql.Tx, query string, values ...any) (sql.Result, error) {
	return db.Exec(&RequestOptions{Tx: tx}, query, values...)
}

// QueryRow gets a row from the db with the values in values[] and fills the respective pointers in out[]
func (db *FADB) QueryRow(opts *RequestOptions, query string, values, out []any) error {
	opts = db.setupOptions(opts)
	defer opts.Cancel()
	stmt, err := db.PrepareContextSQL(opts.Context, query, opts.Tx)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.QueryRowContext(opts.Context, values...).Scan(out...)
}

/*
QueryRowSQL gets a row from the db with the values in values[] and fills the respective pointers in out[]
Automatically escapes the given values and caches the query
Example:

	id := 32
	var intVal int
	var stringVal string
	err := db.QueryRowSQL("SELECT intval,stringval FROM table WHERE id = ?",
		[]any{id},
		[]any{&intVal, &stringVal})
*/
func (db *FADB) QueryRowSQL(query string, values, out []any) error {
	return db.QueryRow(nil, query, values, out)
}

// Query runs the query and returns the resulting rows. Unlike Exec and QueryRow, no timeout is applied
// unless opts.Context has one, since the rows are read after Query returns
func (db *FADB) Query(opts *RequestOptions, query string, values ...any) (*sql.Rows, error) {
	ctx := context.Background()
	var tx *sql.Tx
	if opts != nil {
		if opts.Context != nil {
			ctx = opts.Context
		}
		tx = opts.Tx
	}
	stmt, err := db.PrepareContextSQL(ctx, query, tx)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.QueryContext(ctx, values...)
}

/*
QuerySQL gets all rows from the db with the values in values[]
Example:

	rows, err := db.QuerySQL("SELECT * FROM table")
	if err == nil {
		for rows.Next() {
			var intVal int
			var stringVal string
			rows.Scan(&intVal, &stringVal)
			// do something with intVal and stringVal
		}
	}
*/
func (db *FADB) QuerySQL(query string, values ...any) (*sql.Rows, error) {
	return db.Query(nil, query, values...)
}

// BeginContextTx creates and returns a new SQL transaction using the given context
func (db *FADB) BeginContextTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

func (db *FADB) setupOptions(opts *RequestOptions) *RequestOptions {
	newOpts := &RequestOptions{}
	if opts != nil {
		*newOpts = *opts
	}
	if newOpts.Context == nil {
		newOpts.Context = context.Background()
	}
	var cancel context.CancelFunc
	newOpts.Context, cancel = context.WithTimeout(newOpts.Context, db.timeout)
	parentCancel := newOpts.Cancel
	newOpts.Cancel = func() {
		cancel()
		if parentCancel != nil {
			parentCancel()
		}
	}
	return newOpts
}

func setupDBConn(cfg config.SQLConfig) (*FADB, error) {
	db := &FADB{
		driver:   cfg.DBtype,
		bindType: sqlx.BindType(cfg.DBtype),
		replacer: strings.NewReplacer(
			"DBNAME", cfg.DBname,
			"DBPREFIX", cfg.DBprefix,
			"\n", " "),
		timeout: time.Duration(cfg.DBTimeoutSeconds) * time.Second,
	}
	if db.timeout <= 0 {
		db.timeout = config.DefaultSQLTimeout * time.Second
	}

	host := cfg.DBhost
	if cfg.DBtype != "sqlite3" {
		addrMatches := tcpHostIsolator.FindAllStringSubmatch(host, -1)
		if len(addrMatches) > 0 && len(addrMatches[0]) > 2 {
			host = addrMatches[0][2]
		}
	}

	switch cfg.DBtype {
	case "mysql":
		db.connStr = fmt.Sprintf(mysqlConnStr, cfg.DBusername, cfg.DBpassword, host, cfg.DBname)
	case "postgres":
		db.connStr = fmt.Sprintf(postgresConnStr, cfg.DBusername, cfg.DBpassword, host, cfg.DBname)
	case "sqlite3":
		db.connStr = fmt.Sprintf(sqlite3ConnStr, host, cfg.DBusername, cfg.DBpassword)
	default:
		return nil, ErrUnsupportedDB
	}
	return db, nil
}

// Open creates a new database connection with the given SQL configuration. If instrumented is true,
// the connection uses a driver wrapper that records every statement in the query log
func Open(cfg config.SQLConfig, instrumented bool) (db *FADB, err error) {
	if db, err = setupDBConn(cfg); err != nil {
		return nil, err
	}
	driverName := db.driver
	if instrumented {
		driverName = instrumentedDriverPrefix + db.driver
	}
	if db.db, err = sql.Open(driverName, db.connStr); err != nil {
		return nil, err
	}
	db.db.SetConnMaxLifetime(time.Minute * time.Duration(cfg.DBConnMaxLifetimeMin))
	db.db.SetMaxOpenConns(cfg.DBMaxOpenConnections)
	db.db.SetMaxIdleConns(cfg.DBMaxIdleConnections)

	ctx, cancel := context.WithTimeout(context.Background(), db.timeout)
	defer cancel()
	if err = db.db.PingContext(ctx); err != nil {
		db.db.Close()
		return nil, err
	}
	return db, nil
}

func sqlVersionError(err error, dbDriver string, query *string) error {
	if err == nil {
		return nil
	}
	errText := err.Error()
	switch dbDriver {
	case "mysql":
		if !strings.Contains(errText, "You have an error in your SQL syntax") {
			return err
		}
	case "postgres":
		if !strings.Contains(errText, "syntax error at or near") {
			return err
		}
	default:
		return err
	}
	if config.GetSystemCriticalConfig().Verbose {
		return fmt.Errorf(UnsupportedSQLVersionMsg+"\nQuery: "+*query, errText)
	}
	return fmt.Errorf(UnsupportedSQLVersionMsg, errText)
}
