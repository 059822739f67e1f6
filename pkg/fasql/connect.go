package fasql

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/luna-duclos/instrumentedsql"
	"github.com/mattn/go-sqlite3"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql/querylog"
	"github.com/forumkit/forumadmin/pkg/fautil/testutil"
)

const instrumentedDriverPrefix = "instrumented-"

// instrumentedOpts skips the driver events that never carry a statement worth recording
func instrumentedOpts() []instrumentedsql.Opt {
	return []instrumentedsql.Opt{
		instrumentedsql.WithLogger(instrumentedsql.LoggerFunc(querylog.Log)),
		instrumentedsql.WithOpsExcluded(
			instrumentedsql.OpSQLRowsNext,
			instrumentedsql.OpSQLPrepare,
			instrumentedsql.OpSQLStmtClose,
			instrumentedsql.OpSQLResLastInsertID,
			instrumentedsql.OpSQLResRowsAffected,
		),
	}
}

func init() {
	sql.Register(instrumentedDriverPrefix+"mysql",
		instrumentedsql.WrapDriver(&mysql.MySQLDriver{}, instrumentedOpts()...))
	sql.Register(instrumentedDriverPrefix+"postgres",
		instrumentedsql.WrapDriver(&pq.Driver{}, instrumentedOpts()...))
	sql.Register(instrumentedDriverPrefix+"sqlite3",
		instrumentedsql.WrapDriver(&sqlite3.SQLiteDriver{}, instrumentedOpts()...))
}

// ConnectToDB initializes the database connection using the SQL configuration. If debug mode is enabled,
// statements are recorded for the query viewer
func ConnectToDB(cfg config.SQLConfig) error {
	db, err := Open(cfg, config.DebugEnabled())
	if err != nil {
		return err
	}
	fadb = db
	return nil
}

// SetTestingDB sets up the connection for tests, using the given *sql.DB (usually from sqlmock).
// It will panic if it is not run in a test environment
func SetTestingDB(dbDriver string, dbName string, dbPrefix string, db *sql.DB) (err error) {
	testutil.PanicIfNotTest()
	sqlCfg := config.GetSQLConfig()
	sqlCfg.DBtype = dbDriver
	sqlCfg.DBname = dbName
	sqlCfg.DBprefix = dbPrefix
	if fadb, err = setupDBConn(sqlCfg); err != nil {
		return err
	}
	fadb.db = db
	resetSettingsCache()
	return nil
}
