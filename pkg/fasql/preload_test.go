package fasql

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
)

func TestPreloadModule(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`SELECT id, username FROM staff WHERE id = \?`).ExpectQuery().
		WithArgs(float64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, []byte("admin")))

	l := lua.NewState()
	defer l.Close()
	l.PreloadModule("fasql", PreloadModule)
	err := l.DoString(`local fasql = require("fasql")
local rows, err = fasql.query_rows("SELECT id, username FROM DBPREFIXstaff WHERE id = ?", {1})
if err ~= nil then
	error(err)
end
local row = {}
if rows:Next() then
	fasql.scan_rows(rows, row)
end
rows:Close()
return row.username, fasql.get_setting("pruningOptions")`)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "admin", l.Get(-2).String())
	assert.Equal(t, DefaultSettings["pruningOptions"], l.Get(-1).String())
}
