package fasql

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestIsAllowedToDefaults(t *testing.T) {
	ResetPermissions()
	testCases := []struct {
		rank       int
		permission string
		expect     bool
	}{
		{AdminPerms, "admin_forum", true},
		{AdminPerms, "made_up_permission", true},
		{ModPerms, "admin_forum", false},
		{ModPerms, "access_mod_center", true},
		{JanitorPerms, "access_mod_center", false},
		{NoPerms, "calendar_view", true},
		{NoPerms, "calendar_post", false},
		{ModPerms, "made_up_permission", false},
	}
	for _, tC := range testCases {
		t.Run(RankTitle(tC.rank)+" "+tC.permission, func(t *testing.T) {
			assert.Equal(t, tC.expect, IsAllowedTo(tC.rank, tC.permission))
		})
	}
}

func TestLoadPermissions(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectPrepare(`SELECT staff_rank, permission, add_deny FROM permissions`).ExpectQuery().WillReturnRows(
		sqlmock.NewRows([]string{"staff_rank", "permission", "add_deny"}).
			AddRow(NoPerms, "calendar_view", 0).
			AddRow(JanitorPerms, "admin_forum", 1),
	)
	if !assert.NoError(t, LoadPermissions(nil)) {
		t.FailNow()
	}
	assert.False(t, IsAllowedTo(NoPerms, "calendar_view"))
	assert.True(t, IsAllowedTo(JanitorPerms, "admin_forum"))
	assert.False(t, IsAllowedTo(ModPerms, "admin_forum"))
	assert.Equal(t, []int{JanitorPerms, ModPerms}, RanksAllowed("calendar_view"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPermissionRanks(t *testing.T) {
	mock := setupMockDB(t, "mysql", "")
	defer closeMock(t, mock)

	mock.ExpectBegin()
	mock.ExpectPrepare(`DELETE FROM permissions WHERE permission = \?`).
		ExpectExec().WithArgs("calendar_post").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, row := range [][2]int{{NoPerms, 0}, {JanitorPerms, 0}, {ModPerms, 1}} {
		mock.ExpectPrepare(`INSERT INTO permissions \(staff_rank, permission, add_deny\) VALUES\(\?,\?,\?\)`).
			ExpectExec().WithArgs(row[0], "calendar_post", row[1]).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if !assert.NoError(t, SetPermissionRanks(nil, "calendar_post", []int{ModPerms})) {
		t.FailNow()
	}
	assert.Equal(t, []int{ModPerms}, RanksAllowed("calendar_post"))
	assert.False(t, IsAllowedTo(JanitorPerms, "calendar_post"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
