package repair

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
)

func setupMock(t *testing.T) (sqlmock.Sqlmock, func()) {
	t.Helper()
	config.SetTestDBConfig("mysql", "localhost", "forumadmin", "forumadmin", "", "")
	db, mock, err := sqlmock.New()
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if !assert.NoError(t, fasql.SetTestingDB("mysql", "forumadmin", "", db)) {
		t.FailNow()
	}
	return mock, func() {
		db.Close()
	}
}

func countQuery(t *testing.T, check Check) string {
	t.Helper()
	query, err := fasql.SetupSQLString(check.CountSQL)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return regexp.QuoteMeta(query)
}

func expectScan(t *testing.T, mock sqlmock.Sqlmock, counts map[string]int) {
	for _, check := range Checks {
		mock.ExpectPrepare(countQuery(t, check)).ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(counts[check.ID]))
	}
}

func TestScan(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock, closeDB := setupMock(t)
	defer closeDB()
	mock.MatchExpectationsInOrder(false)

	expectScan(t, mock, map[string]int{"empty_topic": 2, "board_counts": 1})
	results, err := Scan(context.Background())
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.NoError(t, mock.ExpectationsWereMet())
	if !assert.Len(t, results, len(Checks)) {
		t.FailNow()
	}
	for c, check := range Checks {
		assert.Equal(t, check.ID, results[c].Check)
		assert.Equal(t, check.Label, results[c].Label)
	}
	assert.Equal(t, 2, results[1].Count)
	assert.Equal(t, 1, results[9].Count)
	assert.Equal(t, 3, TotalErrors(results))
}

func TestScanError(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock, closeDB := setupMock(t)
	defer closeDB()
	mock.MatchExpectationsInOrder(false)

	for c, check := range Checks {
		query := mock.ExpectPrepare(countQuery(t, check)).ExpectQuery()
		if c == 3 {
			query.WillReturnError(errors.New("table is locked"))
		} else {
			query.WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		}
	}
	_, err := Scan(context.Background())
	assert.ErrorContains(t, err, "table is locked")
}

func TestFix(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock, closeDB := setupMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectPrepare(`SELECT m\.id_msg, m\.id_topic FROM messages AS m`).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id_msg", "id_topic"}).
			AddRow(10, 7).AddRow(11, 7).AddRow(15, 9))
	mock.ExpectPrepare(`SELECT id_cat FROM categories WHERE name = \?`).ExpectQuery().
		WithArgs(SalvageCategoryName).WillReturnRows(sqlmock.NewRows([]string{"id_cat"}))
	mock.ExpectPrepare(`INSERT INTO categories \(name, cat_order\)`).ExpectExec().
		WithArgs(SalvageCategoryName, 0).WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectPrepare(`SELECT id_board FROM boards WHERE name = \? AND id_cat = \?`).ExpectQuery().
		WithArgs(SalvageBoardName, 40).WillReturnRows(sqlmock.NewRows([]string{"id_board"}))
	mock.ExpectPrepare(`INSERT INTO boards \(id_cat, name, description, board_order\)`).ExpectExec().
		WithArgs(40, SalvageBoardName, sqlmock.AnyArg(), 0).WillReturnResult(sqlmock.NewResult(41, 1))

	mock.ExpectPrepare(`INSERT INTO topics`).ExpectExec().
		WithArgs(41, 10, 11, 1).WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectPrepare(`UPDATE messages SET id_topic = \?, id_board = \? WHERE id_msg IN \(\?,\?\)`).ExpectExec().
		WithArgs(100, 41, 10, 11).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectPrepare(`INSERT INTO topics`).ExpectExec().
		WithArgs(41, 15, 15, 0).WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectPrepare(`UPDATE messages SET id_topic = \?, id_board = \? WHERE id_msg IN \(\?\)`).ExpectExec().
		WithArgs(101, 41, 15).WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectPrepare(`UPDATE boards SET id_cat = \?`).ExpectExec().
		WithArgs(40).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(`UPDATE boards SET num_topics = `).ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	fixed, err := Fix(context.Background(), []Result{
		{Check: "missing_topic", Count: 3},
		{Check: "empty_topic", Count: 0},
		{Check: "missing_category", Count: 1},
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, map[string]int64{
		"missing_topic":    3,
		"missing_category": 1,
		"board_counts":     3,
	}, fixed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFixRollback(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock, closeDB := setupMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectPrepare(`DELETE FROM topics WHERE id_topic NOT IN`).ExpectExec().
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := Fix(context.Background(), []Result{{Check: "empty_topic", Count: 4}})
	assert.ErrorContains(t, err, "unable to fix empty_topic")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunNothingFound(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock, closeDB := setupMock(t)
	defer closeDB()
	mock.MatchExpectationsInOrder(false)

	expectScan(t, mock, nil)
	outcome, err := Run(context.Background(), true)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Zero(t, TotalErrors(outcome.Found))
	assert.Nil(t, outcome.Fixed)
	assert.Nil(t, outcome.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}
