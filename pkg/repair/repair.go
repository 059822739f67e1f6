package repair

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forumkit/forumadmin/pkg/fasql"
)

const (
	SalvageCategoryName = "Salvage area"
	SalvageBoardName    = "Salvaged topics"
	salvageBoardDesc    = "Topics recovered by the board repair tool"
)

// Check is a consistency check of the forum's boards, topics and messages
type Check struct {
	ID       string
	Label    string
	CountSQL string
	fix      func(f *fixer) (int64, error)
}

// Result is the number of problems a check found
type Result struct {
	Check string `json:"check"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Outcome is the result of a repair run. Fixed and Remaining are only set if fixes were applied
type Outcome struct {
	Found     []Result         `json:"found"`
	Fixed     map[string]int64 `json:"fixed,omitempty"`
	Remaining []Result         `json:"remaining,omitempty"`
}

// TotalErrors returns the number of problems found by all of the checks
func TotalErrors(results []Result) int {
	var total int
	for _, result := range results {
		total += result.Count
	}
	return total
}

func countFor(results []Result, id string) int {
	for _, result := range results {
		if result.Check == id {
			return result.Count
		}
	}
	return 0
}

// Scan runs every check's count query concurrently and returns the results in the order of Checks
func Scan(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(Checks))
	group, groupCtx := errgroup.WithContext(ctx)
	for c, check := range Checks {
		results[c] = Result{Check: check.ID, Label: check.Label}
		group.Go(func() error {
			err := fasql.QueryRow(&fasql.RequestOptions{Context: groupCtx}, check.CountSQL, nil, []any{&results[c].Count})
			if err != nil {
				return fmt.Errorf("unable to run %s check: %w", check.ID, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fix runs the fix of each check that found problems in a single transaction, in the order of Checks.
// Board counts are recalculated whenever another fix ran. It returns the number of rows each fix changed
func Fix(ctx context.Context, found []Result) (map[string]int64, error) {
	tx, err := fasql.BeginContextTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	f := &fixer{opts: &fasql.RequestOptions{Context: ctx, Tx: tx}}
	fixed := map[string]int64{}
	for _, check := range Checks {
		if countFor(found, check.ID) == 0 && (check.ID != "board_counts" || len(fixed) == 0) {
			continue
		}
		affected, err := check.fix(f)
		if err != nil {
			return nil, fmt.Errorf("unable to fix %s: %w", check.ID, err)
		}
		fixed[check.ID] = affected
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return fixed, nil
}

// Run scans the database and, if fix is true and problems were found, fixes them and scans again
func Run(ctx context.Context, fix bool) (*Outcome, error) {
	found, err := Scan(ctx)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Found: found}
	if !fix || TotalErrors(found) == 0 {
		return outcome, nil
	}
	if outcome.Fixed, err = Fix(ctx, found); err != nil {
		return nil, err
	}
	if outcome.Remaining, err = Scan(ctx); err != nil {
		return nil, err
	}
	return outcome, nil
}

// fixer holds the transaction of a fix run and the salvage category and board, which are created when
// first needed
type fixer struct {
	opts         *fasql.RequestOptions
	salvageCat   int
	salvageBoard int
}

// findOrCreate returns the ID selected by selectSQL, inserting a row with insertSQL if there isn't one
func (f *fixer) findOrCreate(selectSQL string, selectArgs []any, insertSQL string, insertArgs []any) (int, error) {
	var id int
	err := fasql.QueryRow(f.opts, selectSQL, selectArgs, []any{&id})
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, fasql.ErrNoRows) {
		return 0, err
	}
	result, err := fasql.Exec(f.opts, insertSQL, insertArgs...)
	if err != nil {
		return 0, err
	}
	return f.insertedID(result, selectSQL, selectArgs...)
}

// insertedID returns the ID of the inserted row. PostgreSQL doesn't support LastInsertId, so the row
// is selected again with selectSQL
func (f *fixer) insertedID(result sql.Result, selectSQL string, selectArgs ...any) (int, error) {
	if id, err := result.LastInsertId(); err == nil && id > 0 {
		return int(id), nil
	}
	var id int
	err := fasql.QueryRow(f.opts, selectSQL, selectArgs, []any{&id})
	return id, err
}

func (f *fixer) salvageCategoryID() (int, error) {
	if f.salvageCat > 0 {
		return f.salvageCat, nil
	}
	id, err := f.findOrCreate(
		`SELECT id_cat FROM DBPREFIXcategories WHERE name = ? ORDER BY id_cat LIMIT 1`,
		[]any{SalvageCategoryName},
		`INSERT INTO DBPREFIXcategories (name, cat_order) VALUES(?,?)`,
		[]any{SalvageCategoryName, 0})
	if err != nil {
		return 0, fmt.Errorf("unable to create salvage category: %w", err)
	}
	f.salvageCat = id
	return id, nil
}

func (f *fixer) salvageBoardID() (int, error) {
	if f.salvageBoard > 0 {
		return f.salvageBoard, nil
	}
	catID, err := f.salvageCategoryID()
	if err != nil {
		return 0, err
	}
	id, err := f.findOrCreate(
		`SELECT id_board FROM DBPREFIXboards WHERE name = ? AND id_cat = ? ORDER BY id_board LIMIT 1`,
		[]any{SalvageBoardName, catID},
		`INSERT INTO DBPREFIXboards (id_cat, name, description, board_order) VALUES(?,?,?,?)`,
		[]any{catID, SalvageBoardName, salvageBoardDesc, 0})
	if err != nil {
		return 0, fmt.Errorf("unable to create salvage board: %w", err)
	}
	f.salvageBoard = id
	return id, nil
}

func execFix(query string) func(f *fixer) (int64, error) {
	return func(f *fixer) (int64, error) {
		result, err := fasql.Exec(f.opts, query)
		if err != nil {
			return 0, err
		}
		return result.RowsAffected()
	}
}

type lostTopic struct {
	oldID    int
	messages []any
}

// fixMissingTopics gives each group of messages that belonged to a missing topic a new topic in the
// salvage board. It returns the number of messages moved
func fixMissingTopics(f *fixer) (int64, error) {
	rows, err := fasql.Query(f.opts, `SELECT m.id_msg, m.id_topic FROM DBPREFIXmessages AS m
		LEFT JOIN DBPREFIXtopics AS t ON t.id_topic = m.id_topic
		WHERE t.id_topic IS NULL ORDER BY m.id_topic, m.id_msg`)
	if err != nil {
		return 0, err
	}
	var lost []*lostTopic
	for rows.Next() {
		var msgID, topicID int
		if err = rows.Scan(&msgID, &topicID); err != nil {
			rows.Close()
			return 0, err
		}
		if len(lost) == 0 || lost[len(lost)-1].oldID != topicID {
			lost = append(lost, &lostTopic{oldID: topicID})
		}
		lost[len(lost)-1].messages = append(lost[len(lost)-1].messages, msgID)
	}
	if err = rows.Close(); err != nil {
		return 0, err
	}
	if err = rows.Err(); err != nil {
		return 0, err
	}
	if len(lost) == 0 {
		return 0, nil
	}

	boardID, err := f.salvageBoardID()
	if err != nil {
		return 0, err
	}
	var moved int64
	for _, topic := range lost {
		firstMsg := topic.messages[0]
		lastMsg := topic.messages[len(topic.messages)-1]
		result, err := fasql.Exec(f.opts,
			`INSERT INTO DBPREFIXtopics (id_board, id_first_msg, id_last_msg, num_replies) VALUES(?,?,?,?)`,
			boardID, firstMsg, lastMsg, len(topic.messages)-1)
		if err != nil {
			return moved, err
		}
		newID, err := f.insertedID(result,
			`SELECT id_topic FROM DBPREFIXtopics WHERE id_first_msg = ? ORDER BY id_topic DESC LIMIT 1`, firstMsg)
		if err != nil {
			return moved, err
		}
		args := append([]any{newID, boardID}, topic.messages...)
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(topic.messages)), ",")
		if result, err = fasql.Exec(f.opts,
			`UPDATE DBPREFIXmessages SET id_topic = ?, id_board = ? WHERE id_msg IN (`+placeholders+`)`,
			args...); err != nil {
			return moved, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return moved, err
		}
		moved += affected
	}
	return moved, nil
}

// fixMissingBoards moves topics whose board doesn't exist (and their messages) to the salvage board
func fixMissingBoards(f *fixer) (int64, error) {
	boardID, err := f.salvageBoardID()
	if err != nil {
		return 0, err
	}
	if _, err = fasql.Exec(f.opts, `UPDATE DBPREFIXmessages SET id_board = ?
		WHERE id_topic IN (SELECT id_topic FROM DBPREFIXtopics
			WHERE id_board NOT IN (SELECT id_board FROM DBPREFIXboards))`, boardID); err != nil {
		return 0, err
	}
	result, err := fasql.Exec(f.opts, `UPDATE DBPREFIXtopics SET id_board = ?
		WHERE id_board NOT IN (SELECT id_board FROM DBPREFIXboards)`, boardID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// fixMissingCategories moves boards whose category doesn't exist to the salvage category
func fixMissingCategories(f *fixer) (int64, error) {
	catID, err := f.salvageCategoryID()
	if err != nil {
		return 0, err
	}
	result, err := fasql.Exec(f.opts, `UPDATE DBPREFIXboards SET id_cat = ?
		WHERE id_cat NOT IN (SELECT id_cat FROM DBPREFIXcategories)`, catID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
