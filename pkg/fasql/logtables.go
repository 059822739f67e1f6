package fasql

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Listing describes which rows of a log table to select. Where must be built from whitelisted columns
// (see listview.Filters) and OrderBy must come from a list view's sort options, since both are added to
// the query as-is
type Listing struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

func (l *Listing) whereSQL() string {
	if l == nil || l.Where == "" {
		return "1=1"
	}
	return l.Where
}

func (l *Listing) whereArgs() []any {
	if l == nil {
		return nil
	}
	return l.Args
}

func countRows(opts *RequestOptions, from string, listing *Listing) (int, error) {
	var count int
	err := QueryRow(opts, "SELECT COUNT(*) FROM "+from+" WHERE "+listing.whereSQL(), listing.whereArgs(), []any{&count})
	return count, err
}

// selectRows scans the rows selected with the listing into a slice of T, using the db struct tags of T
func selectRows[T any](opts *RequestOptions, columns string, from string, listing *Listing) ([]T, error) {
	query := "SELECT " + columns + " FROM " + from + " WHERE " + listing.whereSQL()
	args := append([]any(nil), listing.whereArgs()...)
	if listing != nil && listing.OrderBy != "" {
		query += " ORDER BY " + listing.OrderBy
	}
	if listing != nil && listing.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, listing.Limit, listing.Offset)
	}
	rows, err := Query(opts, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []T
	if err = sqlx.StructScan(rows, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// deleteRows deletes the rows of the table matching the where clause, optionally limited to the given IDs
func deleteRows(opts *RequestOptions, table string, idColumn string, ids []int, where string, args ...any) (int64, error) {
	query := "DELETE FROM " + table + " WHERE "
	if where == "" {
		where = "1=1"
	}
	query += where
	queryArgs := append([]any(nil), args...)
	if ids != nil {
		if len(ids) == 0 {
			return 0, nil
		}
		query += fmt.Sprintf(" AND %s IN (%s)", idColumn, inPlaceholders(len(ids)))
		queryArgs = append(queryArgs, intsToArgs(ids)...)
	}
	result, err := Exec(opts, query, queryArgs...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
