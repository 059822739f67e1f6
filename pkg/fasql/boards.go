package fasql

import "errors"

// Board is a forum board, with the name of its category
type Board struct {
	ID           int    `db:"id_board" json:"id"`
	CategoryID   int    `db:"id_cat" json:"id_cat"`
	Name         string `db:"name" json:"name"`
	CategoryName string `db:"cat_name" json:"cat_name"`
}

// GetBoards returns every board, ordered by category and board order
func GetBoards(opts *RequestOptions) ([]Board, error) {
	return selectRows[Board](opts,
		"b.id_board, b.id_cat, b.name, COALESCE(c.name, '') AS cat_name",
		"DBPREFIXboards AS b LEFT JOIN DBPREFIXcategories AS c ON c.id_cat = b.id_cat",
		&Listing{OrderBy: "c.cat_order, b.board_order, b.id_board"})
}

// GetLanguageMemberCounts returns the number of members using each language file. Members with an
// empty lngfile use the default language and are counted under defaultLanguage
func GetLanguageMemberCounts(opts *RequestOptions, defaultLanguage string) (map[string]int, error) {
	rows, err := Query(opts, `SELECT lngfile, COUNT(*) FROM DBPREFIXmembers GROUP BY lngfile`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var lang string
		var count int
		if err = rows.Scan(&lang, &count); err != nil {
			return nil, err
		}
		if lang == "" {
			lang = defaultLanguage
		}
		counts[lang] += count
	}
	return counts, rows.Err()
}

// MessageBodyMaxLength returns the maximum length of the messages.body column, or 0 if the column has
// no practical limit. Only MySQL TEXT columns are limited
func MessageBodyMaxLength(opts *RequestOptions) (int64, error) {
	if SQLDriver() != "mysql" {
		return 0, nil
	}
	var maxLength int64
	err := QueryRow(opts, `SELECT CHARACTER_MAXIMUM_LENGTH FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'DBPREFIXmessages' AND COLUMN_NAME = 'body'`,
		nil, []any{&maxLength})
	if errors.Is(err, ErrNoRows) {
		return 0, nil
	}
	return maxLength, err
}
