package fasql

import (
	"encoding/json"
	"strings"
)

// AntispamQuestion is a verification question that must be answered during registration
type AntispamQuestion struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Language string   `json:"language"`
}

// GetAntispamQuestions returns every verification question ordered by ID
func GetAntispamQuestions(opts *RequestOptions) ([]AntispamQuestion, error) {
	rows, err := Query(opts, `SELECT id_question, question, answers, language FROM DBPREFIXantispam_questions ORDER BY id_question`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []AntispamQuestion
	for rows.Next() {
		var q AntispamQuestion
		var answersJSON string
		if err = rows.Scan(&q.ID, &q.Question, &answersJSON, &q.Language); err != nil {
			return nil, err
		}
		if answersJSON != "" {
			if err = json.Unmarshal([]byte(answersJSON), &q.Answers); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func cleanAnswers(answers []string) []string {
	cleaned := make([]string, 0, len(answers))
	for _, answer := range answers {
		if answer = strings.TrimSpace(answer); answer != "" {
			cleaned = append(cleaned, answer)
		}
	}
	return cleaned
}

// SaveAntispamQuestions applies the submitted questions in one transaction. Questions with an ID whose
// text is empty are deleted, the rest with an ID are updated, and new questions (ID 0) are inserted
// if they have text and at least one answer. It returns the number of questions afterwards
func SaveAntispamQuestions(opts *RequestOptions, questions []AntispamQuestion) (int, error) {
	tx := optsTx(opts)
	ownTx := tx == nil
	var err error
	if ownTx {
		if tx, err = BeginContextTx(optsContext(opts)); err != nil {
			return 0, err
		}
		defer tx.Rollback()
	}
	txOpts := optsWithTx(opts, tx)
	for _, q := range questions {
		question := strings.TrimSpace(q.Question)
		answers := cleanAnswers(q.Answers)
		switch {
		case q.ID > 0 && question == "":
			_, err = Exec(txOpts, `DELETE FROM DBPREFIXantispam_questions WHERE id_question = ?`, q.ID)
		case q.ID > 0:
			answersJSON, _ := json.Marshal(answers)
			_, err = Exec(txOpts, `UPDATE DBPREFIXantispam_questions SET question = ?, answers = ?, language = ? WHERE id_question = ?`,
				question, string(answersJSON), q.Language, q.ID)
		case question != "" && len(answers) > 0:
			answersJSON, _ := json.Marshal(answers)
			_, err = Exec(txOpts, `INSERT INTO DBPREFIXantispam_questions (question, answers, language) VALUES(?,?,?)`,
				question, string(answersJSON), q.Language)
		}
		if err != nil {
			return 0, err
		}
	}
	var count int
	if err = QueryRow(txOpts, `SELECT COUNT(*) FROM DBPREFIXantispam_questions`, nil, []any{&count}); err != nil {
		return 0, err
	}
	if ownTx {
		if err = tx.Commit(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
