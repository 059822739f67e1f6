package fasql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forumkit/forumadmin/pkg/fautil"
)

const (
	NoPerms = iota
	JanitorPerms
	ModPerms
	AdminPerms

	selectStaffSQL = `SELECT id, username, password_checksum, global_rank, added_on, last_login, is_active FROM DBPREFIXstaff`
)

var (
	ErrStaffNotFound = errors.New("staff member not found")
	ErrStaffExists   = errors.New("a staff member with that username already exists")
)

// Staff represents a logged in (or loggable) staff account
type Staff struct {
	ID               int       `json:"id"`
	Username         string    `json:"username"`
	PasswordChecksum string    `json:"-"`
	Rank             int       `json:"rank"`
	AddedOn          time.Time `json:"added_on"`
	LastLogin        time.Time `json:"last_login"`
	IsActive         bool      `json:"is_active"`
}

// RankTitle returns the name of the staff member's rank
func (s *Staff) RankTitle() string {
	return RankTitle(s.Rank)
}

// RankTitle returns the name of the given rank
func RankTitle(rank int) string {
	switch rank {
	case AdminPerms:
		return "Administrator"
	case ModPerms:
		return "Moderator"
	case JanitorPerms:
		return "Janitor"
	}
	return "Guest"
}

func scanStaff(scanner interface{ Scan(...any) error }) (*Staff, error) {
	var staff Staff
	err := scanner.Scan(&staff.ID, &staff.Username, &staff.PasswordChecksum, &staff.Rank,
		&staff.AddedOn, &staff.LastLogin, &staff.IsActive)
	return &staff, err
}

// NewStaff creates a new staff account with a bcrypt hash of the password
func NewStaff(opts *RequestOptions, username string, password string, rank int) (*Staff, error) {
	const insertSQL = `INSERT INTO DBPREFIXstaff (username, password_checksum, global_rank) VALUES(?,?,?)`
	if rank < JanitorPerms || rank > AdminPerms {
		return nil, fmt.Errorf("invalid staff rank %d", rank)
	}
	passwordChecksum := fautil.BcryptSum(password)
	result, err := Exec(opts, insertSQL, username, passwordChecksum, rank)
	if isPK, err := errFilterDuplicatePrimaryKey(err); isPK {
		return nil, ErrStaffExists
	} else if err != nil {
		return nil, err
	}
	staff := &Staff{
		Username:         username,
		PasswordChecksum: passwordChecksum,
		Rank:             rank,
		AddedOn:          time.Now(),
		IsActive:         true,
	}
	if id, err := result.LastInsertId(); err == nil {
		staff.ID = int(id)
	}
	return staff, nil
}

// CreateDefaultAdminIfNoStaff creates a new default admin account if no accounts exist
func CreateDefaultAdminIfNoStaff(opts *RequestOptions) (created bool, err error) {
	var count int
	if err = QueryRow(opts, `SELECT COUNT(id) FROM DBPREFIXstaff`, nil, []any{&count}); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	_, err = NewStaff(opts, "admin", "password", AdminPerms)
	return err == nil, err
}

// GetStaffByUsername returns the staff account with the given username. If onlyActive is true,
// deactivated accounts are ignored
func GetStaffByUsername(opts *RequestOptions, username string, onlyActive bool) (*Staff, error) {
	query := selectStaffSQL + ` WHERE username = ?`
	if onlyActive {
		query += ` AND is_active = 1`
	}
	stmt, err := PrepareContextSQL(optsContext(opts), query, optsTx(opts))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	staff, err := scanStaff(stmt.QueryRowContext(optsContext(opts), username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	return staff, err
}

// GetStaffBySession gets the staff member logged in with the given session key, if the session hasn't expired
func GetStaffBySession(opts *RequestOptions, session string) (*Staff, error) {
	const query = `SELECT staff.id, staff.username, staff.password_checksum, staff.global_rank,
		staff.added_on, staff.last_login, staff.is_active
	FROM DBPREFIXstaff AS staff
	JOIN DBPREFIXsessions AS sessions ON sessions.staff_id = staff.id
	WHERE sessions.data = ? AND sessions.expires > ? AND staff.is_active = 1`
	stmt, err := PrepareContextSQL(optsContext(opts), query, optsTx(opts))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	staff, err := scanStaff(stmt.QueryRowContext(optsContext(opts), session, time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	return staff, err
}

// GetAllStaff returns every staff account, active or not
func GetAllStaff(opts *RequestOptions) ([]Staff, error) {
	rows, err := Query(opts, selectStaffSQL+` ORDER BY global_rank DESC, username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var staff []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, *s)
	}
	return staff, rows.Err()
}

// CreateLoginSession stores a session for the staff member and updates their last login time
func (s *Staff) CreateLoginSession(opts *RequestOptions, key string, expires time.Time) error {
	tx, err := BeginContextTx(optsContext(opts))
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txOpts := optsWithTx(opts, tx)
	if _, err = Exec(txOpts, `INSERT INTO DBPREFIXsessions (staff_id,data,expires) VALUES(?,?,?)`, s.ID, key, expires); err != nil {
		return err
	}
	if _, err = Exec(txOpts, `UPDATE DBPREFIXstaff SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, s.ID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.LastLogin = time.Now()
	return nil
}

// SetActive changes the active status of the staff member. If active is false, their login sessions are cleared
func (s *Staff) SetActive(opts *RequestOptions, active bool) error {
	activeInt := 0
	if active {
		activeInt = 1
	}
	if _, err := Exec(opts, `UPDATE DBPREFIXstaff SET is_active = ? WHERE id = ?`, activeInt, s.ID); err != nil {
		return err
	}
	s.IsActive = active
	if active {
		return nil
	}
	return s.ClearSessions(opts)
}

// UpdateRank changes the rank of the staff member
func (s *Staff) UpdateRank(opts *RequestOptions, rank int) error {
	if rank < JanitorPerms || rank > AdminPerms {
		return fmt.Errorf("invalid staff rank %d", rank)
	}
	if _, err := Exec(opts, `UPDATE DBPREFIXstaff SET global_rank = ? WHERE id = ?`, rank, s.ID); err != nil {
		return err
	}
	s.Rank = rank
	return nil
}

// ClearSessions clears all login sessions for the staff member, requiring them to login again
func (s *Staff) ClearSessions(opts *RequestOptions) error {
	_, err := Exec(opts, `DELETE FROM DBPREFIXsessions WHERE staff_id = ?`, s.ID)
	return err
}

// EndStaffSession deletes the session row with the given key
func EndStaffSession(opts *RequestOptions, key string) error {
	_, err := Exec(opts, `DELETE FROM DBPREFIXsessions WHERE data = ?`, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed clearing session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before the given time
func DeleteExpiredSessions(opts *RequestOptions, before time.Time) (int64, error) {
	result, err := Exec(opts, `DELETE FROM DBPREFIXsessions WHERE expires < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
