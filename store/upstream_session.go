package store

import (
	"database/sql"
	"errors"
	"time"
)

// UpstreamSession is the persisted backend login. One row; restarting the
// deck must not force a fresh login while the token is still valid.
type UpstreamSession struct {
	Token     string
	UserID    string
	UserName  string
	UserEmail string
	IsAdmin   bool
	UpdatedAt time.Time
}

func (db *DB) SaveUpstreamSession(s *UpstreamSession) error {
	_, err := db.Exec(db.Q(`INSERT INTO upstream_session (id, token, user_id, user_name, user_email, is_admin, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, datetime('now','localtime'))
		ON CONFLICT (id) DO UPDATE SET
			token=excluded.token,
			user_id=excluded.user_id,
			user_name=excluded.user_name,
			user_email=excluded.user_email,
			is_admin=excluded.is_admin,
			updated_at=excluded.updated_at`),
		s.Token, s.UserID, s.UserName, s.UserEmail, s.IsAdmin)
	return err
}

// LoadUpstreamSession returns the stored login, or nil when none is saved.
func (db *DB) LoadUpstreamSession() (*UpstreamSession, error) {
	var s UpstreamSession
	var updatedAt any
	err := db.QueryRow(`SELECT token, user_id, user_name, user_email, is_admin, updated_at FROM upstream_session WHERE id=1`).
		Scan(&s.Token, &s.UserID, &s.UserName, &s.UserEmail, &s.IsAdmin, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.UpdatedAt = parseTime(updatedAt)
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func (db *DB) ClearUpstreamSession() error {
	_, err := db.Exec(`DELETE FROM upstream_session WHERE id=1`)
	return err
}
