package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions in SQLite so logins survive dashboard restarts.
// Login and logout are the only mutators; everything else is reads.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore creates a Store over the given connection. Sessions expire ttl
// after creation.
func NewStore(db *sql.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Create writes a new session for the given identity and returns it. The
// token is an opaque random value suitable for an HTTP-only cookie.
func (s *Store) Create(email, organisation, role, name string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		Token:        uuid.NewString(),
		Email:        email,
		Organisation: organisation,
		Role:         role,
		Name:         name,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (token, email, organisation, role, name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.Email, sess.Organisation, sess.Role, sess.Name,
		sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Get returns the session for a token, or nil if the token is unknown or
// expired. Expired rows are deleted on sight.
func (s *Store) Get(token string) (*Session, error) {
	sess := &Session{}
	err := s.db.QueryRow(`
		SELECT token, email, organisation, role, name, created_at, expires_at
		FROM sessions WHERE token = ?`, token,
	).Scan(
		&sess.Token, &sess.Email, &sess.Organisation, &sess.Role, &sess.Name,
		&sess.CreatedAt, &sess.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		_ = s.Delete(token)
		return nil, nil
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (s *Store) Delete(token string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Count returns the number of live (unexpired) sessions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE expires_at >= ?", time.Now().UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// PurgeExpired removes every expired session and reports how many went.
func (s *Store) PurgeExpired() (int, error) {
	res, err := s.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
