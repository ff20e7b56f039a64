package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fortuna/draftlens/internal/store"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// SessionRepository stores the auth session. At most one session is active.
type SessionRepository struct {
	db *store.Database
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *store.Database) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save replaces the active session.
func (r *SessionRepository) Save(ctx context.Context, token string, profile json.RawMessage) (*store.Session, error) {
	if len(profile) == 0 {
		profile = json.RawMessage(`{}`)
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE, updated_at = NOW() WHERE active`); err != nil {
		return nil, fmt.Errorf("deactivating sessions: %w", err)
	}

	s := &store.Session{Token: token, Profile: profile}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sessions (token, profile, active)
		VALUES ($1, $2, TRUE)
		RETURNING session_id, created_at, updated_at
	`, token, []byte(profile)).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session save: %w", err)
	}
	return s, nil
}

// Active returns the active session or ErrNoSession.
func (r *SessionRepository) Active(ctx context.Context) (*store.Session, error) {
	s := &store.Session{}
	var profile []byte
	err := r.db.DB().QueryRowContext(ctx, `
		SELECT session_id, token, profile, created_at, updated_at
		FROM sessions
		WHERE active
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&s.ID, &s.Token, &profile, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	s.Profile = profile
	return s, nil
}

// Delete signs out. Signing out without a session is not an error.
func (r *SessionRepository) Delete(ctx context.Context) error {
	_, err := r.db.DB().ExecContext(ctx,
		`UPDATE sessions SET active = FALSE, updated_at = NOW() WHERE active`)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
