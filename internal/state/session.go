package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Session is the persisted authentication state.
type Session struct {
	Token     string
	User      json.RawMessage // Opaque user object returned by the login endpoint
	UpdatedAt time.Time
}

// SaveSession stores token and user, replacing any previous session.
func (db *DB) SaveSession(ctx context.Context, token string, user json.RawMessage) error {
	if len(user) == 0 {
		user = json.RawMessage("null")
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO session (id, token, user_json, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_json = excluded.user_json, updated_at = excluded.updated_at`,
		token, string(user), db.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the persisted session. ok is false when none is stored.
func (db *DB) LoadSession(ctx context.Context) (s Session, ok bool, err error) {
	var user string
	var updated int64
	err = db.conn.QueryRowContext(ctx,
		`SELECT token, user_json, updated_at FROM session WHERE id = 1`,
	).Scan(&s.Token, &user, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}
	s.User = json.RawMessage(user)
	s.UpdatedAt = time.UnixMilli(updated)
	return s, true, nil
}

// ClearSession removes the persisted token and user.
func (db *DB) ClearSession(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
