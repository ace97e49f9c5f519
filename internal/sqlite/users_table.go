// This file implements the accessors of the users store: credentials,
// login sessions and per-user preferences.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// UsersTable reads and writes credential records. It stores whatever hash
// it is given; hashing is the caller's concern.
type UsersTable struct {
	backend *Backend
}

// List returns every user ordered by username.
func (ut *UsersTable) List(ctx context.Context) ([]types.User, error) {
	unlock, err := ut.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := ut.backend.users.QueryContext(ctx,
		"SELECT username, password_hash, created_at FROM users ORDER BY username ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	results := []types.User{}
	for rows.Next() {
		var u types.User
		var created string
		if err := rows.Scan(&u.Username, &u.PasswordHash, &created); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if u.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parsing created_at of user %s: %w", u.Username, err)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return results, nil
}

// Get retrieves a user by username.
func (ut *UsersTable) Get(ctx context.Context, username string) (*types.User, error) {
	unlock, err := ut.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	name, err := types.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	var u types.User
	var created string
	err = ut.backend.users.QueryRowContext(ctx,
		"SELECT username, password_hash, created_at FROM users WHERE username = ?", name,
	).Scan(&u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", name, err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at of user %s: %w", name, err)
	}
	return &u, nil
}

// Create stores a new user with an already hashed password.
// Returns ErrUserExists if the username is taken.
func (ut *UsersTable) Create(ctx context.Context, username, passwordHash string) (*types.User, error) {
	name, err := types.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, types.ErrInvalidPassword
	}

	unlock, err := ut.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := ut.backend.timestamp()
	_, err = ut.backend.users.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		name, passwordHash, formatTime(now))
	if err != nil {
		if errors.Is(translateConstraint(err), types.ErrDuplicate) {
			return nil, types.ErrUserExists
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &types.User{Username: name, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// SetPasswordHash replaces a user's hash and revokes all of that user's
// sessions in the same transaction.
func (ut *UsersTable) SetPasswordHash(ctx context.Context, username, passwordHash string) error {
	name, err := types.NormalizeUsername(username)
	if err != nil {
		return err
	}
	if passwordHash == "" {
		return types.ErrInvalidPassword
	}

	unlock, err := ut.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := ut.backend.users.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE username = ?", passwordHash, name)
	if err != nil {
		return fmt.Errorf("updating password of %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating password of %s: %w", name, err)
	} else if n == 0 {
		return types.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE username = ?", name); err != nil {
		return fmt.Errorf("revoking sessions of %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing password change: %w", err)
	}
	return nil
}

// Delete removes a user; sessions and preferences cascade.
func (ut *UsersTable) Delete(ctx context.Context, username string) error {
	name, err := types.NormalizeUsername(username)
	if err != nil {
		return err
	}

	unlock, err := ut.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	res, err := ut.backend.users.ExecContext(ctx, "DELETE FROM users WHERE username = ?", name)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", name, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SessionsTable stores login sessions.
type SessionsTable struct {
	backend *Backend
}

// Create stores a session. The caller supplies the token and expiry.
func (st *SessionsTable) Create(ctx context.Context, s types.Session) error {
	if s.Token == "" {
		return types.ErrInvalidData
	}

	unlock, err := st.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	_, err = st.backend.users.ExecContext(ctx,
		"INSERT INTO sessions (token, username, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.Username, formatTime(s.CreatedAt), formatTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("inserting session: %w", translateConstraint(err))
	}
	return nil
}

// Get returns the session for token, expired or not.
func (st *SessionsTable) Get(ctx context.Context, token string) (*types.Session, error) {
	unlock, err := st.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	s := types.Session{Token: token}
	var created, expires string
	err = st.backend.users.QueryRowContext(ctx,
		"SELECT username, created_at, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&s.Username, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing session created_at: %w", err)
	}
	if s.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, fmt.Errorf("parsing session expires_at: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (st *SessionsTable) Delete(ctx context.Context, token string) error {
	unlock, err := st.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := st.backend.users.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session that expired at or before now and
// returns how many were removed.
func (st *SessionsTable) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	unlock, err := st.backend.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	res, err := st.backend.users.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// PreferencesTable stores per-user settings restricted to the allow-list
// in package types.
type PreferencesTable struct {
	backend *Backend
}

// List returns a user's settings as a key to value map.
func (pt *PreferencesTable) List(ctx context.Context, username string) (map[string]string, error) {
	unlock, err := pt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := pt.backend.users.QueryContext(ctx,
		"SELECT setting_key, setting_value FROM user_preferences WHERE username = ?", username)
	if err != nil {
		return nil, fmt.Errorf("listing settings of %s: %w", username, err)
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return settings, nil
}

// Set validates and upserts one setting.
func (pt *PreferencesTable) Set(ctx context.Context, username, key, value string) (*types.Preference, error) {
	if err := types.ValidateSetting(key, value); err != nil {
		return nil, err
	}

	unlock, err := pt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, err = pt.backend.users.ExecContext(ctx, `
INSERT INTO user_preferences (username, setting_key, setting_value) VALUES (?, ?, ?)
ON CONFLICT (username, setting_key) DO UPDATE SET setting_value = excluded.setting_value`,
		username, key, value)
	if err != nil {
		return nil, fmt.Errorf("storing setting %s of %s: %w", key, username, translateConstraint(err))
	}
	return &types.Preference{Username: username, Key: key, Value: value}, nil
}
