package types

import (
	"strings"
	"time"
)

// MinPasswordLength is the shortest password SetPassword accepts.
const MinPasswordLength = 8

// User is a credential record. PasswordHash is a bcrypt hash and never
// leaves the server.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a server-side login session identified by an opaque token
// carried in the session cookie.
type Session struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NormalizeUsername lower-cases and trims a username. Usernames are
// 1-64 characters of letters, digits, '.', '-' and '_'.
func NormalizeUsername(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || len(n) > 64 {
		return "", ErrInvalidUsername
	}
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		default:
			return "", ErrInvalidUsername
		}
	}
	return n, nil
}

// ValidatePassword checks the minimum password policy.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
