// Package auth implements password hashing and server-side login sessions.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// HashPassword returns a salted bcrypt hash of password after checking the
// password policy.
func HashPassword(password string) (string, error) {
	if err := types.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A mismatch returns
// ErrInvalidCredentials; a malformed hash returns a wrapped bcrypt error.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return types.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}

// dummyHash is compared against when the user does not exist so that
// unknown usernames cost as much as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("miniaturedb-no-such-user"), bcrypt.DefaultCost)
