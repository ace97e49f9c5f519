package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// SweepSchedule is the cron schedule of the expired-session sweep.
const SweepSchedule = "@hourly"

// UserStore is the credential storage Service needs.
type UserStore interface {
	Get(ctx context.Context, username string) (*types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, username, passwordHash string) (*types.User, error)
	SetPasswordHash(ctx context.Context, username, passwordHash string) error
	Delete(ctx context.Context, username string) error
}

// SessionStore is the session storage Service needs.
type SessionStore interface {
	Create(ctx context.Context, s types.Session) error
	Get(ctx context.Context, token string) (*types.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service authenticates users and manages their sessions.
type Service struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service issuing sessions that last ttl.
func NewService(users UserStore, sessions SessionStore, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// TTL returns the lifetime of new sessions.
func (s *Service) TTL() time.Duration { return s.ttl }

// Login checks the credentials and opens a new session. Unknown users and
// wrong passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*types.Session, error) {
	u, err := s.users.Get(ctx, username)
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidUsername) {
		_ = CheckPassword(string(dummyHash), password)
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.openSession(ctx, u.Username)
}

func (s *Service) openSession(ctx context.Context, username string) (*types.Session, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	now := s.now().UTC()
	sess := types.Session{
		Token:     token.String(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	s.logger.Info("session opened", zap.String("username", username))
	return &sess, nil
}

// Logout revokes the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Verify returns the live session for token. A missing token returns
// ErrInvalidCredentials; an expired one is deleted and returns
// ErrSessionExpired.
func (s *Service) Verify(ctx context.Context, token string) (*types.Session, error) {
	if token == "" {
		return nil, types.ErrInvalidCredentials
	}
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.Warn("deleting expired session", zap.Error(err))
		}
		return nil, types.ErrSessionExpired
	}
	return sess, nil
}

// ChangePassword replaces the user's password after checking the current
// one. Every session of the user is revoked and a fresh one is returned.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) (*types.Session, error) {
	u, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(u.PasswordHash, current); err != nil {
		return nil, err
	}
	if err := s.SetPassword(ctx, u.Username, next); err != nil {
		return nil, err
	}
	return s.openSession(ctx, u.Username)
}

// SetPassword replaces the password without checking the old one and
// revokes the user's sessions.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.SetPasswordHash(ctx, username, hash)
}

// CreateUser stores a new user with a hashed password.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*types.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, hash)
}

// Users lists every user.
func (s *Service) Users(ctx context.Context) ([]types.User, error) {
	return s.users.List(ctx)
}

// DeleteUser removes a user with their sessions and preferences.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	return s.users.Delete(ctx, username)
}

// SweepExpired deletes every session that has expired.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	return n, nil
}

// StartSweeper schedules SweepExpired on schedule and starts the cron
// runner. The caller stops it with Stop.
func (s *Service) StartSweeper(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.SweepExpired(context.Background())
		if err != nil {
			s.logger.Error("session sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.logger.Info("expired sessions removed", zap.Int64("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling session sweep: %w", err)
	}
	c.Start()
	return c, nil
}
