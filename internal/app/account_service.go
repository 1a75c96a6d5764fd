package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"bereal/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is used when NewAccountService is given a zero TTL.
const DefaultSessionTTL = 24 * time.Hour

// AccountService handles registration, authentication and session management.
type AccountService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(users domain.UserRepository, sessions domain.SessionRepository, ttl time.Duration) *AccountService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AccountService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// Register creates an account and opens its first session.
func (s *AccountService) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentialFormat
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if errors.Is(err, domain.ErrUsernameTaken) {
		return nil, "", ErrDuplicateUsername
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate checks a username and password and creates a session.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.openSession(ctx, user.ID)
}

// Logout invalidates a session. Unknown tokens are accepted so repeated
// calls succeed.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidSession
	}
	return s.sessions.Delete(ctx, token)
}

// ValidateSession resolves a session token to its user.
func (s *AccountService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidSession
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrInvalidSession
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidSession
	}
	return user, nil
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AccountService) LoginWithUser(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", ErrInvalidCredentialFormat
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		// SSO users have no password hash and cannot use Authenticate.
		user, err = s.users.Create(ctx, username, "")
		if errors.Is(err, domain.ErrUsernameTaken) {
			user, err = s.users.GetByUsername(ctx, username)
		}
		if err != nil {
			return "", err
		}
		if user == nil {
			return "", ErrInvalidCredentials
		}
	}

	return s.openSession(ctx, user.ID)
}

// SweepSessions deletes expired sessions every interval until ctx is done.
func (s *AccountService) SweepSessions(ctx context.Context, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.DeleteExpired(ctx); err != nil {
				log.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *AccountService) openSession(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, userID, token, s.now().Add(s.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
