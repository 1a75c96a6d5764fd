// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUsernameTaken is returned by UserRepository.Create when the username is
// already registered.
var ErrUsernameTaken = errors.New("username already taken")

// User represents an account holder.
type User struct {
	ID           string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session represents an active user session.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserRepository defines the port for user persistence operations.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
}

// SessionRepository defines the port for session persistence operations.
// GetByToken returns (nil, nil) for unknown tokens.
type SessionRepository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}
