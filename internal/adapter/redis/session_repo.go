// Package redis stores sessions in Redis so several server instances can
// share them. Keys expire on their own at the session's expiry time.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bereal/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "bereal:session:"

// SessionRepo implements domain.SessionRepository on a Redis client.
type SessionRepo struct {
	client *goredis.Client
	now    func() time.Time
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// Connect returns a client for addr, or nil when addr is empty.
func Connect(addr, password string) *goredis.Client {
	if addr == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
}

// NewSessionRepo wraps client as a SessionRepository.
func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client, now: time.Now}
}

// Create stores a session that Redis evicts at expiresAt.
func (r *SessionRepo) Create(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	key := keyPrefix + token
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, key,
			"user_id", userID,
			"expires_at", expiresAt.UnixNano(),
			"created_at", r.now().UnixNano(),
		)
		p.PExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: create session: %w", err)
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+token).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	expiresAt, err := parseNanos(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("redis: session expires_at: %w", err)
	}
	createdAt, err := parseNanos(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("redis: session created_at: %w", err)
	}
	return &domain.Session{
		Token:     token,
		UserID:    fields["user_id"],
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: keys carry their own expiry.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return nil
}

func parseNanos(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
