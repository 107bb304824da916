package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a refresh token or OAuth state is unknown, expired or already used.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps refresh-token ids and OAuth state values in Redis.
type SessionStore struct {
	redis *redis.Client
}

func NewSessionStore(redisClient *redis.Client) *SessionStore {
	return &SessionStore{redis: redisClient}
}

func refreshKey(jti string) string { return "refresh:" + jti }
func oauthStateKey(state string) string { return "oauth_state:" + state }

func (s *SessionStore) SaveRefresh(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.redis.Set(ctx, refreshKey(jti), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ConsumeRefresh atomically reads and deletes the refresh token id, so a token can be used once.
func (s *SessionStore) ConsumeRefresh(ctx context.Context, jti string) (uuid.UUID, error) {
	raw, err := s.redis.GetDel(ctx, refreshKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(raw)
}

func (s *SessionStore) RevokeRefresh(ctx context.Context, jti string) error {
	return s.redis.Del(ctx, refreshKey(jti)).Err()
}

func (s *SessionStore) SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error {
	return s.redis.Set(ctx, oauthStateKey(state), "1", ttl).Err()
}

func (s *SessionStore) ConsumeOAuthState(ctx context.Context, state string) error {
	n, err := s.redis.Del(ctx, oauthStateKey(state)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
