package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "refresh_token:"

// SessionStore holds the single live refresh token of each user. Writing a
// new value supersedes the previous one.
type SessionStore interface {
	Set(ctx context.Context, userID, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, userID string) (string, bool, error)
	Delete(ctx context.Context, userID string) error
	// CompareAndSwap replaces the stored token with next only if it still
	// equals expected. It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, userID, expected, next string, ttl time.Duration) (bool, error)
}

// SessionKey returns the store key for a user's refresh session.
func SessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

var compareAndSwapScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

type redisSessionStore struct {
	client redis.UniversalClient
}

// NewRedisSessionStore returns a Redis-backed session store.
func NewRedisSessionStore(client redis.UniversalClient) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Set(ctx context.Context, userID, refreshToken string, ttl time.Duration) error {
	if err := s.client.Set(ctx, SessionKey(userID), refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := s.client.Get(ctx, SessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load session: %w", err)
	}
	return val, true, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, SessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) CompareAndSwap(ctx context.Context, userID, expected, next string, ttl time.Duration) (bool, error) {
	swapped, err := compareAndSwapScript.Run(ctx, s.client,
		[]string{SessionKey(userID)},
		expected, next, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}
	return swapped == 1, nil
}
