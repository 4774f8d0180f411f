package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MohamadAlaskari/EventHub/internal/config"
	"github.com/MohamadAlaskari/EventHub/internal/repository"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// NewSessionStore picks the session backend: Redis when an address is
// configured, otherwise an in-process store. The returned Redis is nil in
// the latter case.
func NewSessionStore(cfg config.RedisConfig, logger *zap.Logger) (repository.SessionStore, *Redis) {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; refresh sessions are kept in memory")
		return repository.NewMemorySessionStore(nil), nil
	}
	r := NewRedis(cfg, logger)
	return repository.NewRedisSessionStore(r.Client), r
}
