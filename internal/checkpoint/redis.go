package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps each checkpoint under the key <prefix>:<name>
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

type RedisConfig struct {
	Addr   string
	Prefix string
	// TTL of 0 keeps checkpoints forever
	TTL time.Duration
}

func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "selfplay"
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DialTimeout: 2 * time.Second,
	})
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		logger: logger.With().Str("component", "checkpoint_redis_store").Str("addr", cfg.Addr).Logger(),
	}, nil
}

// Ping checks that the server is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store checkpoint %s: %w", name, err)
	}
	s.logger.Debug().Str("key", s.key(name)).Int("bytes", len(data)).Msg("Wrote checkpoint")
	return nil
}

func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", name, err)
	}
	return data, nil
}

func (s *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, s.key(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a checkpoint. Missing names are not an error.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return s.client.Del(ctx, s.key(name)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
