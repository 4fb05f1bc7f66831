package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis хранит токен строковым ключом с TTL (0 — без истечения).
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если key пустой — используется DefaultKey.
func NewRedis(ctx context.Context, redisURL, key string, ttl time.Duration) (*Redis, error) {
	const op = "tokenstore.NewRedis"

	if key == "" {
		key = DefaultKey
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Redis{rdb: rdb, key: key, ttl: ttl}, nil
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	tok, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("tokenstore.Redis.Load: %w", err)
	}

	return tok, nil
}

func (r *Redis) Save(ctx context.Context, token string) error {
	if err := r.rdb.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("tokenstore.Redis.Save: %w", err)
	}

	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("tokenstore.Redis.Clear: %w", err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (r *Redis) Close() error { return r.rdb.Close() }
