package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the code is not cached.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "urlshort:code:"

// Redis caches short code to long URL lookups.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, code string) (string, error) {
	longURL, err := r.client.Get(ctx, keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return longURL, err
}

func (r *Redis) Set(ctx context.Context, code, longURL string) error {
	return r.client.Set(ctx, keyPrefix+code, longURL, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	return r.client.Del(ctx, keyPrefix+code).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop never caches anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) { return "", ErrMiss }

func (Noop) Set(context.Context, string, string) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }
