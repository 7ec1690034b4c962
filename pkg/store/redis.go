package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL expires every written key; zero keeps keys until deleted.
	TTL time.Duration
}

// DialRedis connects and pings a Redis server.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping failed: %w", err)
	}
	return client, nil
}

// RedisBackend stores values as plain Redis strings under a key prefix.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend wraps a connected client. prefix namespaces every key,
// typically per session (`formblocks:<session>:`).
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: redis get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.prefix + key
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("store: redis del: %w", err)
	}
	return nil
}

// Keys implements Backend using SCAN over the prefix.
func (r *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("store: redis scan: %w", err)
		}
		for _, key := range keys {
			out = append(out, strings.TrimPrefix(key, r.prefix))
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
