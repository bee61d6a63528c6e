// Package redis stores the session in Redis so that several clients on
// different hosts can share one login.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/mailguard/internal/client/storage"
)

// Storage implements storage.SessionStore on top of a Redis client.
// Values live under "<prefix><key>". A zero ttl keeps them until deleted.
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ storage.SessionStore = (*Storage)(nil)

// New creates a Redis-backed session store. Prefix may be empty.
func New(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	if prefix == "" {
		prefix = "mailguard:session:"
	}
	return &Storage{client: client, prefix: prefix, ttl: ttl}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client, prefix, ttl), nil
}

func (s *Storage) key(k string) string {
	return s.prefix + k
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
