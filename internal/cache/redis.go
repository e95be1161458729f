package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/brieflyhq/briefly/pkg/models"
)

// RedisStore persists newsletters in Redis with native key expiry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using a URL of the form
// redis://[user:pass@]host:port[/db].
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an existing client (used in tests).
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the cached newsletter, or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, profession string, window models.TimeWindow) (*models.Newsletter, error) {
	data, err := s.client.Get(ctx, Key(profession, window)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}

	var n models.Newsletter
	if err := json.Unmarshal(data, &n); err != nil {
		// A corrupt entry is as good as no entry.
		return nil, ErrMiss
	}
	return &n, nil
}

// Put stores the newsletter with the window's TTL, overwriting any entry.
func (s *RedisStore) Put(ctx context.Context, n *models.Newsletter) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("cache: marshal newsletter: %w", err)
	}
	key := Key(n.Profession, n.Window)
	if err := s.client.Set(ctx, key, data, n.Window.TTL()).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete removes the entry for the key, if any.
func (s *RedisStore) Delete(ctx context.Context, profession string, window models.TimeWindow) error {
	if err := s.client.Del(ctx, Key(profession, window)).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

// Ping checks Redis reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stats counts cached newsletters by key prefix scan.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	st := Stats{Backend: "redis"}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return st
	}
	st.Connected = true

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			break
		}
		st.Newsletters += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return st
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
