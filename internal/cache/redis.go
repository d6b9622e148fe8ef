package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache keys so the store can share a Redis
// database with other tenants.
const redisKeyPrefix = "crediscan"

// RedisStore keeps entries in Redis. SET is atomic per key, which satisfies
// the last-write-wins, no-torn-writes contract without extra locking.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests with miniredis.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(fingerprint string, kind Kind) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, kind, fingerprint)
}

// Get returns the entry for fingerprint within kind.
func (s *RedisStore) Get(ctx context.Context, fingerprint string, kind Kind) (*Entry, error) {
	data, err := s.client.Get(ctx, redisKey(fingerprint, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// Put stores the payload under the key. No TTL: entries live until cleared.
func (s *RedisStore) Put(ctx context.Context, fingerprint string, kind Kind, payload json.RawMessage) error {
	entry := newEntry(fingerprint, kind, payload)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(fingerprint, kind), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Clear removes every key in the kind partition.
func (s *RedisStore) Clear(ctx context.Context, kind Kind) error {
	pattern := fmt.Sprintf("%s:%s:*", redisKeyPrefix, kind)
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
