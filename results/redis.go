package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/answermesh/core"
)

// RedisStore keeps each identity's set as one JSON value. A single SET
// replaces the previous value atomically.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore wraps a Redis client. An empty prefix defaults to
// "answermesh:".
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "answermesh:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "answers:"}
}

// OpenRedis connects to the Redis instance at url (redis://...) and checks
// the connection.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, ""), nil
}

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) key(identity string) string { return s.keyPrefix + identity }

// Save replaces the value stored for identity.
func (s *RedisStore) Save(ctx context.Context, identity string, set core.ResultSet) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(identity), data, 0).Err(); err != nil {
		return fmt.Errorf("store result set: %w", err)
	}
	return nil
}

// Load returns the set stored for identity.
func (s *RedisStore) Load(ctx context.Context, identity string) (core.ResultSet, error) {
	data, err := s.client.Get(ctx, s.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.ResultSet{}, core.ErrResultSetNotFound
		}
		return core.ResultSet{}, fmt.Errorf("load result set: %w", err)
	}
	return Decode(identity, data)
}
