package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the part of *redis.Client the backend uses.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Rename(ctx context.Context, key, newkey string) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis keeps each table in a hash of id to record. A save writes a
// scratch hash and renames it over the live one.
type Redis struct {
	client RedisClient
	prefix string
	close  func() error
}

const defaultRedisPrefix = "gatekeeper:"

// OpenRedis dials addr and checks the connection.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	r := NewRedis(c, prefix)
	r.close = c.Close
	return r, nil
}

// NewRedis wraps an existing client. Close does not close it.
func NewRedis(c RedisClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: c, prefix: prefix, close: func() error { return nil }}
}

func (r *Redis) key(kind string) string { return r.prefix + kind }

func (r *Redis) Save(ctx context.Context, kind string, records map[string]json.RawMessage) error {
	key := r.key(kind)
	if len(records) == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", key, err)
		}
		return nil
	}

	tmp := key + ":tmp"
	if err := r.client.Del(ctx, tmp).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", tmp, err)
	}
	fields := make([]any, 0, 2*len(records))
	for id, rec := range records {
		fields = append(fields, id, string(rec))
	}
	if err := r.client.HSet(ctx, tmp, fields...).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", tmp, err)
	}
	if err := r.client.Rename(ctx, tmp, key).Err(); err != nil {
		return fmt.Errorf("redis rename %s: %w", tmp, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, kind string) (map[string]json.RawMessage, error) {
	key := r.key(kind)
	m, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	out := make(map[string]json.RawMessage, len(m))
	for id, rec := range m {
		out[id] = json.RawMessage(rec)
	}
	return out, nil
}

func (r *Redis) Close() error { return r.close() }
