package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKey = "returns:settings"

// RedisStore keeps the returns settings in Redis so operators can override
// them at runtime across all replicas. A missing key falls back to the
// seed settings without writing them, so a later explicit override wins.
type RedisStore struct {
	client *redis.Client
	seed   Settings
}

// NewRedisStore creates a Redis-backed settings store with the given seed
// settings used when no override has been stored yet.
func NewRedisStore(client *redis.Client, seed Settings) *RedisStore {
	return &RedisStore{client: client, seed: seed}
}

// Get returns the stored override, or the seed settings when none exists.
func (r *RedisStore) Get(ctx context.Context) (Settings, error) {
	data, err := r.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return r.seed, nil
		}
		return Settings{}, fmt.Errorf("redis get returns settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal returns settings: %w", err)
	}
	return s, nil
}

// Update stores the settings override. No TTL: overrides persist until the
// next override.
func (r *RedisStore) Update(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal returns settings: %w", err)
	}
	if err := r.client.Set(ctx, redisKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set returns settings: %w", err)
	}
	return nil
}
