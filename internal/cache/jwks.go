package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/coffeeshop/coffeeshop/internal/auth"
)

const keySetKey = "auth:jwks"

// GetKeySet returns the cached signing-key set, or nil when absent.
func (c *Cache) GetKeySet(ctx context.Context) (*auth.KeySet, error) {
	raw, err := c.client.Get(ctx, keySetKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var ks auth.KeySet
	if err := json.Unmarshal(raw, &ks); err != nil {
		return nil, fmt.Errorf("failed to decode cached key set: %w", err)
	}

	return &ks, nil
}

// SetKeySet stores the signing-key set.
func (c *Cache) SetKeySet(ctx context.Context, ks *auth.KeySet) error {
	if ks == nil {
		return nil
	}

	raw, err := json.Marshal(ks)
	if err != nil {
		return fmt.Errorf("failed to encode key set: %w", err)
	}

	if err := c.client.Set(ctx, keySetKey, raw, c.opts.KeySetTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache key set: %w", err)
	}

	return nil
}
