package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/coffeeshop/coffeeshop/internal/model"
)

const (
	// menuVersionKey holds the menu generation, bumped on every write to the store.
	menuVersionKey = "menu:version"
	// menuKeyPrefix prefixes the serialized drink list of one generation.
	menuKeyPrefix = "menu:drinks:v"
)

func menuKey(version int64) string {
	return menuKeyPrefix + strconv.FormatInt(version, 10)
}

// MenuVersion returns the current menu generation. An unset counter is 0.
func (c *Cache) MenuVersion(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, menuVersionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return version, nil
}

// GetMenu returns the cached drink list of the current generation together
// with that generation. On ErrCacheMiss the generation is still returned so
// the caller can fill it with SetMenu.
func (c *Cache) GetMenu(ctx context.Context) ([]model.Drink, int64, error) {
	version, err := c.MenuVersion(ctx)
	if err != nil {
		return nil, 0, err
	}

	key := menuKey(version)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, ErrCacheMiss
		}
		return nil, version, fmt.Errorf("redis get failed: %w", err)
	}

	var drinks []model.Drink
	if err := json.Unmarshal(raw, &drinks); err != nil {
		// A corrupt entry is dropped and reported as a miss.
		c.client.Del(ctx, key)
		return nil, version, ErrCacheMiss
	}

	return drinks, version, nil
}

// SetMenu stores the drink list under the given generation. A list loaded
// before an invalidation lands under a retired key that no reader looks up
// and that expires with the menu TTL.
func (c *Cache) SetMenu(ctx context.Context, version int64, drinks []model.Drink) error {
	if drinks == nil {
		drinks = []model.Drink{}
	}

	raw, err := json.Marshal(drinks)
	if err != nil {
		return fmt.Errorf("failed to encode menu: %w", err)
	}

	if err := c.client.Set(ctx, menuKey(version), raw, c.opts.MenuTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache menu: %w", err)
	}

	return nil
}

// InvalidateMenu retires the current generation.
func (c *Cache) InvalidateMenu(ctx context.Context) error {
	if err := c.client.Incr(ctx, menuVersionKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate menu: %w", err)
	}
	return nil
}
