package redis

import (
	"context"
	"errors"
	"time"

	"fleet-track/internal/ports"

	"github.com/redis/go-redis/v9"
)

// CooldownStore caches driver cool-down windows as TTL'd keys. Redis expiry
// is the cool-down clock: while the key lives, the driver is cooling down.
type CooldownStore struct {
	client *redis.Client
}

// NewCooldownStore constructs a CooldownStore over the given client.
func NewCooldownStore(client *redis.Client) ports.CooldownCache {
	return &CooldownStore{client: client}
}

func cooldownKey(driverID string) string {
	return "hotspot:cooldown:" + driverID
}

// StartCooldown records a terminal event for the driver; the window is the
// key's TTL.
func (s *CooldownStore) StartCooldown(ctx context.Context, driverID string, window time.Duration) error {
	return s.client.Set(ctx, cooldownKey(driverID), time.Now().UTC().Format(time.RFC3339), window).Err()
}

// RemainingCooldown returns the time left on the driver's cool-down key, or 0
// when no key exists.
func (s *CooldownStore) RemainingCooldown(ctx context.Context, driverID string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, cooldownKey(driverID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	// TTL returns negative durations for missing keys and keys without expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
