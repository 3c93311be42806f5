package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles driver claim locks in Redis. A claim makes an
// order-to-driver match exclusive while assignment is in flight, so two
// concurrent matchers cannot grab the same driver.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireDriverClaim attempts to claim the given driver for assignment.
// Returns true if the claim was acquired, false if another matcher holds it.
func (s *LockStore) AcquireDriverClaim(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("claim:driver:%s", driverID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseDriverClaim releases the claim for the given driver.
func (s *LockStore) ReleaseDriverClaim(ctx context.Context, driverID string) error {
	key := fmt.Sprintf("claim:driver:%s", driverID)

	return s.client.Del(ctx, key).Err()
}
