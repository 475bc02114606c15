package status

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
	redisclient "github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/redis"
)

// RedisStatusStore implements the StatusStore interface on Redis SETEX
// semantics. Keys expire on their own; absence of a key is the
// "not started" (or, after expiry, "historical") representation.
type RedisStatusStore struct {
	client *redisclient.Client
}

// NewRedisStatusStore creates a new Redis-backed status store.
func NewRedisStatusStore(client *redisclient.Client) providers.StatusStore {
	return &RedisStatusStore{client: client}
}

// Key builds the wire key for one (job, slot) pair.
func Key(jobID string, slot entities.SlotID) string {
	return fmt.Sprintf("report:%s:slot:%d", jobID, int(slot))
}

// SetStatus writes the status token with the given TTL.
func (s *RedisStatusStore) SetStatus(ctx context.Context, jobID string, slot entities.SlotID, value string, ttl time.Duration) error {
	if err := s.client.Client().Set(ctx, Key(jobID, slot), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set slot status: %w", err)
	}
	return nil
}

// GetStatus returns the stored token and whether an entry exists.
func (s *RedisStatusStore) GetStatus(ctx context.Context, jobID string, slot entities.SlotID) (string, bool, error) {
	value, err := s.client.Client().Get(ctx, Key(jobID, slot)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get slot status: %w", err)
	}
	return value, true, nil
}
