package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pvzlink/parcel-system/internal/core/ports"
)

const pendingKey = "autoadvance:pending"

// PendingAdvanceStore records scheduled paid → processing auto-advances in a
// Redis sorted set scored by due time. The startup recovery sweep reads it
// back so advances scheduled before a restart are not silently lost.
//
// Best effort only: a crash between the package write and the Mark leaves no
// record, and the package stays in paid until advanced manually.
type PendingAdvanceStore struct {
	client *redis.Client
}

// NewPendingAdvanceStore creates a PendingAdvanceStore wrapping the given client.
func NewPendingAdvanceStore(client *redis.Client) *PendingAdvanceStore {
	return &PendingAdvanceStore{client: client}
}

// Mark records a pending auto-advance for packageID due at the given time.
func (s *PendingAdvanceStore) Mark(ctx context.Context, packageID string, due time.Time) error {
	err := s.client.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: packageID,
	}).Err()
	if err != nil {
		return fmt.Errorf("mark pending advance: %w", err)
	}
	return nil
}

// Clear removes the pending record for packageID. Absent members are a no-op.
func (s *PendingAdvanceStore) Clear(ctx context.Context, packageID string) error {
	if err := s.client.ZRem(ctx, pendingKey, packageID).Err(); err != nil {
		return fmt.Errorf("clear pending advance: %w", err)
	}
	return nil
}

// All returns every recorded pending auto-advance with its due time.
func (s *PendingAdvanceStore) All(ctx context.Context) ([]ports.PendingAdvance, error) {
	members, err := s.client.ZRangeByScoreWithScores(ctx, pendingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("load pending advances: %w", err)
	}

	out := make([]ports.PendingAdvance, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			id = fmt.Sprint(m.Member)
		}
		out = append(out, ports.PendingAdvance{
			PackageID: id,
			Due:       time.Unix(int64(m.Score), 0).UTC(),
		})
	}
	return out, nil
}
