// Package cache memoizes per-entity neighbor sets so repeated map assemblies
// do not re-run the same relation queries. Entries are keyed by tenant,
// entity node ID and traversal depth; both backends expire entries after a
// configurable TTL.
package cache

import (
	"context"
	"fmt"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// maxDepth bounds the depth range Invalidate clears. Assembly only writes
// depth 1 today, but invalidation sweeps the full range so a future deeper
// traversal cannot resurrect stale entries.
const maxDepth = 3

// NeighborCache is the memoization layer in front of the relation queries.
// Get reports (nil, false, nil) on a clean miss. Backend failures surface as
// errors so callers can decide: the assembler treats a failed Get as a miss
// and a failed Set as a no-op, while Invalidate errors propagate to the
// queue layer for redelivery.
type NeighborCache interface {
	Get(ctx context.Context, tenantID int64, entityID string, depth int) (common.NeighborSet, bool, error)
	Set(ctx context.Context, tenantID int64, entityID string, depth int, ns common.NeighborSet) error
	Invalidate(ctx context.Context, tenantID int64, entityID string) error
}

func cacheKey(tenantID int64, entityID string, depth int) string {
	return fmt.Sprintf("livemap:neighbors:%d:%s:%d", tenantID, entityID, depth)
}
