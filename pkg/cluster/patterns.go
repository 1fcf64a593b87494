package cluster

import (
	"context"
	"fmt"

	"github.com/orgloom/livemap/backend/internal/util"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// StoreClustersAsPatterns persists every cached cluster of a tenant as a
// pattern record keyed by (tenant, "cluster_"+kind, cluster ID). Existing
// records are refreshed, new ones inserted; because cluster IDs are stable
// membership hashes, running this twice without input changes touches the
// same records instead of creating duplicates.
func (e *Engine) StoreClustersAsPatterns(ctx context.Context, tenantID int64) ([]common.PatternRef, error) {
	clusters := e.cachedTenantClusters(tenantID)
	if len(clusters) == 0 {
		return []common.PatternRef{}, nil
	}

	patterns := make([]store.Pattern, len(clusters))
	for i, c := range clusters {
		patterns[i] = store.Pattern{
			TenantID:    tenantID,
			PatternType: "cluster_" + string(c.NodeKind),
			ClusterID:   c.ID,
			Description: describeCluster(c),
			Metadata: store.PatternMetadata{
				ClusterID:      c.ID,
				Algorithm:      c.Metadata.Algorithm,
				Threshold:      c.Metadata.Threshold,
				CentralMembers: c.CentralMembers,
			},
			MemberRefs: c.Members,
		}
	}

	return util.RetryWithBackoff(ctx, e.maxTries, e.retryBackoff, func(ctx context.Context) ([]common.PatternRef, error) {
		return e.store.UpsertPatterns(ctx, tenantID, patterns)
	})
}

func describeCluster(c common.Cluster) string {
	if c.Name == "" {
		return fmt.Sprintf("%d %s nodes", len(c.Members), c.NodeKind)
	}
	return fmt.Sprintf("%d %s nodes grouped around %s", len(c.Members), c.NodeKind, c.Name)
}
