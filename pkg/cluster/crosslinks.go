package cluster

import (
	"context"
	"sort"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// DetectCrossClusterRelationships aggregates the strength rows bridging two
// different cached clusters of one tenant, across every kind detected so
// far. Rows whose endpoints are unclustered, or land in the same cluster,
// are skipped. Links come back sorted by average strength descending, with
// pair IDs ascending on ties.
func (e *Engine) DetectCrossClusterRelationships(ctx context.Context, tenantID int64) ([]common.CrossClusterLink, error) {
	e.mu.Lock()
	index := e.tenantIndexLocked(tenantID)
	e.mu.Unlock()
	if len(index) == 0 {
		return []common.CrossClusterLink{}, nil
	}

	rows, err := e.loadStrengths(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	type linkAgg struct {
		sum   float64
		count int
	}
	aggs := make(map[[2]string]*linkAgg)
	for _, r := range rows {
		clusterA, okA := index[r.SourceID]
		clusterB, okB := index[r.TargetID]
		if !okA || !okB || clusterA == clusterB {
			continue
		}
		first, second := common.OrderPair(clusterA, clusterB)
		pair := [2]string{first, second}
		agg, ok := aggs[pair]
		if !ok {
			agg = &linkAgg{}
			aggs[pair] = agg
		}
		agg.sum += r.Strength
		agg.count++
	}

	links := make([]common.CrossClusterLink, 0, len(aggs))
	for pair, agg := range aggs {
		links = append(links, common.CrossClusterLink{
			ClusterA:    pair[0],
			ClusterB:    pair[1],
			AvgStrength: agg.sum / float64(agg.count),
			Count:       agg.count,
		})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].AvgStrength != links[j].AvgStrength {
			return links[i].AvgStrength > links[j].AvgStrength
		}
		if links[i].ClusterA != links[j].ClusterA {
			return links[i].ClusterA < links[j].ClusterA
		}
		return links[i].ClusterB < links[j].ClusterB
	})
	return links, nil
}
