package cluster

import (
	"sort"
	"time"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// maxCentralMembers caps how many members are flagged central per cluster.
const maxCentralMembers = 3

// buildCluster turns one raw group into a Cluster: members keep their
// discovery order, central members are the top three by within-cluster
// strength-row degree (ties keep insertion order), the name derives from the
// top central labels and the ID is the stable membership hash.
func (e *Engine) buildCluster(tenantID int64, kind common.EntityKind, group []clusterNode, adj adjacency, algorithm string) common.Cluster {
	members := make([]string, len(group))
	labels := make(map[string]string, len(group))
	for i, n := range group {
		members[i] = n.id
		labels[n.id] = n.label
	}
	inGroup := make(map[string]struct{}, len(members))
	for _, m := range members {
		inGroup[m] = struct{}{}
	}

	type rankedMember struct {
		id     string
		degree int
	}
	ranked := make([]rankedMember, len(members))
	for i, m := range members {
		degree := 0
		for other := range adj[m] {
			if _, ok := inGroup[other]; ok {
				degree++
			}
		}
		ranked[i] = rankedMember{id: m, degree: degree}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].degree > ranked[j].degree })

	centralCount := len(ranked)
	if centralCount > maxCentralMembers {
		centralCount = maxCentralMembers
	}
	central := make([]string, centralCount)
	for i := range central {
		central[i] = ranked[i].id
	}

	return common.Cluster{
		ID:             common.ClusterID(tenantID, kind, members),
		TenantID:       tenantID,
		NodeKind:       kind,
		Members:        members,
		CentralMembers: central,
		Name:           clusterName(central, labels),
		Metadata: common.ClusterMetadata{
			Algorithm: algorithm,
			Threshold: e.threshold,
			CreatedAt: time.Now().UTC(),
		},
	}
}

func clusterName(central []string, labels map[string]string) string {
	switch {
	case len(central) >= 2:
		return labels[central[0]] + " & " + labels[central[1]]
	case len(central) == 1:
		return labels[central[0]]
	default:
		return ""
	}
}
