package cluster

import "github.com/orgloom/livemap/backend/pkg/common"

// partitionAlgos names the structural pre-partition per entity kind. Kinds
// absent from the table skip pre-partitioning and go straight to the
// strategy.
var partitionAlgos = map[common.EntityKind]string{
	common.KindTeam:    algoDepartmentPartition,
	common.KindProject: algoGoalPartition,
	common.KindGoal:    algoHierarchyPartition,
}

// partitionNodes groups nodes by their structural foreign key (a team's
// department, a project's goal, a goal's parent). Groups reaching minSize
// become clusters outright; everything else, including nodes without a key,
// stays leftover for the strategy. Group order follows the first occurrence
// of each key in the input.
func partitionNodes(kind common.EntityKind, nodes []clusterNode, minSize int) ([][]clusterNode, []clusterNode, string) {
	algo, ok := partitionAlgos[kind]
	if !ok {
		return nil, nodes, ""
	}

	groups := make(map[int64][]clusterNode)
	var keyOrder []int64
	for _, n := range nodes {
		if n.partitionKey == nil {
			continue
		}
		key := *n.partitionKey
		if _, seen := groups[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], n)
	}

	kept := make([][]clusterNode, 0, len(keyOrder))
	keptKeys := make(map[int64]struct{}, len(keyOrder))
	for _, key := range keyOrder {
		if len(groups[key]) >= minSize {
			kept = append(kept, groups[key])
			keptKeys[key] = struct{}{}
		}
	}

	leftover := make([]clusterNode, 0, len(nodes))
	for _, n := range nodes {
		if n.partitionKey != nil {
			if _, ok := keptKeys[*n.partitionKey]; ok {
				continue
			}
		}
		leftover = append(leftover, n)
	}
	return kept, leftover, algo
}
