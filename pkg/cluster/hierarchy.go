package cluster

import "context"

// missingPairDistance is assumed between nodes with no strength row above
// the threshold. It exceeds any reachable cut distance, so nodes never merge
// on absence of evidence alone.
const missingPairDistance = 2.0

// hierarchicalClusters runs average-linkage agglomerative clustering over
// the node set. Pairwise distances start at 1-strength; after a merge the
// distances to the combined cluster follow the Lance-Williams average-linkage
// update. Merging stops once the closest pair of clusters is farther apart
// than cutDistance.
//
// Ties on distance resolve to the lowest index pair, so the merge sequence
// (and with it member order) is deterministic for a given input order. The
// context is checked before every merge; cancellation aborts the run.
func hierarchicalClusters(ctx context.Context, nodes []clusterNode, adj adjacency, cutDistance float64) ([][]clusterNode, error) {
	n := len(nodes)
	if n == 0 {
		return nil, nil
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := missingPairDistance
			if s, ok := adj.strength(nodes[i].id, nodes[j].id); ok {
				d = 1 - s
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	members := make([][]clusterNode, n)
	sizes := make([]int, n)
	active := make([]bool, n)
	for i, node := range nodes {
		members[i] = []clusterNode{node}
		sizes[i] = 1
		active[i] = true
	}

	for remaining := n; remaining > 1; remaining-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := missingPairDistance + 1
		bestI, bestJ := -1, -1
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if dist[i][j] < best {
					best = dist[i][j]
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 || best > cutDistance {
			break
		}

		for k := 0; k < n; k++ {
			if !active[k] || k == bestI || k == bestJ {
				continue
			}
			merged := (float64(sizes[bestI])*dist[bestI][k] + float64(sizes[bestJ])*dist[bestJ][k]) /
				float64(sizes[bestI]+sizes[bestJ])
			dist[bestI][k] = merged
			dist[k][bestI] = merged
		}
		members[bestI] = append(members[bestI], members[bestJ]...)
		sizes[bestI] += sizes[bestJ]
		active[bestJ] = false
		members[bestJ] = nil
	}

	out := make([][]clusterNode, 0, n)
	for i := 0; i < n; i++ {
		if active[i] {
			out = append(out, members[i])
		}
	}
	return out, nil
}
