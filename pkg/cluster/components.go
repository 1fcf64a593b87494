package cluster

// connectedComponents groups nodes that are transitively connected through
// the thresholded adjacency, using union-find with path compression. Edges
// toward nodes outside the set are ignored. Components are returned in
// first-member input order with members in input order, so the output does
// not depend on map iteration; singletons pass through and are dropped later
// by the minimum size filter.
func connectedComponents(nodes []clusterNode, adj adjacency) [][]clusterNode {
	inSet := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		inSet[n.id] = struct{}{}
	}

	parent := make(map[string]string, len(nodes))

	var find func(x string) string
	find = func(x string) string {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	union := func(x, y string) {
		px, py := find(x), find(y)
		if px != py {
			parent[px] = py
		}
	}

	for _, n := range nodes {
		for other := range adj[n.id] {
			if _, ok := inSet[other]; ok {
				union(n.id, other)
			}
		}
	}

	groups := make(map[string][]clusterNode)
	var rootOrder []string
	for _, n := range nodes {
		root := find(n.id)
		if _, ok := groups[root]; !ok {
			rootOrder = append(rootOrder, root)
		}
		groups[root] = append(groups[root], n)
	}

	out := make([][]clusterNode, 0, len(rootOrder))
	for _, root := range rootOrder {
		out = append(out, groups[root])
	}
	return out
}
