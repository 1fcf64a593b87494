package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NodeID derives the map node ID for an entity, e.g. "user:17".
func NodeID(kind EntityKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// ParseNodeID splits a node ID back into its kind and numeric entity ID.
func ParseNodeID(nodeID string) (EntityKind, int64, error) {
	idx := strings.IndexByte(nodeID, ':')
	if idx <= 0 || idx == len(nodeID)-1 {
		return "", 0, fmt.Errorf("malformed node id: %q", nodeID)
	}
	kind := EntityKind(nodeID[:idx])
	if !ValidKind(kind) {
		return "", 0, fmt.Errorf("unknown node kind in id: %q", nodeID)
	}
	id, err := strconv.ParseInt(nodeID[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed node id: %q", nodeID)
	}
	return kind, id, nil
}

// EdgeID derives the deterministic edge ID for a relation instance.
// Re-assembling the same traversal produces the same IDs.
func EdgeID(source string, kind EdgeKind, target string) string {
	return source + "-" + string(kind) + "-" + target
}

// ClusterID computes the stable cluster ID from tenant, node kind and
// membership. Members are sorted into a copy first, so the ID does not
// depend on discovery order.
func ClusterID(tenantID int64, kind EntityKind, members []string) string {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(tenantID, 10)))
	h.Write([]byte{0x1f})
	h.Write([]byte(kind))
	h.Write([]byte{0x1f})
	h.Write([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// OrderPair returns the two node IDs in canonical order. Strength rows are
// undirected; storing and aggregating them under a canonical pair keeps
// lookups and upserts symmetric.
func OrderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
