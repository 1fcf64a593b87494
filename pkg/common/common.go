package common

import "time"

// EntityKind identifies the type of an organizational entity that can appear
// as a node on the living map. The set of kinds is closed; dispatch over
// kinds happens through lookup tables, never through runtime type inspection.
type EntityKind string

const (
	KindUser           EntityKind = "user"
	KindTeam           EntityKind = "team"
	KindProject        EntityKind = "project"
	KindGoal           EntityKind = "goal"
	KindDepartment     EntityKind = "department"
	KindKnowledgeAsset EntityKind = "asset"
)

// AllKinds lists every entity kind in a fixed order. Iteration over kinds
// must use this slice instead of ranging over a map, so derived output
// stays deterministic.
var AllKinds = []EntityKind{
	KindUser,
	KindTeam,
	KindProject,
	KindGoal,
	KindDepartment,
	KindKnowledgeAsset,
}

// ValidKind reports whether k is one of the closed set of entity kinds.
func ValidKind(k EntityKind) bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// EdgeKind identifies the structural relation an edge represents.
type EdgeKind string

const (
	EdgeReportsTo      EdgeKind = "REPORTS_TO"
	EdgeMemberOf       EdgeKind = "MEMBER_OF"
	EdgeOwns           EdgeKind = "OWNS"
	EdgeAlignedTo      EdgeKind = "ALIGNED_TO"
	EdgeParticipatesIn EdgeKind = "PARTICIPATES_IN"
	EdgeRelatesTo      EdgeKind = "RELATES_TO"
	EdgeChildOf        EdgeKind = "CHILD_OF"
)

// Position is an optional rendering hint for a node. Default positions are
// assigned deterministically from insertion order after assembly.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents one entity on an assembled map. The ID is derived from the
// entity kind and numeric ID and is unique within a tenant's node set. Kind
// never changes once the node is created.
//
// Data carries kind-specific display attributes (for example a user's email
// or a project's goal_id). Nodes live only for the duration of one assembly
// call and are never persisted.
type Node struct {
	ID       string         `json:"id"`
	TenantID int64          `json:"tenant_id"`
	Kind     EntityKind     `json:"kind"`
	Label    string         `json:"label"`
	Data     map[string]any `json:"data,omitempty"`
	Position *Position      `json:"position,omitempty"`
}

// Edge represents a structural relation between two nodes of the same
// assembled map. The ID is deterministically derived from source, kind and
// target so re-assembling the same traversal yields identical edge IDs.
//
// Both endpoints always reference nodes present in the same assembled graph;
// the assembler only ever creates an edge after both endpoint nodes exist.
type Edge struct {
	ID       string   `json:"id"`
	TenantID int64    `json:"tenant_id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Kind     EdgeKind `json:"kind"`
}

// MapData is the result of one map assembly call: a deduplicated node set
// and the edges between those nodes.
type MapData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// RelationshipStrength is a scalar affinity score between two nodes,
// consumed only by the clustering engine. It is distinct from a structural
// Edge and undirected for clustering purposes; rows are stored with
// SourceID < TargetID canonical ordering.
type RelationshipStrength struct {
	SourceID         string  `json:"source_id"`
	TargetID         string  `json:"target_id"`
	TenantID         int64   `json:"tenant_id"`
	RelationshipType string  `json:"relationship_type"`
	Strength         float64 `json:"strength"`
}

// ClusterMetadata records how a cluster was produced.
type ClusterMetadata struct {
	Algorithm string    `json:"algorithm"`
	Threshold float64   `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// Cluster is a derived grouping of same-kind nodes with strong mutual
// relationship strength. Members keep their discovery order; CentralMembers
// holds up to three node IDs ranked by within-cluster relationship degree.
//
// The cluster ID is a stable hash of (tenant, kind, sorted members), so
// identical membership always yields the same ID across recomputations.
// That stability is what makes pattern persistence an upsert.
type Cluster struct {
	ID             string          `json:"id"`
	TenantID       int64           `json:"tenant_id"`
	NodeKind       EntityKind      `json:"node_kind"`
	Members        []string        `json:"members"`
	CentralMembers []string        `json:"central_members"`
	Name           string          `json:"name"`
	Metadata       ClusterMetadata `json:"metadata"`
}

// CrossClusterLink aggregates the relationship strengths that connect two
// different clusters of one tenant.
type CrossClusterLink struct {
	ClusterA    string  `json:"cluster_a"`
	ClusterB    string  `json:"cluster_b"`
	AvgStrength float64 `json:"avg_strength"`
	Count       int     `json:"count"`
}

// NeighborSet holds the directly connected entity IDs of one entity grouped
// by kind. ID lists are free of duplicates and keep the computation's merge
// order, which is stable for a given org state.
type NeighborSet map[EntityKind][]int64

// Clone returns a deep copy of the neighbor set. An empty or nil set clones
// to an empty non-nil set so callers can distinguish "no neighbors" from
// "not cached".
func (ns NeighborSet) Clone() NeighborSet {
	out := make(NeighborSet, len(ns))
	for kind, ids := range ns {
		cp := make([]int64, len(ids))
		copy(cp, ids)
		out[kind] = cp
	}
	return out
}

// PatternRef identifies one persisted pattern record derived from a cluster.
// Created reports whether the call inserted a new record or refreshed an
// existing one.
type PatternRef struct {
	ID          int64  `json:"id"`
	TenantID    int64  `json:"tenant_id"`
	PatternType string `json:"pattern_type"`
	ClusterID   string `json:"cluster_id"`
	Created     bool   `json:"created"`
}
