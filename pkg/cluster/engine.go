// Package cluster detects groups of strongly related same-kind entities from
// the relationship-strength feed. Detection runs per (tenant, kind), caches
// its results inside the engine and derives pattern records and cross-cluster
// links from the cached state.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orgloom/livemap/backend/internal/util"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/logger"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// Strategy selects how nodes left over after kind pre-partitioning are
// grouped.
type Strategy string

const (
	StrategyHierarchical        Strategy = "hierarchical"
	StrategyConnectedComponents Strategy = "connected_components"
)

const (
	defaultThreshold         = 0.3
	defaultCutDistance       = 0.8
	defaultMinClusterSize    = 3
	defaultMaxHierarchyNodes = 800
	defaultResultTTL         = 10 * time.Minute
	defaultMaxTries          = 2
	defaultRetryBackoff      = 150 * time.Millisecond
)

// Algorithm names recorded in cluster metadata.
const (
	algoHierarchical        = "hierarchical"
	algoComponents          = "connected_components"
	algoDepartmentPartition = "department_partition"
	algoGoalPartition       = "goal_partition"
	algoHierarchyPartition  = "hierarchy_partition"
)

// clusterNode is one clusterable entity: its map node ID, a display label and
// the optional foreign key the kind pre-partitions on.
type clusterNode struct {
	id           string
	label        string
	partitionKey *int64
}

// adjacency holds the thresholded, undirected strength graph between nodes of
// one detection run. Duplicate rows keep the maximum strength.
type adjacency map[string]map[string]float64

func (a adjacency) add(x, y string, s float64) {
	if a[x] == nil {
		a[x] = make(map[string]float64)
	}
	if cur, ok := a[x][y]; !ok || s > cur {
		a[x][y] = s
	}
}

func (a adjacency) strength(x, y string) (float64, bool) {
	s, ok := a[x][y]
	return s, ok
}

type resultKey struct {
	tenantID int64
	kind     common.EntityKind
}

type resultEntry struct {
	clusters   []common.Cluster
	computedAt time.Time
}

// Engine computes and caches clusters per (tenant, kind). All exported
// methods are safe for concurrent use; computation happens outside the lock
// so lookups stay cheap while a detection runs.
type Engine struct {
	store             store.Store
	strategy          Strategy
	threshold         float64
	cutDistance       float64
	minClusterSize    int
	maxHierarchyNodes int
	resultTTL         time.Duration
	maxTries          int
	retryBackoff      time.Duration

	mu       sync.Mutex
	results  map[resultKey]*resultEntry
	nodeIdx  map[int64]map[string]string
	idxStale map[int64]bool
}

type NewEngineParams struct {
	Store store.Store

	// Strategy defaults to StrategyHierarchical.
	Strategy Strategy

	// Threshold is the minimum strength a row must have to count as a
	// relation. Defaults to 0.3.
	Threshold float64

	// CutDistance stops hierarchical merging once the closest pair of
	// clusters is farther apart. Defaults to 0.8.
	CutDistance float64

	// MinClusterSize drops smaller groups. Defaults to 3.
	MinClusterSize int

	// MaxHierarchyNodes bounds the quadratic distance matrix; larger inputs
	// fall back to connected components. Defaults to 800.
	MaxHierarchyNodes int

	// ResultTTL is how long a cached detection stays fresh. Defaults to 10m.
	ResultTTL time.Duration

	MaxTries     int
	RetryBackoff time.Duration
}

func NewEngine(params NewEngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New("cluster engine requires a store")
	}
	strategy := params.Strategy
	if strategy == "" {
		strategy = StrategyHierarchical
	}
	if strategy != StrategyHierarchical && strategy != StrategyConnectedComponents {
		return nil, fmt.Errorf("unknown clustering strategy: %q", strategy)
	}

	e := &Engine{
		store:             params.Store,
		strategy:          strategy,
		threshold:         params.Threshold,
		cutDistance:       params.CutDistance,
		minClusterSize:    params.MinClusterSize,
		maxHierarchyNodes: params.MaxHierarchyNodes,
		resultTTL:         params.ResultTTL,
		maxTries:          params.MaxTries,
		retryBackoff:      params.RetryBackoff,
		results:           make(map[resultKey]*resultEntry),
		nodeIdx:           make(map[int64]map[string]string),
		idxStale:          make(map[int64]bool),
	}
	if e.threshold <= 0 {
		e.threshold = defaultThreshold
	}
	if e.cutDistance <= 0 {
		e.cutDistance = defaultCutDistance
	}
	if e.minClusterSize <= 0 {
		e.minClusterSize = defaultMinClusterSize
	}
	if e.maxHierarchyNodes <= 0 {
		e.maxHierarchyNodes = defaultMaxHierarchyNodes
	}
	if e.resultTTL <= 0 {
		e.resultTTL = defaultResultTTL
	}
	if e.maxTries <= 0 {
		e.maxTries = defaultMaxTries
	}
	if e.retryBackoff <= 0 {
		e.retryBackoff = defaultRetryBackoff
	}
	return e, nil
}

// ClusterableKinds are the node kinds the engine can cluster, in detection
// order. Other kinds resolve to an empty cluster list.
var ClusterableKinds = []common.EntityKind{
	common.KindUser,
	common.KindTeam,
	common.KindProject,
	common.KindGoal,
}

// entityLoaders dispatches the per-kind bulk load. Kinds without strength
// rows (departments, knowledge assets) are absent from the table and resolve
// to an empty cluster list.
var entityLoaders = map[common.EntityKind]func(*Engine, context.Context, int64) ([]clusterNode, error){
	common.KindUser:    (*Engine).loadUserNodes,
	common.KindTeam:    (*Engine).loadTeamNodes,
	common.KindProject: (*Engine).loadProjectNodes,
	common.KindGoal:    (*Engine).loadGoalNodes,
}

// DetectClusters returns the clusters of one entity kind for a tenant,
// computing them when the cached result is missing, expired or forceRecalc
// is set. An empty node set yields an empty list, never an error.
func (e *Engine) DetectClusters(ctx context.Context, tenantID int64, kind common.EntityKind, forceRecalc bool) ([]common.Cluster, error) {
	if !forceRecalc {
		if clusters, ok := e.cachedClusters(tenantID, kind); ok {
			return clusters, nil
		}
	}

	clusters, err := e.computeClusters(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	e.storeResult(tenantID, kind, clusters)
	return copyClusters(clusters), nil
}

// GetCluster looks up one cached cluster by ID. It never triggers a
// detection; before the first DetectClusters call for the tenant it reports
// not found.
func (e *Engine) GetCluster(tenantID int64, clusterID string) (*common.Cluster, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findClusterLocked(tenantID, clusterID)
}

// GetNodeCluster looks up the cached cluster a node belongs to. The
// node→cluster index is rebuilt lazily after a detection invalidated it.
func (e *Engine) GetNodeCluster(tenantID int64, nodeID string) (*common.Cluster, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clusterID, ok := e.tenantIndexLocked(tenantID)[nodeID]
	if !ok {
		return nil, false
	}
	return e.findClusterLocked(tenantID, clusterID)
}

func (e *Engine) computeClusters(ctx context.Context, tenantID int64, kind common.EntityKind) ([]common.Cluster, error) {
	load, ok := entityLoaders[kind]
	if !ok {
		return []common.Cluster{}, nil
	}
	nodes, err := load(e, ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return []common.Cluster{}, nil
	}

	rows, err := e.loadStrengths(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	adj := buildAdjacency(nodes, rows)

	partitioned, leftover, partitionAlgo := partitionNodes(kind, nodes, e.minClusterSize)

	clusters := make([]common.Cluster, 0, len(partitioned))
	for _, group := range partitioned {
		clusters = append(clusters, e.buildCluster(tenantID, kind, group, adj, partitionAlgo))
	}

	grouped, strategyAlgo, err := e.clusterLeftover(ctx, leftover, adj)
	if err != nil {
		return nil, err
	}
	for _, group := range grouped {
		if len(group) < e.minClusterSize {
			continue
		}
		clusters = append(clusters, e.buildCluster(tenantID, kind, group, adj, strategyAlgo))
	}

	logger.Debug("[Cluster] Detection completed",
		"tenant_id", tenantID, "kind", kind, "nodes", len(nodes), "clusters", len(clusters))
	return clusters, nil
}

// clusterLeftover groups the nodes no pre-partition claimed. Oversized inputs
// degrade from hierarchical clustering to connected components with a logged
// notice rather than an error.
func (e *Engine) clusterLeftover(ctx context.Context, leftover []clusterNode, adj adjacency) ([][]clusterNode, string, error) {
	if len(leftover) == 0 {
		return nil, "", nil
	}
	if e.strategy == StrategyHierarchical {
		if len(leftover) <= e.maxHierarchyNodes {
			groups, err := hierarchicalClusters(ctx, leftover, adj, e.cutDistance)
			if err != nil {
				return nil, "", err
			}
			return groups, algoHierarchical, nil
		}
		logger.Warn("[Cluster] Node set too large for hierarchical clustering, degrading to connected components",
			"nodes", len(leftover), "max", e.maxHierarchyNodes)
	}
	return connectedComponents(leftover, adj), algoComponents, nil
}

func (e *Engine) loadStrengths(ctx context.Context, tenantID int64) ([]common.RelationshipStrength, error) {
	return util.RetryWithBackoff(ctx, e.maxTries, e.retryBackoff, func(ctx context.Context) ([]common.RelationshipStrength, error) {
		return e.store.ListStrengths(ctx, tenantID, e.threshold)
	})
}

func (e *Engine) loadUserNodes(ctx context.Context, tenantID int64) ([]clusterNode, error) {
	rows, err := util.RetryWithBackoff(ctx, e.maxTries, e.retryBackoff, func(ctx context.Context) ([]store.User, error) {
		return e.store.ListUsers(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]clusterNode, len(rows))
	for i, u := range rows {
		nodes[i] = clusterNode{id: common.NodeID(common.KindUser, u.ID), label: u.Name}
	}
	return nodes, nil
}

func (e *Engine) loadTeamNodes(ctx context.Context, tenantID int64) ([]clusterNode, error) {
	rows, err := util.RetryWithBackoff(ctx, e.maxTries, e.retryBackoff, func(ctx context.Context) ([]store.Team, error) {
		return e.store.ListTeams(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]clusterNode, len(rows))
	for i, t := range rows {
		nodes[i] = clusterNode{id: common.NodeID(common.KindTeam, t.ID), label: t.Name, partitionKey: t.DepartmentID}
	}
	return nodes, nil
}

func (e *Engine) loadProjectNodes(ctx context.Context, tenantID int64) ([]clusterNode, error) {
	rows, err := util.RetryWithBackoff(ctx, e.maxTries, e.retryBackoff, func(ctx context.Context) ([]store.Project, error) {
		return e.store.ListProjects(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]clusterNode, len(rows))
	for i, p := range rows {
		nodes[i] = clusterNode{id: common.NodeID(common.KindProject, p.ID), label: p.Name, partitionKey: p.GoalID}
	}
	return nodes, nil
}

func (e *Engine) loadGoalNodes(ctx context.Context, tenantID int64) ([]clusterNode, error) {
	rows, err := util.RetryWithBackoff(ctx, e.maxTries, e.retryBackoff, func(ctx context.Context) ([]store.Goal, error) {
		return e.store.ListGoals(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]clusterNode, len(rows))
	for i, g := range rows {
		nodes[i] = clusterNode{id: common.NodeID(common.KindGoal, g.ID), label: g.Name, partitionKey: g.ParentID}
	}
	return nodes, nil
}

func buildAdjacency(nodes []clusterNode, rows []common.RelationshipStrength) adjacency {
	inSet := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		inSet[n.id] = struct{}{}
	}
	adj := make(adjacency, len(nodes))
	for _, r := range rows {
		if _, ok := inSet[r.SourceID]; !ok {
			continue
		}
		if _, ok := inSet[r.TargetID]; !ok {
			continue
		}
		if r.SourceID == r.TargetID {
			continue
		}
		adj.add(r.SourceID, r.TargetID, r.Strength)
		adj.add(r.TargetID, r.SourceID, r.Strength)
	}
	return adj
}

func (e *Engine) cachedClusters(tenantID int64, kind common.EntityKind) ([]common.Cluster, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.results[resultKey{tenantID: tenantID, kind: kind}]
	if !ok || time.Since(entry.computedAt) > e.resultTTL {
		return nil, false
	}
	return copyClusters(entry.clusters), true
}

func (e *Engine) storeResult(tenantID int64, kind common.EntityKind, clusters []common.Cluster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[resultKey{tenantID: tenantID, kind: kind}] = &resultEntry{
		clusters:   clusters,
		computedAt: time.Now(),
	}
	e.idxStale[tenantID] = true
}

// tenantIndexLocked returns the node→cluster ID index for one tenant,
// rebuilding it from the cached results when a detection marked it stale.
// Node IDs carry their kind prefix, so entries from different kinds never
// collide.
func (e *Engine) tenantIndexLocked(tenantID int64) map[string]string {
	if idx, ok := e.nodeIdx[tenantID]; ok && !e.idxStale[tenantID] {
		return idx
	}
	idx := make(map[string]string)
	for _, kind := range common.AllKinds {
		entry, ok := e.results[resultKey{tenantID: tenantID, kind: kind}]
		if !ok {
			continue
		}
		for i := range entry.clusters {
			c := &entry.clusters[i]
			for _, member := range c.Members {
				idx[member] = c.ID
			}
		}
	}
	e.nodeIdx[tenantID] = idx
	e.idxStale[tenantID] = false
	return idx
}

func (e *Engine) findClusterLocked(tenantID int64, clusterID string) (*common.Cluster, bool) {
	for _, kind := range common.AllKinds {
		entry, ok := e.results[resultKey{tenantID: tenantID, kind: kind}]
		if !ok {
			continue
		}
		for i := range entry.clusters {
			if entry.clusters[i].ID == clusterID {
				return copyCluster(&entry.clusters[i]), true
			}
		}
	}
	return nil, false
}

// cachedTenantClusters snapshots every cached cluster of a tenant in the
// fixed kind order.
func (e *Engine) cachedTenantClusters(tenantID int64) []common.Cluster {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []common.Cluster
	for _, kind := range common.AllKinds {
		entry, ok := e.results[resultKey{tenantID: tenantID, kind: kind}]
		if !ok {
			continue
		}
		out = append(out, copyClusters(entry.clusters)...)
	}
	return out
}

func copyCluster(c *common.Cluster) *common.Cluster {
	out := *c
	out.Members = append([]string(nil), c.Members...)
	out.CentralMembers = append([]string(nil), c.CentralMembers...)
	return &out
}

func copyClusters(clusters []common.Cluster) []common.Cluster {
	out := make([]common.Cluster, len(clusters))
	for i := range clusters {
		out[i] = *copyCluster(&clusters[i])
	}
	return out
}
