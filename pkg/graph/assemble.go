package graph

import (
	"context"
	"fmt"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/logger"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// mapBuilder accumulates one assembly's nodes and edges. All mutation is
// single-goroutine: parallel stages fetch into slots and merge through the
// builder sequentially, which keeps insertion order deterministic.
type mapBuilder struct {
	tenantID int64
	nodes    []common.Node
	edges    []common.Edge
	nodeIdx  map[string]struct{}
	edgeIdx  map[string]struct{}
}

func newMapBuilder(tenantID int64) *mapBuilder {
	return &mapBuilder{
		tenantID: tenantID,
		nodeIdx:  make(map[string]struct{}),
		edgeIdx:  make(map[string]struct{}),
	}
}

func (b *mapBuilder) hasNode(id string) bool {
	_, ok := b.nodeIdx[id]
	return ok
}

// addNode inserts the node unless its ID is already present. First insertion
// wins; a node already on the map is never re-added or reordered.
func (b *mapBuilder) addNode(n common.Node) string {
	if b.hasNode(n.ID) {
		return n.ID
	}
	b.nodeIdx[n.ID] = struct{}{}
	b.nodes = append(b.nodes, n)
	return n.ID
}

// addEdge records one relation instance. Both endpoints must already be on
// the map; an edge toward an absent endpoint is dropped, never fabricated.
func (b *mapBuilder) addEdge(source string, kind common.EdgeKind, target string) {
	if !b.hasNode(source) || !b.hasNode(target) {
		return
	}
	id := common.EdgeID(source, kind, target)
	if _, ok := b.edgeIdx[id]; ok {
		return
	}
	b.edgeIdx[id] = struct{}{}
	b.edges = append(b.edges, common.Edge{
		ID:       id,
		TenantID: b.tenantID,
		Source:   source,
		Target:   target,
		Kind:     kind,
	})
}

func (b *mapBuilder) result() *common.MapData {
	return &common.MapData{Nodes: b.nodes, Edges: b.edges}
}

// AssembleMap builds the relationship map around one focal user: the user's
// reporting line, team, department, projects, aligned goals and attached
// note assets, expanded in fixed stages. Re-running the call over unchanged
// data returns an identical graph.
//
// The focal user must exist under the tenant, otherwise common.ErrNotFound.
// Any repository failure that survives its retry fails the whole call; a
// partial graph is never returned.
func (a *Assembler) AssembleMap(ctx context.Context, tenantID, focalUserID int64) (*common.MapData, error) {
	focal, err := a.fetchUser(ctx, tenantID, focalUserID)
	if err != nil {
		return nil, err
	}
	if focal == nil {
		return nil, fmt.Errorf("focal user %d: %w", focalUserID, common.ErrNotFound)
	}

	b := newMapBuilder(tenantID)
	focalNodeID := b.addNode(userNode(focal))

	var (
		teams       []*store.Team
		projects    []*store.Project
		projectSeen = make(map[int64]struct{})
	)
	trackProjects := func(added []*store.Project) {
		for _, p := range added {
			if _, ok := projectSeen[p.ID]; ok {
				continue
			}
			projectSeen[p.ID] = struct{}{}
			projects = append(projects, p)
		}
	}

	// Stage 1: the focal user's direct neighborhood.
	ns, err := a.userNeighbors(ctx, tenantID, focal)
	if err != nil {
		return nil, err
	}

	var managerID int64
	if focal.ManagerID != nil {
		managerID = *focal.ManagerID
	}
	relatedUsers, err := a.ensureUsers(ctx, b, tenantID, ns[common.KindUser])
	if err != nil {
		return nil, err
	}
	for _, id := range relatedUsers {
		if id == focal.ID {
			continue
		}
		if focal.ManagerID != nil && id == managerID {
			b.addEdge(focalNodeID, common.EdgeReportsTo, common.NodeID(common.KindUser, id))
			continue
		}
		b.addEdge(common.NodeID(common.KindUser, id), common.EdgeReportsTo, focalNodeID)
	}

	for _, teamID := range ns[common.KindTeam] {
		t, err := a.fetchTeam(ctx, tenantID, teamID)
		if err != nil {
			return nil, err
		}
		if t == nil {
			logger.Warn("[Graph] Skipping dangling team reference", "tenant_id", tenantID, "team_id", teamID)
			continue
		}
		tNodeID := b.addNode(teamNode(t))
		b.addEdge(focalNodeID, common.EdgeMemberOf, tNodeID)
		teams = append(teams, t)
	}

	participated, added, err := a.ensureProjects(ctx, b, tenantID, ns[common.KindProject])
	if err != nil {
		return nil, err
	}
	trackProjects(added)
	for _, id := range participated {
		b.addEdge(focalNodeID, common.EdgeParticipatesIn, common.NodeID(common.KindProject, id))
	}

	// Stage 2: each included team's department, owned projects and members.
	for _, t := range teams {
		tns, err := a.teamNeighbors(ctx, tenantID, t)
		if err != nil {
			return nil, err
		}
		tNodeID := common.NodeID(common.KindTeam, t.ID)

		for _, deptID := range tns[common.KindDepartment] {
			d, err := a.fetchDepartment(ctx, tenantID, deptID)
			if err != nil {
				return nil, err
			}
			if d == nil {
				logger.Warn("[Graph] Skipping dangling department reference", "tenant_id", tenantID, "department_id", deptID)
				continue
			}
			b.addEdge(tNodeID, common.EdgeMemberOf, b.addNode(departmentNode(d)))
		}

		owned, added, err := a.ensureProjects(ctx, b, tenantID, tns[common.KindProject])
		if err != nil {
			return nil, err
		}
		trackProjects(added)
		for _, id := range owned {
			b.addEdge(tNodeID, common.EdgeOwns, common.NodeID(common.KindProject, id))
		}

		members, err := a.ensureUsers(ctx, b, tenantID, tns[common.KindUser])
		if err != nil {
			return nil, err
		}
		for _, id := range members {
			b.addEdge(common.NodeID(common.KindUser, id), common.EdgeMemberOf, tNodeID)
		}
	}

	// Stage 3: goals and remaining participants of every included project.
	// The stage walks a snapshot; it adds goals and users, never projects.
	for _, p := range projects {
		pNodeID := common.NodeID(common.KindProject, p.ID)

		if p.GoalID != nil {
			g, err := a.fetchGoal(ctx, tenantID, *p.GoalID)
			if err != nil {
				return nil, err
			}
			if g == nil {
				logger.Warn("[Graph] Skipping dangling goal reference", "tenant_id", tenantID, "goal_id", *p.GoalID)
			} else {
				gNodeID := b.addNode(goalNode(g))
				b.addEdge(pNodeID, common.EdgeAlignedTo, gNodeID)

				if g.ParentID != nil && *g.ParentID != g.ID {
					pg, err := a.fetchGoal(ctx, tenantID, *g.ParentID)
					if err != nil {
						return nil, err
					}
					if pg == nil {
						logger.Warn("[Graph] Skipping dangling parent goal reference", "tenant_id", tenantID, "goal_id", *g.ParentID)
					} else {
						b.addEdge(gNodeID, common.EdgeChildOf, b.addNode(goalNode(pg)))
					}
				}
			}
		}

		pns, err := a.projectNeighbors(ctx, tenantID, p)
		if err != nil {
			return nil, err
		}
		participants, err := a.ensureUsers(ctx, b, tenantID, pns[common.KindUser])
		if err != nil {
			return nil, err
		}
		for _, id := range participants {
			b.addEdge(common.NodeID(common.KindUser, id), common.EdgeParticipatesIn, pNodeID)
		}
	}

	// Stage 4: note assets attached to the included projects, capped across
	// the whole map rather than per project.
	if len(projects) > 0 {
		projectIDs := make([]int64, len(projects))
		for i, p := range projects {
			projectIDs[i] = p.ID
		}
		assets, err := a.listAssets(ctx, tenantID, projectIDs)
		if err != nil {
			return nil, err
		}
		for i := range assets {
			asset := &assets[i]
			pNodeID := common.NodeID(common.KindProject, asset.ProjectID)
			if !b.hasNode(pNodeID) {
				continue
			}
			b.addEdge(b.addNode(assetNode(asset)), common.EdgeRelatesTo, pNodeID)
		}
	}

	data := b.result()
	applyRadialLayout(data.Nodes)

	logger.Debug("[Graph] Assembled map",
		"tenant_id", tenantID,
		"focal_user_id", focalUserID,
		"nodes", len(data.Nodes),
		"edges", len(data.Edges))
	return data, nil
}

// ensureUsers guarantees a node for every listed user, fetching rows for the
// ones not already on the map. It returns the IDs whose nodes are present
// afterwards, preserving input order; dangling references are dropped.
func (a *Assembler) ensureUsers(ctx context.Context, b *mapBuilder, tenantID int64, ids []int64) ([]int64, error) {
	missing := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !b.hasNode(common.NodeID(common.KindUser, id)) {
			missing = append(missing, id)
		}
	}
	rows, err := fetchSlots(ctx, a.parallelFetches, tenantID, missing, a.fetchUser)
	if err != nil {
		return nil, err
	}
	fetched := make(map[int64]*store.User, len(missing))
	for i, id := range missing {
		if rows[i] != nil {
			fetched[id] = rows[i]
		}
	}

	present := make([]int64, 0, len(ids))
	for _, id := range ids {
		if b.hasNode(common.NodeID(common.KindUser, id)) {
			present = append(present, id)
			continue
		}
		row, ok := fetched[id]
		if !ok {
			logger.Warn("[Graph] Skipping dangling user reference", "tenant_id", tenantID, "user_id", id)
			continue
		}
		b.addNode(userNode(row))
		present = append(present, id)
	}
	return present, nil
}

// ensureProjects is ensureUsers for projects. It additionally returns the
// rows it added so the caller can track them for the later stages.
func (a *Assembler) ensureProjects(ctx context.Context, b *mapBuilder, tenantID int64, ids []int64) ([]int64, []*store.Project, error) {
	missing := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !b.hasNode(common.NodeID(common.KindProject, id)) {
			missing = append(missing, id)
		}
	}
	rows, err := fetchSlots(ctx, a.parallelFetches, tenantID, missing, a.fetchProject)
	if err != nil {
		return nil, nil, err
	}
	fetched := make(map[int64]*store.Project, len(missing))
	for i, id := range missing {
		if rows[i] != nil {
			fetched[id] = rows[i]
		}
	}

	present := make([]int64, 0, len(ids))
	var added []*store.Project
	for _, id := range ids {
		if b.hasNode(common.NodeID(common.KindProject, id)) {
			present = append(present, id)
			continue
		}
		row, ok := fetched[id]
		if !ok {
			logger.Warn("[Graph] Skipping dangling project reference", "tenant_id", tenantID, "project_id", id)
			continue
		}
		b.addNode(projectNode(row))
		present = append(present, id)
		added = append(added, row)
	}
	return present, added, nil
}

