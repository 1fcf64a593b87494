package graph

import (
	"context"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/logger"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// neighborDepth is the only depth written today. Deeper traversals are
// derived from repeated depth-1 expansions, never cached directly.
const neighborDepth = 1

// neighborFuncs dispatches the per-kind neighbor computation. Kinds without
// outgoing relation queries (departments, knowledge assets) are absent from
// the table and resolve to an empty set.
var neighborFuncs = map[common.EntityKind]func(*Assembler, context.Context, int64, int64) (common.NeighborSet, error){
	common.KindUser:    (*Assembler).userNeighborsByID,
	common.KindTeam:    (*Assembler).teamNeighborsByID,
	common.KindProject: (*Assembler).projectNeighborsByID,
	common.KindGoal:    (*Assembler).goalNeighborsByID,
}

// Neighbors returns the directly connected entity IDs of one entity, grouped
// by kind. The cache is consulted before any relation query; on a miss the
// set is computed with one bounded query per relation kind and written back.
// An absent or tenant-mismatched entity yields an empty set, not an error,
// so callers must treat empty as "no neighbors" rather than as a failure.
func (a *Assembler) Neighbors(ctx context.Context, tenantID int64, kind common.EntityKind, id int64) (common.NeighborSet, error) {
	fn, ok := neighborFuncs[kind]
	if !ok {
		return common.NeighborSet{}, nil
	}
	return fn(a, ctx, tenantID, id)
}

func (a *Assembler) userNeighborsByID(ctx context.Context, tenantID, id int64) (common.NeighborSet, error) {
	u, err := a.fetchUser(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return common.NeighborSet{}, nil
	}
	return a.userNeighbors(ctx, tenantID, u)
}

func (a *Assembler) teamNeighborsByID(ctx context.Context, tenantID, id int64) (common.NeighborSet, error) {
	t, err := a.fetchTeam(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return common.NeighborSet{}, nil
	}
	return a.teamNeighbors(ctx, tenantID, t)
}

func (a *Assembler) projectNeighborsByID(ctx context.Context, tenantID, id int64) (common.NeighborSet, error) {
	p, err := a.fetchProject(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return common.NeighborSet{}, nil
	}
	return a.projectNeighbors(ctx, tenantID, p)
}

func (a *Assembler) goalNeighborsByID(ctx context.Context, tenantID, id int64) (common.NeighborSet, error) {
	g, err := a.fetchGoal(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return common.NeighborSet{}, nil
	}
	return a.goalNeighbors(ctx, tenantID, g)
}

// userNeighbors collects a user's manager, direct reports, team and
// participated projects. The manager comes first in the user list so cached
// order stays stable.
func (a *Assembler) userNeighbors(ctx context.Context, tenantID int64, u *store.User) (common.NeighborSet, error) {
	nodeID := common.NodeID(common.KindUser, u.ID)
	if ns, ok := a.cachedNeighbors(ctx, tenantID, nodeID); ok {
		return ns, nil
	}

	ns := common.NeighborSet{}

	users := make([]int64, 0, a.maxReports+1)
	if u.ManagerID != nil && *u.ManagerID != u.ID {
		users = append(users, *u.ManagerID)
	}
	reports, err := a.listWithRetry(ctx, func(ctx context.Context) ([]int64, error) {
		return a.store.ListDirectReports(ctx, tenantID, u.ID, a.maxReports)
	})
	if err != nil {
		return nil, err
	}
	users = store.DedupeInt64s(append(users, reports...))
	if len(users) > 0 {
		ns[common.KindUser] = users
	}

	if u.TeamID != nil {
		ns[common.KindTeam] = []int64{*u.TeamID}
	}

	projects, err := a.listWithRetry(ctx, func(ctx context.Context) ([]int64, error) {
		return a.store.ListProjectsByParticipant(ctx, tenantID, u.ID)
	})
	if err != nil {
		return nil, err
	}
	if len(projects) > 0 {
		ns[common.KindProject] = projects
	}

	a.storeNeighbors(ctx, tenantID, nodeID, ns)
	return ns, nil
}

// teamNeighbors collects a team's department, owned projects and members.
func (a *Assembler) teamNeighbors(ctx context.Context, tenantID int64, t *store.Team) (common.NeighborSet, error) {
	nodeID := common.NodeID(common.KindTeam, t.ID)
	if ns, ok := a.cachedNeighbors(ctx, tenantID, nodeID); ok {
		return ns, nil
	}

	ns := common.NeighborSet{}

	if t.DepartmentID != nil {
		ns[common.KindDepartment] = []int64{*t.DepartmentID}
	}

	owned, err := a.listWithRetry(ctx, func(ctx context.Context) ([]int64, error) {
		return a.store.ListProjectsByOwningTeam(ctx, tenantID, t.ID)
	})
	if err != nil {
		return nil, err
	}
	if len(owned) > 0 {
		ns[common.KindProject] = owned
	}

	members, err := a.listWithRetry(ctx, func(ctx context.Context) ([]int64, error) {
		return a.store.ListTeamMembers(ctx, tenantID, t.ID, a.maxTeamMembers)
	})
	if err != nil {
		return nil, err
	}
	if len(members) > 0 {
		ns[common.KindUser] = members
	}

	a.storeNeighbors(ctx, tenantID, nodeID, ns)
	return ns, nil
}

// projectNeighbors collects a project's participants and aligned goal.
func (a *Assembler) projectNeighbors(ctx context.Context, tenantID int64, p *store.Project) (common.NeighborSet, error) {
	nodeID := common.NodeID(common.KindProject, p.ID)
	if ns, ok := a.cachedNeighbors(ctx, tenantID, nodeID); ok {
		return ns, nil
	}

	ns := common.NeighborSet{}

	participants, err := a.listWithRetry(ctx, func(ctx context.Context) ([]int64, error) {
		return a.store.ListProjectParticipants(ctx, tenantID, p.ID, a.maxParticipants)
	})
	if err != nil {
		return nil, err
	}
	if len(participants) > 0 {
		ns[common.KindUser] = participants
	}

	if p.GoalID != nil {
		ns[common.KindGoal] = []int64{*p.GoalID}
	}

	if p.OwningTeamID != nil {
		ns[common.KindTeam] = []int64{*p.OwningTeamID}
	}

	a.storeNeighbors(ctx, tenantID, nodeID, ns)
	return ns, nil
}

// goalNeighbors collects a goal's parent and child goals into one list, the
// parent first.
func (a *Assembler) goalNeighbors(ctx context.Context, tenantID int64, g *store.Goal) (common.NeighborSet, error) {
	nodeID := common.NodeID(common.KindGoal, g.ID)
	if ns, ok := a.cachedNeighbors(ctx, tenantID, nodeID); ok {
		return ns, nil
	}

	ns := common.NeighborSet{}

	goals := make([]int64, 0, 8)
	if g.ParentID != nil {
		goals = append(goals, *g.ParentID)
	}
	children, err := a.listWithRetry(ctx, func(ctx context.Context) ([]int64, error) {
		return a.store.ListChildGoals(ctx, tenantID, g.ID)
	})
	if err != nil {
		return nil, err
	}
	goals = store.DedupeInt64s(append(goals, children...))
	if len(goals) > 0 {
		ns[common.KindGoal] = goals
	}

	a.storeNeighbors(ctx, tenantID, nodeID, ns)
	return ns, nil
}

// cachedNeighbors wraps cache.Get. A backend failure is logged and treated
// as a miss; a cache outage must never fail an assembly.
func (a *Assembler) cachedNeighbors(ctx context.Context, tenantID int64, nodeID string) (common.NeighborSet, bool) {
	ns, ok, err := a.cache.Get(ctx, tenantID, nodeID, neighborDepth)
	if err != nil {
		logger.Warn("[Graph] Neighbor cache read failed, treating as miss", "entity", nodeID, "error", err)
		return nil, false
	}
	return ns, ok
}

// storeNeighbors wraps cache.Set. A backend failure is logged and dropped.
func (a *Assembler) storeNeighbors(ctx context.Context, tenantID int64, nodeID string, ns common.NeighborSet) {
	if err := a.cache.Set(ctx, tenantID, nodeID, neighborDepth, ns); err != nil {
		logger.Warn("[Graph] Neighbor cache write failed", "entity", nodeID, "error", err)
	}
}
