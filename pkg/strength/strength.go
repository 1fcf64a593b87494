// Package strength derives relationship-strength rows from structural
// co-occurrence: shared teams, manager chains, shared projects, departments
// and goal hierarchies. The result feeds the clustering engine.
//
// Scores are additive per pair with capped repeat components, clamped to
// [0,1]. Pair enumeration always walks a shared container (a team, project,
// department or goal), never all entity pairs of a tenant.
package strength

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orgloom/livemap/backend/internal/util"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/logger"
	"github.com/orgloom/livemap/backend/pkg/store"
)

const (
	weightSameTeam      = 0.45
	weightManager       = 0.35
	weightSharedProject = 0.15
	capSharedProjects   = 0.45

	weightSameDepartment = 0.40
	weightSharedGoal     = 0.20
	capSharedGoals       = 0.60

	weightSameGoal          = 0.50
	weightSharedParticipant = 0.10
	capSharedParticipants   = 0.40

	weightParentChild = 0.60
	weightSameParent  = 0.40

	// minStoredStrength keeps negligible pairs out of the feed.
	minStoredStrength = 0.05
)

const (
	typeCollaboration = "collaboration"
	typeAlignment     = "alignment"
	typeHierarchy     = "hierarchy"
)

const (
	maxTries     = 2
	retryBackoff = 150 * time.Millisecond
)

type pairKey [2]string

func keyFor(a, b string) pairKey {
	source, target := common.OrderPair(a, b)
	return pairKey{source, target}
}

// load wraps a bulk list read with the package retry policy.
func load[T any](ctx context.Context, fn func(context.Context) ([]T, error)) ([]T, error) {
	return util.RetryWithBackoff(ctx, maxTries, retryBackoff, fn)
}

// Rebuild recomputes every strength row of one tenant and replaces the
// stored feed with the result. The four kind sections run in parallel; rows
// keep a fixed section and discovery order, so repeated runs over unchanged
// data produce the same sequence. It returns the number of rows written.
func Rebuild(ctx context.Context, st store.Store, tenantID int64) (int, error) {
	builders := []func(context.Context, store.EntityStore, int64) ([]common.RelationshipStrength, error){
		userRows,
		teamRows,
		projectRows,
		goalRows,
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(len(builders))
	slots := make([][]common.RelationshipStrength, len(builders))
	for i, build := range builders {
		eg.Go(func() error {
			rows, err := build(ectx, st, tenantID)
			if err != nil {
				return err
			}
			slots[i] = rows
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	var all []common.RelationshipStrength
	for _, rows := range slots {
		all = append(all, rows...)
	}

	// Replace rather than upsert: pairs that no longer qualify after an org
	// change must disappear from the feed.
	err := util.RetryErrWithBackoff(ctx, maxTries, retryBackoff, func(ctx context.Context) error {
		return st.ReplaceStrengths(ctx, tenantID, all)
	})
	if err != nil {
		return 0, err
	}
	logger.Info("[Strength] Rebuilt relationship strengths", "tenant_id", tenantID, "rows", len(all))
	return len(all), nil
}

// userRows scores user pairs: shared team, manager/report relation and
// shared project participation. Manager pairs are typed "hierarchy", the
// rest "collaboration".
func userRows(ctx context.Context, st store.EntityStore, tenantID int64) ([]common.RelationshipStrength, error) {
	users, err := load(ctx, func(ctx context.Context) ([]store.User, error) {
		return st.ListUsers(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	if len(users) < 2 {
		return nil, nil
	}
	participations, err := load(ctx, func(ctx context.Context) ([]store.Participation, error) {
		return st.ListProjectParticipations(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}

	present := make(map[int64]string, len(users))
	for _, u := range users {
		present[u.ID] = common.NodeID(common.KindUser, u.ID)
	}

	type pairState struct {
		sameTeam       bool
		manager        bool
		sharedProjects int
	}
	var order []pairKey
	states := make(map[pairKey]*pairState)
	touch := func(a, b string) *pairState {
		key := keyFor(a, b)
		state, ok := states[key]
		if !ok {
			state = &pairState{}
			states[key] = state
			order = append(order, key)
		}
		return state
	}

	var teamOrder []int64
	byTeam := make(map[int64][]string)
	for _, u := range users {
		if u.TeamID == nil {
			continue
		}
		if _, seen := byTeam[*u.TeamID]; !seen {
			teamOrder = append(teamOrder, *u.TeamID)
		}
		byTeam[*u.TeamID] = append(byTeam[*u.TeamID], present[u.ID])
	}
	for _, teamID := range teamOrder {
		forEachPair(byTeam[teamID], func(a, b string) {
			touch(a, b).sameTeam = true
		})
	}

	for _, u := range users {
		if u.ManagerID == nil || *u.ManagerID == u.ID {
			continue
		}
		manager, ok := present[*u.ManagerID]
		if !ok {
			continue
		}
		touch(present[u.ID], manager).manager = true
	}

	var projectOrder []int64
	byProject := make(map[int64][]string)
	for _, p := range participations {
		member, ok := present[p.UserID]
		if !ok {
			continue
		}
		if _, seen := byProject[p.ProjectID]; !seen {
			projectOrder = append(projectOrder, p.ProjectID)
		}
		byProject[p.ProjectID] = append(byProject[p.ProjectID], member)
	}
	for _, projectID := range projectOrder {
		forEachPair(byProject[projectID], func(a, b string) {
			touch(a, b).sharedProjects++
		})
	}

	rows := make([]common.RelationshipStrength, 0, len(order))
	for _, key := range order {
		state := states[key]
		score := 0.0
		if state.sameTeam {
			score += weightSameTeam
		}
		if state.manager {
			score += weightManager
		}
		score += capped(weightSharedProject*float64(state.sharedProjects), capSharedProjects)

		relType := typeCollaboration
		if state.manager {
			relType = typeHierarchy
		}
		rows = appendRow(rows, tenantID, key, relType, score)
	}
	return rows, nil
}

// teamRows scores team pairs: shared department and goals shared across the
// teams' owned projects. All team pairs are typed "alignment".
func teamRows(ctx context.Context, st store.EntityStore, tenantID int64) ([]common.RelationshipStrength, error) {
	teams, err := load(ctx, func(ctx context.Context) ([]store.Team, error) {
		return st.ListTeams(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, nil
	}
	projects, err := load(ctx, func(ctx context.Context) ([]store.Project, error) {
		return st.ListProjects(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}

	present := make(map[int64]string, len(teams))
	for _, t := range teams {
		present[t.ID] = common.NodeID(common.KindTeam, t.ID)
	}

	type pairState struct {
		sameDepartment bool
		sharedGoals    int
	}
	var order []pairKey
	states := make(map[pairKey]*pairState)
	touch := func(a, b string) *pairState {
		key := keyFor(a, b)
		state, ok := states[key]
		if !ok {
			state = &pairState{}
			states[key] = state
			order = append(order, key)
		}
		return state
	}

	var deptOrder []int64
	byDept := make(map[int64][]string)
	for _, t := range teams {
		if t.DepartmentID == nil {
			continue
		}
		if _, seen := byDept[*t.DepartmentID]; !seen {
			deptOrder = append(deptOrder, *t.DepartmentID)
		}
		byDept[*t.DepartmentID] = append(byDept[*t.DepartmentID], present[t.ID])
	}
	for _, deptID := range deptOrder {
		forEachPair(byDept[deptID], func(a, b string) {
			touch(a, b).sameDepartment = true
		})
	}

	// Teams meet on a goal when each owns at least one project aligned to
	// it; a team counts once per goal no matter how many of its projects
	// align.
	var goalOrder []int64
	byGoal := make(map[int64][]string)
	goalSeen := make(map[int64]map[int64]struct{})
	for _, p := range projects {
		if p.OwningTeamID == nil || p.GoalID == nil {
			continue
		}
		team, ok := present[*p.OwningTeamID]
		if !ok {
			continue
		}
		if goalSeen[*p.GoalID] == nil {
			goalSeen[*p.GoalID] = make(map[int64]struct{})
			goalOrder = append(goalOrder, *p.GoalID)
		}
		if _, dup := goalSeen[*p.GoalID][*p.OwningTeamID]; dup {
			continue
		}
		goalSeen[*p.GoalID][*p.OwningTeamID] = struct{}{}
		byGoal[*p.GoalID] = append(byGoal[*p.GoalID], team)
	}
	for _, goalID := range goalOrder {
		forEachPair(byGoal[goalID], func(a, b string) {
			touch(a, b).sharedGoals++
		})
	}

	rows := make([]common.RelationshipStrength, 0, len(order))
	for _, key := range order {
		state := states[key]
		score := 0.0
		if state.sameDepartment {
			score += weightSameDepartment
		}
		score += capped(weightSharedGoal*float64(state.sharedGoals), capSharedGoals)
		rows = appendRow(rows, tenantID, key, typeAlignment, score)
	}
	return rows, nil
}

// projectRows scores project pairs: shared aligned goal and shared
// participants. The dominant component decides the type.
func projectRows(ctx context.Context, st store.EntityStore, tenantID int64) ([]common.RelationshipStrength, error) {
	projects, err := load(ctx, func(ctx context.Context) ([]store.Project, error) {
		return st.ListProjects(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	if len(projects) < 2 {
		return nil, nil
	}
	participations, err := load(ctx, func(ctx context.Context) ([]store.Participation, error) {
		return st.ListProjectParticipations(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}

	present := make(map[int64]string, len(projects))
	for _, p := range projects {
		present[p.ID] = common.NodeID(common.KindProject, p.ID)
	}

	type pairState struct {
		sameGoal           bool
		sharedParticipants int
	}
	var order []pairKey
	states := make(map[pairKey]*pairState)
	touch := func(a, b string) *pairState {
		key := keyFor(a, b)
		state, ok := states[key]
		if !ok {
			state = &pairState{}
			states[key] = state
			order = append(order, key)
		}
		return state
	}

	var goalOrder []int64
	byGoal := make(map[int64][]string)
	for _, p := range projects {
		if p.GoalID == nil {
			continue
		}
		if _, seen := byGoal[*p.GoalID]; !seen {
			goalOrder = append(goalOrder, *p.GoalID)
		}
		byGoal[*p.GoalID] = append(byGoal[*p.GoalID], present[p.ID])
	}
	for _, goalID := range goalOrder {
		forEachPair(byGoal[goalID], func(a, b string) {
			touch(a, b).sameGoal = true
		})
	}

	var userOrder []int64
	byUser := make(map[int64][]string)
	for _, p := range participations {
		project, ok := present[p.ProjectID]
		if !ok {
			continue
		}
		if _, seen := byUser[p.UserID]; !seen {
			userOrder = append(userOrder, p.UserID)
		}
		byUser[p.UserID] = append(byUser[p.UserID], project)
	}
	for _, userID := range userOrder {
		forEachPair(byUser[userID], func(a, b string) {
			touch(a, b).sharedParticipants++
		})
	}

	rows := make([]common.RelationshipStrength, 0, len(order))
	for _, key := range order {
		state := states[key]
		goalComponent := 0.0
		if state.sameGoal {
			goalComponent = weightSameGoal
		}
		participantComponent := capped(weightSharedParticipant*float64(state.sharedParticipants), capSharedParticipants)

		relType := typeCollaboration
		if goalComponent > 0 && goalComponent >= participantComponent {
			relType = typeAlignment
		}
		rows = appendRow(rows, tenantID, key, relType, goalComponent+participantComponent)
	}
	return rows, nil
}

// goalRows scores goal pairs: direct parent/child relation and shared
// parent. Goal pairs are always typed "hierarchy". Projects align to exactly
// one goal, so there is no shared-project component between goals.
func goalRows(ctx context.Context, st store.EntityStore, tenantID int64) ([]common.RelationshipStrength, error) {
	goals, err := load(ctx, func(ctx context.Context) ([]store.Goal, error) {
		return st.ListGoals(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	if len(goals) < 2 {
		return nil, nil
	}

	present := make(map[int64]string, len(goals))
	for _, g := range goals {
		present[g.ID] = common.NodeID(common.KindGoal, g.ID)
	}

	type pairState struct {
		parentChild bool
		sameParent  bool
	}
	var order []pairKey
	states := make(map[pairKey]*pairState)
	touch := func(a, b string) *pairState {
		key := keyFor(a, b)
		state, ok := states[key]
		if !ok {
			state = &pairState{}
			states[key] = state
			order = append(order, key)
		}
		return state
	}

	for _, g := range goals {
		if g.ParentID == nil || *g.ParentID == g.ID {
			continue
		}
		parent, ok := present[*g.ParentID]
		if !ok {
			continue
		}
		touch(present[g.ID], parent).parentChild = true
	}

	var parentOrder []int64
	byParent := make(map[int64][]string)
	for _, g := range goals {
		if g.ParentID == nil {
			continue
		}
		if _, seen := byParent[*g.ParentID]; !seen {
			parentOrder = append(parentOrder, *g.ParentID)
		}
		byParent[*g.ParentID] = append(byParent[*g.ParentID], present[g.ID])
	}
	for _, parentID := range parentOrder {
		forEachPair(byParent[parentID], func(a, b string) {
			touch(a, b).sameParent = true
		})
	}

	rows := make([]common.RelationshipStrength, 0, len(order))
	for _, key := range order {
		state := states[key]
		score := 0.0
		if state.parentChild {
			score += weightParentChild
		}
		if state.sameParent {
			score += weightSameParent
		}
		rows = appendRow(rows, tenantID, key, typeHierarchy, score)
	}
	return rows, nil
}

func appendRow(rows []common.RelationshipStrength, tenantID int64, key pairKey, relType string, score float64) []common.RelationshipStrength {
	if score > 1 {
		score = 1
	}
	if score < minStoredStrength {
		return rows
	}
	return append(rows, common.RelationshipStrength{
		SourceID:         key[0],
		TargetID:         key[1],
		TenantID:         tenantID,
		RelationshipType: relType,
		Strength:         score,
	})
}

func forEachPair(ids []string, fn func(a, b string)) {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			fn(ids[i], ids[j])
		}
	}
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
