package graph

import (
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// Conversion from repository rows to map nodes. Each entity kind has exactly
// one converter; optional foreign keys only appear in Data when set.

func userNode(u *store.User) common.Node {
	data := map[string]any{"email": u.Email}
	if u.ManagerID != nil {
		data["manager_id"] = *u.ManagerID
	}
	if u.TeamID != nil {
		data["team_id"] = *u.TeamID
	}
	return common.Node{
		ID:       common.NodeID(common.KindUser, u.ID),
		TenantID: u.TenantID,
		Kind:     common.KindUser,
		Label:    u.Name,
		Data:     data,
	}
}

func teamNode(t *store.Team) common.Node {
	var data map[string]any
	if t.DepartmentID != nil {
		data = map[string]any{"department_id": *t.DepartmentID}
	}
	return common.Node{
		ID:       common.NodeID(common.KindTeam, t.ID),
		TenantID: t.TenantID,
		Kind:     common.KindTeam,
		Label:    t.Name,
		Data:     data,
	}
}

func projectNode(p *store.Project) common.Node {
	data := map[string]any{}
	if p.OwningTeamID != nil {
		data["owning_team_id"] = *p.OwningTeamID
	}
	if p.GoalID != nil {
		data["goal_id"] = *p.GoalID
	}
	if len(data) == 0 {
		data = nil
	}
	return common.Node{
		ID:       common.NodeID(common.KindProject, p.ID),
		TenantID: p.TenantID,
		Kind:     common.KindProject,
		Label:    p.Name,
		Data:     data,
	}
}

func goalNode(g *store.Goal) common.Node {
	var data map[string]any
	if g.ParentID != nil {
		data = map[string]any{"parent_id": *g.ParentID}
	}
	return common.Node{
		ID:       common.NodeID(common.KindGoal, g.ID),
		TenantID: g.TenantID,
		Kind:     common.KindGoal,
		Label:    g.Name,
		Data:     data,
	}
}

func departmentNode(d *store.Department) common.Node {
	return common.Node{
		ID:       common.NodeID(common.KindDepartment, d.ID),
		TenantID: d.TenantID,
		Kind:     common.KindDepartment,
		Label:    d.Name,
	}
}

func assetNode(a *store.KnowledgeAsset) common.Node {
	return common.Node{
		ID:       common.NodeID(common.KindKnowledgeAsset, a.ID),
		TenantID: a.TenantID,
		Kind:     common.KindKnowledgeAsset,
		Label:    a.Title,
		Data: map[string]any{
			"project_id":  a.ProjectID,
			"asset_kind":  a.Kind,
			"storage_key": a.StorageKey,
		},
	}
}
