package mem

import (
	"context"
	"fmt"
	"sort"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

func (s *Store) GetUser(ctx context.Context, tenantID, id int64) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	row, ok := td.users[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	u := row.User
	return &u, nil
}

func (s *Store) GetTeam(ctx context.Context, tenantID, id int64) (*store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("team %d: %w", id, common.ErrNotFound)
	}
	row, ok := td.teams[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("team %d: %w", id, common.ErrNotFound)
	}
	t := row.Team
	return &t, nil
}

func (s *Store) GetProject(ctx context.Context, tenantID, id int64) (*store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, common.ErrNotFound)
	}
	row, ok := td.projects[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("project %d: %w", id, common.ErrNotFound)
	}
	p := row.Project
	return &p, nil
}

func (s *Store) GetGoal(ctx context.Context, tenantID, id int64) (*store.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("goal %d: %w", id, common.ErrNotFound)
	}
	row, ok := td.goals[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("goal %d: %w", id, common.ErrNotFound)
	}
	g := row.Goal
	return &g, nil
}

func (s *Store) GetDepartment(ctx context.Context, tenantID, id int64) (*store.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("department %d: %w", id, common.ErrNotFound)
	}
	row, ok := td.departments[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("department %d: %w", id, common.ErrNotFound)
	}
	d := row.Department
	return &d, nil
}

func (s *Store) GetKnowledgeAsset(ctx context.Context, tenantID, id int64) (*store.KnowledgeAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("knowledge asset %d: %w", id, common.ErrNotFound)
	}
	row, ok := td.assets[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("knowledge asset %d: %w", id, common.ErrNotFound)
	}
	a := row.KnowledgeAsset
	return &a, nil
}

func (s *Store) ListDirectReports(ctx context.Context, tenantID, managerID int64, limit int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for id, row := range td.users {
		if row.deleted || row.ManagerID == nil || *row.ManagerID != managerID {
			continue
		}
		ids = append(ids, id)
	}
	return capSorted(ids, limit), nil
}

func (s *Store) ListTeamMembers(ctx context.Context, tenantID, teamID int64, limit int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for id, row := range td.users {
		if row.deleted || row.TeamID == nil || *row.TeamID != teamID {
			continue
		}
		ids = append(ids, id)
	}
	return capSorted(ids, limit), nil
}

func (s *Store) ListProjectsByOwningTeam(ctx context.Context, tenantID, teamID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for id, row := range td.projects {
		if row.deleted || row.OwningTeamID == nil || *row.OwningTeamID != teamID {
			continue
		}
		ids = append(ids, id)
	}
	return capSorted(ids, 0), nil
}

func (s *Store) ListProjectsByParticipant(ctx context.Context, tenantID, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for _, p := range td.participations {
		if p.UserID != userID {
			continue
		}
		if row, ok := td.projects[p.ProjectID]; !ok || row.deleted {
			continue
		}
		ids = append(ids, p.ProjectID)
	}
	return capSorted(ids, 0), nil
}

func (s *Store) ListProjectParticipants(ctx context.Context, tenantID, projectID int64, limit int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for _, p := range td.participations {
		if p.ProjectID != projectID {
			continue
		}
		if row, ok := td.users[p.UserID]; !ok || row.deleted {
			continue
		}
		ids = append(ids, p.UserID)
	}
	return capSorted(ids, limit), nil
}

func (s *Store) ListChildGoals(ctx context.Context, tenantID, goalID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for id, row := range td.goals {
		if row.deleted || row.ParentID == nil || *row.ParentID != goalID {
			continue
		}
		ids = append(ids, id)
	}
	return capSorted(ids, 0), nil
}

func (s *Store) ListKnowledgeAssetsByProjects(ctx context.Context, tenantID int64, projectIDs []int64, kind string, limit int) ([]store.KnowledgeAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	wanted := make(map[int64]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		wanted[id] = struct{}{}
	}
	var out []store.KnowledgeAsset
	for _, row := range td.assets {
		if row.deleted || row.Kind != kind {
			continue
		}
		if _, ok := wanted[row.ProjectID]; !ok {
			continue
		}
		out = append(out, row.KnowledgeAsset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, tenantID int64) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []store.User
	for _, row := range td.users {
		if row.deleted {
			continue
		}
		out = append(out, row.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListTeams(ctx context.Context, tenantID int64) ([]store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []store.Team
	for _, row := range td.teams {
		if row.deleted {
			continue
		}
		out = append(out, row.Team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListProjects(ctx context.Context, tenantID int64) ([]store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []store.Project
	for _, row := range td.projects {
		if row.deleted {
			continue
		}
		out = append(out, row.Project)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListGoals(ctx context.Context, tenantID int64) ([]store.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []store.Goal
	for _, row := range td.goals {
		if row.deleted {
			continue
		}
		out = append(out, row.Goal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDepartments(ctx context.Context, tenantID int64) ([]store.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []store.Department
	for _, row := range td.departments {
		if row.deleted {
			continue
		}
		out = append(out, row.Department)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListProjectParticipations(ctx context.Context, tenantID int64) ([]store.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	out := make([]store.Participation, 0, len(td.participations))
	for _, p := range td.participations {
		if row, ok := td.projects[p.ProjectID]; !ok || row.deleted {
			continue
		}
		if row, ok := td.users[p.UserID]; !ok || row.deleted {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectID != out[j].ProjectID {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func capSorted(ids []int64, limit int) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
