package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

func (s *GraphDBStore) GetUser(ctx context.Context, tenantID, id int64) (*store.User, error) {
	var u store.User
	err := s.conn.QueryRow(ctx, getUserSQL, tenantID, id).
		Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.ManagerID, &u.TeamID)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	return &u, nil
}

func (s *GraphDBStore) GetTeam(ctx context.Context, tenantID, id int64) (*store.Team, error) {
	var t store.Team
	err := s.conn.QueryRow(ctx, getTeamSQL, tenantID, id).
		Scan(&t.ID, &t.TenantID, &t.Name, &t.DepartmentID)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("team %d: %w", id, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	return &t, nil
}

func (s *GraphDBStore) GetProject(ctx context.Context, tenantID, id int64) (*store.Project, error) {
	var p store.Project
	err := s.conn.QueryRow(ctx, getProjectSQL, tenantID, id).
		Scan(&p.ID, &p.TenantID, &p.Name, &p.OwningTeamID, &p.GoalID)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", id, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	return &p, nil
}

func (s *GraphDBStore) GetGoal(ctx context.Context, tenantID, id int64) (*store.Goal, error) {
	var g store.Goal
	err := s.conn.QueryRow(ctx, getGoalSQL, tenantID, id).
		Scan(&g.ID, &g.TenantID, &g.Name, &g.ParentID)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("goal %d: %w", id, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	return &g, nil
}

func (s *GraphDBStore) GetDepartment(ctx context.Context, tenantID, id int64) (*store.Department, error) {
	var d store.Department
	err := s.conn.QueryRow(ctx, getDepartmentSQL, tenantID, id).
		Scan(&d.ID, &d.TenantID, &d.Name)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("department %d: %w", id, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	return &d, nil
}

func (s *GraphDBStore) GetKnowledgeAsset(ctx context.Context, tenantID, id int64) (*store.KnowledgeAsset, error) {
	var a store.KnowledgeAsset
	err := s.conn.QueryRow(ctx, getKnowledgeAssetSQL, tenantID, id).
		Scan(&a.ID, &a.TenantID, &a.ProjectID, &a.Kind, &a.Title, &a.StorageKey)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("knowledge asset %d: %w", id, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	return &a, nil
}

func (s *GraphDBStore) ListDirectReports(ctx context.Context, tenantID, managerID int64, limit int) ([]int64, error) {
	return s.listIDs(ctx, listDirectReportsSQL, tenantID, managerID, normalizeLimit(limit))
}

func (s *GraphDBStore) ListTeamMembers(ctx context.Context, tenantID, teamID int64, limit int) ([]int64, error) {
	return s.listIDs(ctx, listTeamMembersSQL, tenantID, teamID, normalizeLimit(limit))
}

func (s *GraphDBStore) ListProjectsByOwningTeam(ctx context.Context, tenantID, teamID int64) ([]int64, error) {
	return s.listIDs(ctx, listProjectsByOwningTeamSQL, tenantID, teamID)
}

func (s *GraphDBStore) ListProjectsByParticipant(ctx context.Context, tenantID, userID int64) ([]int64, error) {
	return s.listIDs(ctx, listProjectsByParticipantSQL, tenantID, userID)
}

func (s *GraphDBStore) ListProjectParticipants(ctx context.Context, tenantID, projectID int64, limit int) ([]int64, error) {
	return s.listIDs(ctx, listProjectParticipantsSQL, tenantID, projectID, normalizeLimit(limit))
}

func (s *GraphDBStore) ListChildGoals(ctx context.Context, tenantID, goalID int64) ([]int64, error) {
	return s.listIDs(ctx, listChildGoalsSQL, tenantID, goalID)
}

func (s *GraphDBStore) ListKnowledgeAssetsByProjects(ctx context.Context, tenantID int64, projectIDs []int64, kind string, limit int) ([]store.KnowledgeAsset, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	rows, err := s.conn.Query(ctx, listKnowledgeAssetsSQL, tenantID, projectIDs, kind, normalizeLimit(limit))
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.KnowledgeAsset
	for rows.Next() {
		var a store.KnowledgeAsset
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ProjectID, &a.Kind, &a.Title, &a.StorageKey); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) ListUsers(ctx context.Context, tenantID int64) ([]store.User, error) {
	rows, err := s.conn.Query(ctx, listUsersSQL, tenantID)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.User
	for rows.Next() {
		var u store.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.ManagerID, &u.TeamID); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) ListTeams(ctx context.Context, tenantID int64) ([]store.Team, error) {
	rows, err := s.conn.Query(ctx, listTeamsSQL, tenantID)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.Team
	for rows.Next() {
		var t store.Team
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.DepartmentID); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) ListProjects(ctx context.Context, tenantID int64) ([]store.Project, error) {
	rows, err := s.conn.Query(ctx, listProjectsSQL, tenantID)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.Project
	for rows.Next() {
		var p store.Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.OwningTeamID, &p.GoalID); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) ListGoals(ctx context.Context, tenantID int64) ([]store.Goal, error) {
	rows, err := s.conn.Query(ctx, listGoalsSQL, tenantID)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.Goal
	for rows.Next() {
		var g store.Goal
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Name, &g.ParentID); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) ListDepartments(ctx context.Context, tenantID int64) ([]store.Department, error) {
	rows, err := s.conn.Query(ctx, listDepartmentsSQL, tenantID)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.Department
	for rows.Next() {
		var d store.Department
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Name); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) ListProjectParticipations(ctx context.Context, tenantID int64) ([]store.Participation, error) {
	rows, err := s.conn.Query(ctx, listParticipationsSQL, tenantID)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.Participation
	for rows.Next() {
		var p store.Participation
		if err := rows.Scan(&p.ProjectID, &p.UserID); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

func (s *GraphDBStore) listIDs(ctx context.Context, sql string, args ...any) ([]int64, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, common.WrapTransient(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return ids, nil
}

// normalizeLimit keeps unbounded queries out of the fan-out paths. Zero or
// negative limits fall back to a high ceiling instead of LIMIT 0.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}

const getUserSQL = `
SELECT id, tenant_id, name, email, manager_id, team_id
FROM users
WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL;
`

const getTeamSQL = `
SELECT id, tenant_id, name, department_id
FROM teams
WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL;
`

const getProjectSQL = `
SELECT id, tenant_id, name, owning_team_id, goal_id
FROM projects
WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL;
`

const getGoalSQL = `
SELECT id, tenant_id, name, parent_id
FROM goals
WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL;
`

const getDepartmentSQL = `
SELECT id, tenant_id, name
FROM departments
WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL;
`

const getKnowledgeAssetSQL = `
SELECT id, tenant_id, project_id, kind, title, storage_key
FROM knowledge_assets
WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL;
`

const listDirectReportsSQL = `
SELECT id
FROM users
WHERE tenant_id = $1 AND manager_id = $2 AND deleted_at IS NULL
ORDER BY id
LIMIT $3;
`

const listTeamMembersSQL = `
SELECT id
FROM users
WHERE tenant_id = $1 AND team_id = $2 AND deleted_at IS NULL
ORDER BY id
LIMIT $3;
`

const listProjectsByOwningTeamSQL = `
SELECT id
FROM projects
WHERE tenant_id = $1 AND owning_team_id = $2 AND deleted_at IS NULL
ORDER BY id;
`

const listProjectsByParticipantSQL = `
SELECT p.id
FROM projects p
JOIN project_participants pp ON pp.project_id = p.id
WHERE p.tenant_id = $1 AND pp.user_id = $2 AND p.deleted_at IS NULL
ORDER BY p.id;
`

const listProjectParticipantsSQL = `
SELECT u.id
FROM users u
JOIN project_participants pp ON pp.user_id = u.id
WHERE u.tenant_id = $1 AND pp.project_id = $2 AND u.deleted_at IS NULL
ORDER BY u.id
LIMIT $3;
`

const listChildGoalsSQL = `
SELECT id
FROM goals
WHERE tenant_id = $1 AND parent_id = $2 AND deleted_at IS NULL
ORDER BY id;
`

const listKnowledgeAssetsSQL = `
SELECT id, tenant_id, project_id, kind, title, storage_key
FROM knowledge_assets
WHERE tenant_id = $1 AND project_id = ANY($2::bigint[]) AND kind = $3 AND deleted_at IS NULL
ORDER BY id
LIMIT $4;
`

const listUsersSQL = `
SELECT id, tenant_id, name, email, manager_id, team_id
FROM users
WHERE tenant_id = $1 AND deleted_at IS NULL
ORDER BY id;
`

const listTeamsSQL = `
SELECT id, tenant_id, name, department_id
FROM teams
WHERE tenant_id = $1 AND deleted_at IS NULL
ORDER BY id;
`

const listProjectsSQL = `
SELECT id, tenant_id, name, owning_team_id, goal_id
FROM projects
WHERE tenant_id = $1 AND deleted_at IS NULL
ORDER BY id;
`

const listGoalsSQL = `
SELECT id, tenant_id, name, parent_id
FROM goals
WHERE tenant_id = $1 AND deleted_at IS NULL
ORDER BY id;
`

const listDepartmentsSQL = `
SELECT id, tenant_id, name
FROM departments
WHERE tenant_id = $1 AND deleted_at IS NULL
ORDER BY id;
`

const listParticipationsSQL = `
SELECT pp.project_id, pp.user_id
FROM project_participants pp
JOIN projects p ON p.id = pp.project_id AND p.deleted_at IS NULL
JOIN users u ON u.id = pp.user_id AND u.deleted_at IS NULL
WHERE pp.tenant_id = $1
ORDER BY pp.project_id, pp.user_id;
`
