package mem

import (
	"sync"

	"github.com/orgloom/livemap/backend/pkg/store"
)

// Store is an in-memory implementation of store.Store. It backs package
// tests and local development without a database. All methods are safe for
// concurrent use and list results are ordered by ID ascending, matching the
// Postgres implementation.
type Store struct {
	mu      sync.RWMutex
	tenants map[int64]*tenantData

	nextPatternID int64
}

type tenantData struct {
	users       map[int64]userRow
	teams       map[int64]teamRow
	projects    map[int64]projectRow
	goals       map[int64]goalRow
	departments map[int64]departmentRow
	assets      map[int64]assetRow

	participations []store.Participation

	strengths map[string]strengthRow
	patterns  map[string]store.Pattern
}

type userRow struct {
	store.User
	deleted bool
}

type teamRow struct {
	store.Team
	deleted bool
}

type projectRow struct {
	store.Project
	deleted bool
}

type goalRow struct {
	store.Goal
	deleted bool
}

type departmentRow struct {
	store.Department
	deleted bool
}

type assetRow struct {
	store.KnowledgeAsset
	deleted bool
}

type strengthRow struct {
	relationshipType string
	strength         float64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{tenants: make(map[int64]*tenantData)}
}

func (s *Store) tenant(tenantID int64) *tenantData {
	td, ok := s.tenants[tenantID]
	if !ok {
		td = &tenantData{
			users:       make(map[int64]userRow),
			teams:       make(map[int64]teamRow),
			projects:    make(map[int64]projectRow),
			goals:       make(map[int64]goalRow),
			departments: make(map[int64]departmentRow),
			assets:      make(map[int64]assetRow),
			strengths:   make(map[string]strengthRow),
			patterns:    make(map[string]store.Pattern),
		}
		s.tenants[tenantID] = td
	}
	return td
}

// AddUser inserts or replaces a user row.
func (s *Store) AddUser(u store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(u.TenantID).users[u.ID] = userRow{User: u}
}

// AddTeam inserts or replaces a team row.
func (s *Store) AddTeam(t store.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(t.TenantID).teams[t.ID] = teamRow{Team: t}
}

// AddProject inserts or replaces a project row.
func (s *Store) AddProject(p store.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(p.TenantID).projects[p.ID] = projectRow{Project: p}
}

// AddGoal inserts or replaces a goal row.
func (s *Store) AddGoal(g store.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(g.TenantID).goals[g.ID] = goalRow{Goal: g}
}

// AddDepartment inserts or replaces a department row.
func (s *Store) AddDepartment(d store.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(d.TenantID).departments[d.ID] = departmentRow{Department: d}
}

// AddKnowledgeAsset inserts or replaces a knowledge-asset row.
func (s *Store) AddKnowledgeAsset(a store.KnowledgeAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant(a.TenantID).assets[a.ID] = assetRow{KnowledgeAsset: a}
}

// AddParticipation links a user to a project.
func (s *Store) AddParticipation(tenantID, projectID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)
	for _, p := range td.participations {
		if p.ProjectID == projectID && p.UserID == userID {
			return
		}
	}
	td.participations = append(td.participations, store.Participation{ProjectID: projectID, UserID: userID})
}

// SoftDeleteUser marks a user as deleted. Reads skip deleted rows.
func (s *Store) SoftDeleteUser(tenantID, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)
	if row, ok := td.users[id]; ok {
		row.deleted = true
		td.users[id] = row
	}
}

// SoftDeleteProject marks a project as deleted. Reads skip deleted rows.
func (s *Store) SoftDeleteProject(tenantID, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)
	if row, ok := td.projects[id]; ok {
		row.deleted = true
		td.projects[id] = row
	}
}

// SoftDeleteGoal marks a goal as deleted. Reads skip deleted rows.
func (s *Store) SoftDeleteGoal(tenantID, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)
	if row, ok := td.goals[id]; ok {
		row.deleted = true
		td.goals[id] = row
	}
}
