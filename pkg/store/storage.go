package store

import (
	"context"
	"time"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// User is one member of a tenant's organization. ManagerID and TeamID are
// nil when the user has no manager or team assignment.
type User struct {
	ID        int64
	TenantID  int64
	Name      string
	Email     string
	ManagerID *int64
	TeamID    *int64
}

// Team groups users and optionally belongs to a department.
type Team struct {
	ID           int64
	TenantID     int64
	Name         string
	DepartmentID *int64
}

// Project is a unit of work, optionally owned by a team and aligned to a goal.
type Project struct {
	ID           int64
	TenantID     int64
	Name         string
	OwningTeamID *int64
	GoalID       *int64
}

// Goal is one node of a tenant's goal hierarchy.
type Goal struct {
	ID       int64
	TenantID int64
	Name     string
	ParentID *int64
}

// Department is an organizational unit that teams belong to.
type Department struct {
	ID       int64
	TenantID int64
	Name     string
}

// KnowledgeAsset is a document attached to a project. Kind distinguishes
// notes from other asset types; StorageKey locates the content in object
// storage.
type KnowledgeAsset struct {
	ID         int64
	TenantID   int64
	ProjectID  int64
	Kind       string
	Title      string
	StorageKey string
}

// Participation links one user to one project they participate in.
type Participation struct {
	ProjectID int64
	UserID    int64
}

// PatternMetadata is the JSON metadata stored with a persisted pattern.
type PatternMetadata struct {
	ClusterID      string   `json:"cluster_id"`
	Algorithm      string   `json:"algorithm"`
	Threshold      float64  `json:"threshold"`
	CentralMembers []string `json:"central_members"`
}

// Pattern is a persisted derived record for one detected cluster, keyed for
// idempotent upsert by (tenant_id, pattern_type, cluster_id).
type Pattern struct {
	ID          int64
	TenantID    int64
	PatternType string
	ClusterID   string
	Description string
	Metadata    PatternMetadata
	MemberRefs  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntityStore is the read-only repository facade the graph core consumes.
// Implementations never return soft-deleted rows, and lookups for entities
// that exist under a different tenant yield common.ErrNotFound so nothing
// leaks across tenants. List results are ordered by ID ascending so callers
// see deterministic iteration order.
type EntityStore interface {
	GetUser(ctx context.Context, tenantID, id int64) (*User, error)
	GetTeam(ctx context.Context, tenantID, id int64) (*Team, error)
	GetProject(ctx context.Context, tenantID, id int64) (*Project, error)
	GetGoal(ctx context.Context, tenantID, id int64) (*Goal, error)
	GetDepartment(ctx context.Context, tenantID, id int64) (*Department, error)
	GetKnowledgeAsset(ctx context.Context, tenantID, id int64) (*KnowledgeAsset, error)

	ListDirectReports(ctx context.Context, tenantID, managerID int64, limit int) ([]int64, error)
	ListTeamMembers(ctx context.Context, tenantID, teamID int64, limit int) ([]int64, error)
	ListProjectsByOwningTeam(ctx context.Context, tenantID, teamID int64) ([]int64, error)
	ListProjectsByParticipant(ctx context.Context, tenantID, userID int64) ([]int64, error)
	ListProjectParticipants(ctx context.Context, tenantID, projectID int64, limit int) ([]int64, error)
	ListChildGoals(ctx context.Context, tenantID, goalID int64) ([]int64, error)
	ListKnowledgeAssetsByProjects(ctx context.Context, tenantID int64, projectIDs []int64, kind string, limit int) ([]KnowledgeAsset, error)

	ListUsers(ctx context.Context, tenantID int64) ([]User, error)
	ListTeams(ctx context.Context, tenantID int64) ([]Team, error)
	ListProjects(ctx context.Context, tenantID int64) ([]Project, error)
	ListGoals(ctx context.Context, tenantID int64) ([]Goal, error)
	ListDepartments(ctx context.Context, tenantID int64) ([]Department, error)
	ListProjectParticipations(ctx context.Context, tenantID int64) ([]Participation, error)
}

// StrengthStore reads and writes the relationship-strength feed.
// UpsertStrengths merges rows into the existing feed; ReplaceStrengths swaps
// the tenant's whole feed for the given rows, dropping pairs that are absent.
type StrengthStore interface {
	ListStrengths(ctx context.Context, tenantID int64, minStrength float64) ([]common.RelationshipStrength, error)
	UpsertStrengths(ctx context.Context, tenantID int64, rows []common.RelationshipStrength) error
	ReplaceStrengths(ctx context.Context, tenantID int64, rows []common.RelationshipStrength) error
}

// PatternStore persists derived cluster patterns. UpsertPatterns refreshes
// existing records matched by (tenant, pattern_type, cluster_id) and inserts
// the rest; running it twice with unchanged input creates no duplicates.
type PatternStore interface {
	GetPattern(ctx context.Context, tenantID int64, patternType, clusterID string) (*Pattern, error)
	ListPatterns(ctx context.Context, tenantID int64, patternType string) ([]Pattern, error)
	UpsertPatterns(ctx context.Context, tenantID int64, patterns []Pattern) ([]common.PatternRef, error)
}

// Store bundles every storage concern of the graph core. The Postgres and
// in-memory implementations both satisfy it.
type Store interface {
	EntityStore
	StrengthStore
	PatternStore
}
