package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/orgloom/livemap/backend/pkg/cache"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
	"github.com/orgloom/livemap/backend/pkg/store/mem"
)

func int64Ptr(v int64) *int64 { return &v }

func newTestAssembler(t *testing.T, st store.EntityStore, c cache.NeighborCache, opts ...func(*NewAssemblerParams)) *Assembler {
	t.Helper()
	if c == nil {
		c = cache.NewMemory(time.Minute)
	}
	params := NewAssemblerParams{
		Store:        st,
		Cache:        c,
		RetryBackoff: time.Millisecond,
	}
	for _, opt := range opts {
		opt(&params)
	}
	a, err := NewAssembler(params)
	if err != nil {
		t.Fatalf("expected assembler, got error %v", err)
	}
	return a
}

// seedCanonical sets up the minimal org: user 1 reports to user 2, belongs
// to team 10 in department 20, and team 10 owns project 30 aligned to goal 40.
func seedCanonical(s *mem.Store) {
	s.AddDepartment(store.Department{ID: 20, TenantID: 1, Name: "Engineering"})
	s.AddTeam(store.Team{ID: 10, TenantID: 1, Name: "Platform", DepartmentID: int64Ptr(20)})
	s.AddUser(store.User{ID: 2, TenantID: 1, Name: "Morgan", Email: "morgan@example.com"})
	s.AddUser(store.User{ID: 1, TenantID: 1, Name: "Uli", Email: "uli@example.com", ManagerID: int64Ptr(2), TeamID: int64Ptr(10)})
	s.AddGoal(store.Goal{ID: 40, TenantID: 1, Name: "Reliability"})
	s.AddProject(store.Project{ID: 30, TenantID: 1, Name: "Gateway", OwningTeamID: int64Ptr(10), GoalID: int64Ptr(40)})
}

// seedRich extends the canonical org with a report, a second project, extra
// participants and note assets.
func seedRich(s *mem.Store) {
	seedCanonical(s)
	s.AddUser(store.User{ID: 3, TenantID: 1, Name: "Riley", Email: "riley@example.com", TeamID: int64Ptr(10)})
	s.AddUser(store.User{ID: 4, TenantID: 1, Name: "Sam", Email: "sam@example.com"})
	s.AddUser(store.User{ID: 5, TenantID: 1, Name: "Alex", Email: "alex@example.com", ManagerID: int64Ptr(1)})
	s.AddGoal(store.Goal{ID: 41, TenantID: 1, Name: "Company OKRs"})
	// Goal 40 gains a parent in the richer org.
	s.AddGoal(store.Goal{ID: 40, TenantID: 1, Name: "Reliability", ParentID: int64Ptr(41)})
	s.AddProject(store.Project{ID: 31, TenantID: 1, Name: "Migration"})
	s.AddParticipation(1, 30, 3)
	s.AddParticipation(1, 31, 1)
	s.AddParticipation(1, 31, 4)
	s.AddKnowledgeAsset(store.KnowledgeAsset{ID: 60, TenantID: 1, ProjectID: 30, Kind: "note", Title: "Runbook", StorageKey: "assets/60"})
	s.AddKnowledgeAsset(store.KnowledgeAsset{ID: 61, TenantID: 1, ProjectID: 30, Kind: "doc", Title: "Contract", StorageKey: "assets/61"})
	s.AddKnowledgeAsset(store.KnowledgeAsset{ID: 62, TenantID: 1, ProjectID: 31, Kind: "note", Title: "Cutover plan", StorageKey: "assets/62"})
}

func nodeIDs(data *common.MapData) []string {
	ids := make([]string, len(data.Nodes))
	for i, n := range data.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func edgeIDs(data *common.MapData) []string {
	ids := make([]string, len(data.Edges))
	for i, e := range data.Edges {
		ids[i] = e.ID
	}
	return ids
}

func TestAssembleMap_CanonicalScenario(t *testing.T) {
	s := mem.New()
	seedCanonical(s)
	a := newTestAssembler(t, s, nil)

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantNodes := []string{"user:1", "user:2", "team:10", "department:20", "project:30", "goal:40"}
	if got := nodeIDs(data); !reflect.DeepEqual(got, wantNodes) {
		t.Fatalf("expected nodes %v, got %v", wantNodes, got)
	}

	wantEdges := []string{
		"user:1-REPORTS_TO-user:2",
		"user:1-MEMBER_OF-team:10",
		"team:10-MEMBER_OF-department:20",
		"team:10-OWNS-project:30",
		"project:30-ALIGNED_TO-goal:40",
	}
	if got := edgeIDs(data); !reflect.DeepEqual(got, wantEdges) {
		t.Fatalf("expected edges %v, got %v", wantEdges, got)
	}
}

func TestAssembleMap_RicherOrg(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantNodes := []string{
		"user:1", "user:2", "user:5", "team:10", "project:31",
		"department:20", "project:30", "user:3", "user:4", "goal:40",
		"goal:41", "asset:60", "asset:62",
	}
	if got := nodeIDs(data); !reflect.DeepEqual(got, wantNodes) {
		t.Fatalf("expected nodes %v, got %v", wantNodes, got)
	}

	wantEdges := []string{
		"user:1-REPORTS_TO-user:2",
		"user:5-REPORTS_TO-user:1",
		"user:1-MEMBER_OF-team:10",
		"user:1-PARTICIPATES_IN-project:31",
		"team:10-MEMBER_OF-department:20",
		"team:10-OWNS-project:30",
		"user:3-MEMBER_OF-team:10",
		"user:4-PARTICIPATES_IN-project:31",
		"project:30-ALIGNED_TO-goal:40",
		"goal:40-CHILD_OF-goal:41",
		"user:3-PARTICIPATES_IN-project:30",
		"asset:60-RELATES_TO-project:30",
		"asset:62-RELATES_TO-project:31",
	}
	if got := edgeIDs(data); !reflect.DeepEqual(got, wantEdges) {
		t.Fatalf("expected edges %v, got %v", wantEdges, got)
	}
}

func TestAssembleMap_Deterministic(t *testing.T) {
	s := mem.New()
	seedRich(s)

	// Fresh assembler and cache per run so nothing is carried over.
	first, err := newTestAssembler(t, s, nil).AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := newTestAssembler(t, s, nil).AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical graphs, got %+v and %+v", first, second)
	}
}

func TestAssembleMap_EndpointClosure(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	present := make(map[string]struct{}, len(data.Nodes))
	for _, n := range data.Nodes {
		present[n.ID] = struct{}{}
	}
	for _, e := range data.Edges {
		if _, ok := present[e.Source]; !ok {
			t.Fatalf("edge %s references missing source %s", e.ID, e.Source)
		}
		if _, ok := present[e.Target]; !ok {
			t.Fatalf("edge %s references missing target %s", e.ID, e.Target)
		}
	}
}

func TestAssembleMap_FocalUserNotFound(t *testing.T) {
	s := mem.New()
	seedCanonical(s)
	a := newTestAssembler(t, s, nil)

	if _, err := a.AssembleMap(context.Background(), 1, 999); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent focal user, got %v", err)
	}

	// The focal user exists, but under another tenant.
	if _, err := a.AssembleMap(context.Background(), 7, 1); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for tenant mismatch, got %v", err)
	}
}

func TestAssembleMap_TenantIsolation(t *testing.T) {
	s := mem.New()
	seedCanonical(s)
	// Tenant 2 reuses the same numeric IDs with different labels.
	s.AddTeam(store.Team{ID: 10, TenantID: 2, Name: "Shadow Team"})
	s.AddUser(store.User{ID: 1, TenantID: 2, Name: "Shadow", Email: "shadow@example.com", TeamID: int64Ptr(10)})
	a := newTestAssembler(t, s, nil)

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, n := range data.Nodes {
		if n.TenantID != 1 {
			t.Fatalf("expected only tenant 1 nodes, got %s with tenant %d", n.ID, n.TenantID)
		}
		if n.Label == "Shadow" || n.Label == "Shadow Team" {
			t.Fatalf("tenant 2 data leaked into tenant 1 map: %s", n.Label)
		}
	}

	other, err := a.AssembleMap(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	wantNodes := []string{"user:1", "team:10"}
	if got := nodeIDs(other); !reflect.DeepEqual(got, wantNodes) {
		t.Fatalf("expected nodes %v for tenant 2, got %v", wantNodes, got)
	}
}

func TestAssembleMap_SoftDeletedRelationsSkipped(t *testing.T) {
	s := mem.New()
	seedCanonical(s)
	s.SoftDeleteUser(1, 2)
	s.SoftDeleteProject(1, 30)
	a := newTestAssembler(t, s, nil)

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantNodes := []string{"user:1", "team:10", "department:20"}
	if got := nodeIDs(data); !reflect.DeepEqual(got, wantNodes) {
		t.Fatalf("expected nodes %v, got %v", wantNodes, got)
	}
	wantEdges := []string{
		"user:1-MEMBER_OF-team:10",
		"team:10-MEMBER_OF-department:20",
	}
	if got := edgeIDs(data); !reflect.DeepEqual(got, wantEdges) {
		t.Fatalf("expected edges %v, got %v", wantEdges, got)
	}
}

func TestAssembleMap_FanOutCaps(t *testing.T) {
	s := mem.New()
	s.AddUser(store.User{ID: 1, TenantID: 1, Name: "Lead", Email: "lead@example.com"})
	for i := int64(0); i < 10; i++ {
		s.AddUser(store.User{ID: 100 + i, TenantID: 1, Name: "Report", Email: "r@example.com", ManagerID: int64Ptr(1)})
	}
	a := newTestAssembler(t, s, nil, func(p *NewAssemblerParams) {
		p.MaxDirectReports = 3
	})

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(data.Nodes) != 4 {
		t.Fatalf("expected focal plus 3 capped reports, got %d nodes", len(data.Nodes))
	}
	wantNodes := []string{"user:1", "user:100", "user:101", "user:102"}
	if got := nodeIDs(data); !reflect.DeepEqual(got, wantNodes) {
		t.Fatalf("expected nodes %v, got %v", wantNodes, got)
	}
}

func TestAssembleMap_AssetCap(t *testing.T) {
	s := mem.New()
	seedCanonical(s)
	for i := int64(0); i < 6; i++ {
		s.AddKnowledgeAsset(store.KnowledgeAsset{ID: 70 + i, TenantID: 1, ProjectID: 30, Kind: "note", Title: "Note", StorageKey: "k"})
	}
	a := newTestAssembler(t, s, nil, func(p *NewAssemblerParams) {
		p.MaxKnowledgeAssets = 2
	})

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	assetCount := 0
	for _, n := range data.Nodes {
		if n.Kind == common.KindKnowledgeAsset {
			assetCount++
		}
	}
	if assetCount != 2 {
		t.Fatalf("expected 2 capped assets, got %d", assetCount)
	}
}

// brokenCache fails every operation, simulating a backend outage.
type brokenCache struct{}

func (brokenCache) Get(context.Context, int64, string, int) (common.NeighborSet, bool, error) {
	return nil, false, errors.New("backend down")
}

func (brokenCache) Set(context.Context, int64, string, int, common.NeighborSet) error {
	return errors.New("backend down")
}

func (brokenCache) Invalidate(context.Context, int64, string) error {
	return errors.New("backend down")
}

func TestAssembleMap_CacheOutageIsNotFatal(t *testing.T) {
	s := mem.New()
	seedRich(s)

	healthy, err := newTestAssembler(t, s, nil).AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	degraded, err := newTestAssembler(t, s, brokenCache{}).AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected cache outage to be absorbed, got %v", err)
	}

	if !reflect.DeepEqual(healthy, degraded) {
		t.Fatalf("expected identical graphs with and without cache, got %+v and %+v", healthy, degraded)
	}
}

// flakyStore injects transient failures into GetTeam before delegating.
type flakyStore struct {
	store.EntityStore
	teamFailures int
}

func (f *flakyStore) GetTeam(ctx context.Context, tenantID, id int64) (*store.Team, error) {
	if f.teamFailures > 0 {
		f.teamFailures--
		return nil, common.WrapTransient(errors.New("connection reset"))
	}
	return f.EntityStore.GetTeam(ctx, tenantID, id)
}

func TestAssembleMap_TransientReadRetriedOnce(t *testing.T) {
	s := mem.New()
	seedCanonical(s)

	a := newTestAssembler(t, &flakyStore{EntityStore: s, teamFailures: 1}, nil)
	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected retry to absorb one transient failure, got %v", err)
	}
	if len(data.Nodes) != 6 {
		t.Fatalf("expected full graph after retry, got %d nodes", len(data.Nodes))
	}
}

func TestAssembleMap_PersistentTransientFailureFailsCall(t *testing.T) {
	s := mem.New()
	seedCanonical(s)

	a := newTestAssembler(t, &flakyStore{EntityStore: s, teamFailures: 5}, nil)
	_, err := a.AssembleMap(context.Background(), 1, 1)
	if !errors.Is(err, common.ErrTransientStore) {
		t.Fatalf("expected transient store error after exhausted retries, got %v", err)
	}
}

// listCountingStore counts relation list queries so tests can observe cache
// hits and misses.
type listCountingStore struct {
	store.EntityStore
	listCalls int
}

func (c *listCountingStore) ListDirectReports(ctx context.Context, tenantID, managerID int64, limit int) ([]int64, error) {
	c.listCalls++
	return c.EntityStore.ListDirectReports(ctx, tenantID, managerID, limit)
}

func (c *listCountingStore) ListTeamMembers(ctx context.Context, tenantID, teamID int64, limit int) ([]int64, error) {
	c.listCalls++
	return c.EntityStore.ListTeamMembers(ctx, tenantID, teamID, limit)
}

func (c *listCountingStore) ListProjectsByOwningTeam(ctx context.Context, tenantID, teamID int64) ([]int64, error) {
	c.listCalls++
	return c.EntityStore.ListProjectsByOwningTeam(ctx, tenantID, teamID)
}

func (c *listCountingStore) ListProjectsByParticipant(ctx context.Context, tenantID, userID int64) ([]int64, error) {
	c.listCalls++
	return c.EntityStore.ListProjectsByParticipant(ctx, tenantID, userID)
}

func (c *listCountingStore) ListProjectParticipants(ctx context.Context, tenantID, projectID int64, limit int) ([]int64, error) {
	c.listCalls++
	return c.EntityStore.ListProjectParticipants(ctx, tenantID, projectID, limit)
}

func TestAssembleMap_SecondRunServedFromCache(t *testing.T) {
	s := mem.New()
	seedRich(s)
	counting := &listCountingStore{EntityStore: s}
	a := newTestAssembler(t, counting, cache.NewMemory(time.Minute))

	first, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	coldCalls := counting.listCalls
	if coldCalls == 0 {
		t.Fatal("expected relation list queries on a cold cache")
	}

	second, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if counting.listCalls != coldCalls {
		t.Fatalf("expected no additional list queries on warm cache, got %d extra", counting.listCalls-coldCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected cache-served graph to match cold graph")
	}
}

func TestAssembleMap_DefaultLayout(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	data, err := a.AssembleMap(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if data.Nodes[0].Position == nil || data.Nodes[0].Position.X != 0 || data.Nodes[0].Position.Y != 0 {
		t.Fatalf("expected focal node at origin, got %+v", data.Nodes[0].Position)
	}
	for _, n := range data.Nodes[1:] {
		if n.Position == nil {
			t.Fatalf("expected a default position on node %s", n.ID)
		}
		if n.Position.X == 0 && n.Position.Y == 0 {
			t.Fatalf("expected node %s off the origin, got %+v", n.ID, n.Position)
		}
	}
}
