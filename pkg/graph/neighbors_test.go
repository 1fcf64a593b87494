package graph

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/orgloom/livemap/backend/pkg/cache"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store/mem"
)

func TestNeighbors_User(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	ns, err := a.Neighbors(context.Background(), 1, common.KindUser, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := common.NeighborSet{
		common.KindUser:    {2, 5},
		common.KindTeam:    {10},
		common.KindProject: {31},
	}
	if !reflect.DeepEqual(ns, want) {
		t.Fatalf("expected %v, got %v", want, ns)
	}
}

func TestNeighbors_Team(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	ns, err := a.Neighbors(context.Background(), 1, common.KindTeam, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := common.NeighborSet{
		common.KindDepartment: {20},
		common.KindProject:    {30},
		common.KindUser:       {1, 3},
	}
	if !reflect.DeepEqual(ns, want) {
		t.Fatalf("expected %v, got %v", want, ns)
	}
}

func TestNeighbors_Project(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	ns, err := a.Neighbors(context.Background(), 1, common.KindProject, 30)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := common.NeighborSet{
		common.KindUser: {3},
		common.KindGoal: {40},
		common.KindTeam: {10},
	}
	if !reflect.DeepEqual(ns, want) {
		t.Fatalf("expected %v, got %v", want, ns)
	}
}

func TestNeighbors_GoalParentAndChildren(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	// Goal 40 has a parent and no children.
	ns, err := a.Neighbors(context.Background(), 1, common.KindGoal, 40)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := common.NeighborSet{common.KindGoal: {41}}
	if !reflect.DeepEqual(ns, want) {
		t.Fatalf("expected %v, got %v", want, ns)
	}

	// Goal 41 has no parent and one child.
	ns, err = a.Neighbors(context.Background(), 1, common.KindGoal, 41)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want = common.NeighborSet{common.KindGoal: {40}}
	if !reflect.DeepEqual(ns, want) {
		t.Fatalf("expected %v, got %v", want, ns)
	}
}

func TestNeighbors_AbsentEntityYieldsEmptySet(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	ns, err := a.Neighbors(context.Background(), 1, common.KindUser, 999)
	if err != nil {
		t.Fatalf("expected no error for absent entity, got %v", err)
	}
	if len(ns) != 0 {
		t.Fatalf("expected empty set for absent entity, got %v", ns)
	}

	// Same entity ID, wrong tenant.
	ns, err = a.Neighbors(context.Background(), 7, common.KindUser, 1)
	if err != nil {
		t.Fatalf("expected no error for tenant mismatch, got %v", err)
	}
	if len(ns) != 0 {
		t.Fatalf("expected empty set for tenant mismatch, got %v", ns)
	}
}

func TestNeighbors_KindsWithoutRelationQueries(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	for _, kind := range []common.EntityKind{common.KindDepartment, common.KindKnowledgeAsset} {
		ns, err := a.Neighbors(context.Background(), 1, kind, 20)
		if err != nil {
			t.Fatalf("expected no error for kind %s, got %v", kind, err)
		}
		if len(ns) != 0 {
			t.Fatalf("expected empty set for kind %s, got %v", kind, ns)
		}
	}
}

func TestNeighbors_WritesThroughToCache(t *testing.T) {
	s := mem.New()
	seedRich(s)
	c := cache.NewMemory(time.Minute)
	a := newTestAssembler(t, s, c)

	ns, err := a.Neighbors(context.Background(), 1, common.KindUser, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cached, ok, err := c.Get(context.Background(), 1, common.NodeID(common.KindUser, 1), 1)
	if err != nil {
		t.Fatalf("expected no cache error, got %v", err)
	}
	if !ok {
		t.Fatal("expected the computed set to be written back to the cache")
	}
	if !reflect.DeepEqual(cached, ns) {
		t.Fatalf("expected cached set %v, got %v", ns, cached)
	}
}

func TestNeighbors_PrimedCacheIsAuthoritative(t *testing.T) {
	s := mem.New()
	seedRich(s)
	c := cache.NewMemory(time.Minute)
	a := newTestAssembler(t, s, c)

	primed := common.NeighborSet{common.KindUser: {42}}
	if err := c.Set(context.Background(), 1, common.NodeID(common.KindUser, 1), 1, primed); err != nil {
		t.Fatalf("expected no cache error, got %v", err)
	}

	ns, err := a.Neighbors(context.Background(), 1, common.KindUser, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(ns, primed) {
		t.Fatalf("expected the primed cache entry %v, got %v", primed, ns)
	}
}
