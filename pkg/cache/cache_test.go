package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/orgloom/livemap/backend/pkg/common"
)

func TestMemory_MissOnEmptyCache(t *testing.T) {
	c := NewMemory(time.Minute)

	ns, ok, err := c.Get(context.Background(), 1, "user:1", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatalf("expected miss, got hit with %v", ns)
	}
}

func TestMemory_SetGetRoundTrip(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	want := common.NeighborSet{
		common.KindUser: {2, 3},
		common.KindTeam: {7},
	}
	if err := c.Set(ctx, 1, "user:1", 1, want); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, ok, err := c.Get(ctx, 1, "user:1", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Fatal("expected hit, got miss")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMemory_TenantAndDepthKeying(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, 1, "user:1", 1, common.NeighborSet{common.KindUser: {2}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok, _ := c.Get(ctx, 2, "user:1", 1); ok {
		t.Fatal("expected miss for other tenant, got hit")
	}
	if _, ok, _ := c.Get(ctx, 1, "user:1", 2); ok {
		t.Fatal("expected miss for other depth, got hit")
	}
	if _, ok, _ := c.Get(ctx, 1, "user:1", 1); !ok {
		t.Fatal("expected hit for original key, got miss")
	}
}

func TestMemory_EntriesAreCopied(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	ns := common.NeighborSet{common.KindUser: {2, 3}}
	if err := c.Set(ctx, 1, "user:1", 1, ns); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Mutating the caller's set after Set must not change the cached entry.
	ns[common.KindUser][0] = 99
	ns[common.KindTeam] = []int64{5}

	got, ok, err := c.Get(ctx, 1, "user:1", 1)
	if err != nil || !ok {
		t.Fatalf("expected hit without error, got ok=%v err=%v", ok, err)
	}
	want := common.NeighborSet{common.KindUser: {2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Mutating the returned set must not change the cached entry either.
	got[common.KindUser][0] = 42
	again, _, _ := c.Get(ctx, 1, "user:1", 1)
	if !reflect.DeepEqual(again, want) {
		t.Fatalf("expected %v, got %v", want, again)
	}
}

func TestMemory_InvalidateClearsAllDepths(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	for depth := 1; depth <= maxDepth; depth++ {
		if err := c.Set(ctx, 1, "user:1", depth, common.NeighborSet{common.KindUser: {int64(depth)}}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if err := c.Set(ctx, 1, "user:2", 1, common.NeighborSet{common.KindUser: {9}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := c.Invalidate(ctx, 1, "user:1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if _, ok, _ := c.Get(ctx, 1, "user:1", depth); ok {
			t.Fatalf("expected miss at depth %d after invalidate, got hit", depth)
		}
	}
	if _, ok, _ := c.Get(ctx, 1, "user:2", 1); !ok {
		t.Fatal("expected other entity to survive invalidate, got miss")
	}
}

func TestMemory_EntriesExpire(t *testing.T) {
	c := NewMemory(10 * time.Millisecond)
	ctx := context.Background()

	if err := c.Set(ctx, 1, "user:1", 1, common.NeighborSet{common.KindUser: {2}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, 1, "user:1", 1); ok {
		t.Fatal("expected expired entry to miss, got hit")
	}
}
