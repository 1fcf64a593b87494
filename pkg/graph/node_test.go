package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store/mem"
)

func TestGetMapNode_EveryKind(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	cases := []struct {
		kind  common.EntityKind
		id    int64
		label string
	}{
		{common.KindUser, 1, "Uli"},
		{common.KindTeam, 10, "Platform"},
		{common.KindProject, 30, "Gateway"},
		{common.KindGoal, 40, "Reliability"},
		{common.KindDepartment, 20, "Engineering"},
		{common.KindKnowledgeAsset, 60, "Runbook"},
	}
	for _, tc := range cases {
		n, err := a.GetMapNode(context.Background(), 1, tc.kind, tc.id)
		if err != nil {
			t.Fatalf("expected %s %d to resolve, got %v", tc.kind, tc.id, err)
		}
		if n.ID != common.NodeID(tc.kind, tc.id) {
			t.Fatalf("expected node ID %s, got %s", common.NodeID(tc.kind, tc.id), n.ID)
		}
		if n.Kind != tc.kind || n.Label != tc.label || n.TenantID != 1 {
			t.Fatalf("expected %s node labelled %q for tenant 1, got %+v", tc.kind, tc.label, n)
		}
	}
}

func TestGetMapNode_UserData(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	n, err := a.GetMapNode(context.Background(), 1, common.KindUser, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got, ok := n.Data["email"].(string); !ok || got != "uli@example.com" {
		t.Fatalf("expected email in node data, got %v", n.Data["email"])
	}
	if got, ok := n.Data["manager_id"].(int64); !ok || got != 2 {
		t.Fatalf("expected manager_id 2 in node data, got %v", n.Data["manager_id"])
	}
	if got, ok := n.Data["team_id"].(int64); !ok || got != 10 {
		t.Fatalf("expected team_id 10 in node data, got %v", n.Data["team_id"])
	}
}

func TestGetMapNode_AssetData(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	n, err := a.GetMapNode(context.Background(), 1, common.KindKnowledgeAsset, 60)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got, ok := n.Data["project_id"].(int64); !ok || got != 30 {
		t.Fatalf("expected project_id 30 in node data, got %v", n.Data["project_id"])
	}
	if got, ok := n.Data["asset_kind"].(string); !ok || got != "note" {
		t.Fatalf("expected asset_kind note in node data, got %v", n.Data["asset_kind"])
	}
	if got, ok := n.Data["storage_key"].(string); !ok || got != "assets/60" {
		t.Fatalf("expected storage_key in node data, got %v", n.Data["storage_key"])
	}
}

func TestGetMapNode_UnknownKind(t *testing.T) {
	s := mem.New()
	seedRich(s)
	a := newTestAssembler(t, s, nil)

	if _, err := a.GetMapNode(context.Background(), 1, common.EntityKind("widget"), 1); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown kind, got %v", err)
	}
}

func TestGetMapNode_Absent(t *testing.T) {
	s := mem.New()
	seedRich(s)
	s.SoftDeleteUser(1, 3)
	a := newTestAssembler(t, s, nil)

	if _, err := a.GetMapNode(context.Background(), 1, common.KindUser, 999); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent user, got %v", err)
	}
	if _, err := a.GetMapNode(context.Background(), 7, common.KindUser, 1); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for tenant mismatch, got %v", err)
	}
	if _, err := a.GetMapNode(context.Background(), 1, common.KindUser, 3); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for soft-deleted user, got %v", err)
	}
}
