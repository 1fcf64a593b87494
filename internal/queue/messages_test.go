package queue

import (
	"context"
	"strings"
	"testing"
)

// The remaining handlers talk to Postgres, RabbitMQ and S3, so only their
// decode and validation paths run here. A rejected message must fail before
// any dependency is touched, which is why nil dependencies are safe below.

func TestProcessStrengths_BadJSON(t *testing.T) {
	if err := ProcessStrengths(context.Background(), nil, nil, nil, nil, "{not json"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProcessStrengths_MissingTenant(t *testing.T) {
	err := ProcessStrengths(context.Background(), nil, nil, nil, nil, `{}`)
	if err == nil {
		t.Fatal("expected missing tenant to be rejected")
	}
	if !strings.Contains(err.Error(), "tenant_id") {
		t.Fatalf("expected error to name tenant_id, got %v", err)
	}
}

func TestProcessRecluster_BadJSON(t *testing.T) {
	if err := ProcessRecluster(context.Background(), nil, nil, nil, "{not json"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProcessRecluster_MissingTenant(t *testing.T) {
	err := ProcessRecluster(context.Background(), nil, nil, nil, `{"node_kind":"user"}`)
	if err == nil {
		t.Fatal("expected missing tenant to be rejected")
	}
	if !strings.Contains(err.Error(), "tenant_id") {
		t.Fatalf("expected error to name tenant_id, got %v", err)
	}
}

func TestProcessRecluster_RejectsUnclusterableKind(t *testing.T) {
	err := ProcessRecluster(context.Background(), nil, nil, nil, `{"tenant_id":1,"node_kind":"department"}`)
	if err == nil {
		t.Fatal("expected unclusterable kind to be rejected")
	}
	if !strings.Contains(err.Error(), "department") {
		t.Fatalf("expected error to name the kind, got %v", err)
	}
}

func TestProcessRecluster_RejectsUnknownKind(t *testing.T) {
	if err := ProcessRecluster(context.Background(), nil, nil, nil, `{"tenant_id":1,"node_kind":"widget"}`); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}

func TestProcessSnapshot_BadJSON(t *testing.T) {
	if err := ProcessSnapshot(context.Background(), nil, nil, nil, nil, "{not json"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProcessSnapshot_MissingTenant(t *testing.T) {
	err := ProcessSnapshot(context.Background(), nil, nil, nil, nil, `{"focal_user_id":7}`)
	if err == nil {
		t.Fatal("expected missing tenant to be rejected")
	}
	if !strings.Contains(err.Error(), "tenant_id") {
		t.Fatalf("expected error to name tenant_id, got %v", err)
	}
}
