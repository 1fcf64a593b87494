package graph

import (
	"context"
	"fmt"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// nodeResolvers maps each entity kind to its lookup-and-convert step. The
// table is the single dispatch point for kind resolution; a kind outside it
// cannot become a node.
var nodeResolvers = map[common.EntityKind]func(*Assembler, context.Context, int64, int64) (*common.Node, error){
	common.KindUser:           (*Assembler).resolveUserNode,
	common.KindTeam:           (*Assembler).resolveTeamNode,
	common.KindProject:        (*Assembler).resolveProjectNode,
	common.KindGoal:           (*Assembler).resolveGoalNode,
	common.KindDepartment:     (*Assembler).resolveDepartmentNode,
	common.KindKnowledgeAsset: (*Assembler).resolveAssetNode,
}

// GetMapNode resolves a single entity into its map node without assembling a
// full graph. Absent entities, tenant mismatches and unknown kinds report
// common.ErrNotFound.
func (a *Assembler) GetMapNode(ctx context.Context, tenantID int64, kind common.EntityKind, id int64) (*common.Node, error) {
	resolve, ok := nodeResolvers[kind]
	if !ok {
		return nil, fmt.Errorf("node kind %q: %w", kind, common.ErrNotFound)
	}
	return resolve(a, ctx, tenantID, id)
}

func (a *Assembler) resolveUserNode(ctx context.Context, tenantID, id int64) (*common.Node, error) {
	u, err := a.fetchUser(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	n := userNode(u)
	return &n, nil
}

func (a *Assembler) resolveTeamNode(ctx context.Context, tenantID, id int64) (*common.Node, error) {
	t, err := a.fetchTeam(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("team %d: %w", id, common.ErrNotFound)
	}
	n := teamNode(t)
	return &n, nil
}

func (a *Assembler) resolveProjectNode(ctx context.Context, tenantID, id int64) (*common.Node, error) {
	p, err := a.fetchProject(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %d: %w", id, common.ErrNotFound)
	}
	n := projectNode(p)
	return &n, nil
}

func (a *Assembler) resolveGoalNode(ctx context.Context, tenantID, id int64) (*common.Node, error) {
	g, err := a.fetchGoal(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("goal %d: %w", id, common.ErrNotFound)
	}
	n := goalNode(g)
	return &n, nil
}

func (a *Assembler) resolveDepartmentNode(ctx context.Context, tenantID, id int64) (*common.Node, error) {
	d, err := a.fetchDepartment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("department %d: %w", id, common.ErrNotFound)
	}
	n := departmentNode(d)
	return &n, nil
}

func (a *Assembler) resolveAssetNode(ctx context.Context, tenantID, id int64) (*common.Node, error) {
	k, err := a.fetchAsset(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("knowledge asset %d: %w", id, common.ErrNotFound)
	}
	n := assetNode(k)
	return &n, nil
}
