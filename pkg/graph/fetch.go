package graph

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/orgloom/livemap/backend/internal/util"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// Single-row fetchers. Transient repository failures are retried once with a
// short backoff; an absent row is definitive and reported as (nil, nil) so
// callers can drop the dangling reference without a second round trip.

func (a *Assembler) fetchUser(ctx context.Context, tenantID, id int64) (*store.User, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) (*store.User, error) {
		u, err := a.store.GetUser(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return u, nil
	})
}

func (a *Assembler) fetchTeam(ctx context.Context, tenantID, id int64) (*store.Team, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) (*store.Team, error) {
		t, err := a.store.GetTeam(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return t, nil
	})
}

func (a *Assembler) fetchProject(ctx context.Context, tenantID, id int64) (*store.Project, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) (*store.Project, error) {
		p, err := a.store.GetProject(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return p, nil
	})
}

func (a *Assembler) fetchGoal(ctx context.Context, tenantID, id int64) (*store.Goal, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) (*store.Goal, error) {
		g, err := a.store.GetGoal(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return g, nil
	})
}

func (a *Assembler) fetchDepartment(ctx context.Context, tenantID, id int64) (*store.Department, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) (*store.Department, error) {
		d, err := a.store.GetDepartment(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return d, nil
	})
}

func (a *Assembler) fetchAsset(ctx context.Context, tenantID, id int64) (*store.KnowledgeAsset, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) (*store.KnowledgeAsset, error) {
		k, err := a.store.GetKnowledgeAsset(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return k, nil
	})
}

// listWithRetry wraps one list query with the same retry policy as the
// single-row fetchers.
func (a *Assembler) listWithRetry(ctx context.Context, fn func(context.Context) ([]int64, error)) ([]int64, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, fn)
}

// noteAssetKind is the only knowledge-asset kind rendered on the map.
const noteAssetKind = "note"

func (a *Assembler) listAssets(ctx context.Context, tenantID int64, projectIDs []int64) ([]store.KnowledgeAsset, error) {
	return util.RetryWithBackoff(ctx, a.maxTries, a.retryBackoff, func(ctx context.Context) ([]store.KnowledgeAsset, error) {
		return a.store.ListKnowledgeAssetsByProjects(ctx, tenantID, projectIDs, noteAssetKind, a.maxAssets)
	})
}

// fetchSlots resolves rows for the given IDs with bounded parallelism.
// Results land in per-ID slots; a nil slot means the row no longer exists.
// Any other failure aborts the group and fails the whole fetch, so a caller
// never continues with a partial result set.
func fetchSlots[T any](ctx context.Context, limit int, tenantID int64, ids []int64, fetch func(context.Context, int64, int64) (*T, error)) ([]*T, error) {
	out := make([]*T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i := range ids {
		idx := i
		id := ids[i]
		eg.Go(func() error {
			select {
			case <-ectx.Done():
				return ectx.Err()
			default:
			}
			row, err := fetch(ectx, tenantID, id)
			if err != nil {
				return err
			}
			out[idx] = row
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
