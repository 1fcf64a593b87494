package mem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

func patternKey(patternType, clusterID string) string {
	return patternType + "|" + clusterID
}

func (s *Store) GetPattern(ctx context.Context, tenantID int64, patternType, clusterID string) (*store.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("pattern %s/%s: %w", patternType, clusterID, common.ErrNotFound)
	}
	p, ok := td.patterns[patternKey(patternType, clusterID)]
	if !ok {
		return nil, fmt.Errorf("pattern %s/%s: %w", patternType, clusterID, common.ErrNotFound)
	}
	cp := p
	return &cp, nil
}

func (s *Store) ListPatterns(ctx context.Context, tenantID int64, patternType string) ([]store.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []store.Pattern
	for _, p := range td.patterns {
		if p.PatternType != patternType {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertPatterns(ctx context.Context, tenantID int64, patterns []store.Pattern) ([]common.PatternRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)

	now := time.Now()
	refs := make([]common.PatternRef, 0, len(patterns))
	for _, p := range patterns {
		key := patternKey(p.PatternType, p.ClusterID)
		existing, ok := td.patterns[key]
		if ok {
			existing.Description = p.Description
			existing.Metadata = p.Metadata
			existing.MemberRefs = p.MemberRefs
			existing.UpdatedAt = now
			td.patterns[key] = existing
			refs = append(refs, common.PatternRef{
				ID:          existing.ID,
				TenantID:    tenantID,
				PatternType: p.PatternType,
				ClusterID:   p.ClusterID,
				Created:     false,
			})
			continue
		}

		s.nextPatternID++
		p.ID = s.nextPatternID
		p.TenantID = tenantID
		p.CreatedAt = now
		p.UpdatedAt = now
		td.patterns[key] = p
		refs = append(refs, common.PatternRef{
			ID:          p.ID,
			TenantID:    tenantID,
			PatternType: p.PatternType,
			ClusterID:   p.ClusterID,
			Created:     true,
		})
	}
	return refs, nil
}
