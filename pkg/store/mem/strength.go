package mem

import (
	"context"
	"sort"

	"github.com/orgloom/livemap/backend/pkg/common"
)

func (s *Store) ListStrengths(ctx context.Context, tenantID int64, minStrength float64) ([]common.RelationshipStrength, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	var out []common.RelationshipStrength
	for key, row := range td.strengths {
		if row.strength < minStrength {
			continue
		}
		source, target := splitPairKey(key)
		out = append(out, common.RelationshipStrength{
			SourceID:         source,
			TargetID:         target,
			TenantID:         tenantID,
			RelationshipType: row.relationshipType,
			Strength:         row.strength,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

func (s *Store) UpsertStrengths(ctx context.Context, tenantID int64, rows []common.RelationshipStrength) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)
	for _, row := range rows {
		source, target := common.OrderPair(row.SourceID, row.TargetID)
		td.strengths[pairKey(source, target)] = strengthRow{
			relationshipType: row.RelationshipType,
			strength:         row.Strength,
		}
	}
	return nil
}

func (s *Store) ReplaceStrengths(ctx context.Context, tenantID int64, rows []common.RelationshipStrength) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	td := s.tenant(tenantID)
	td.strengths = make(map[string]strengthRow, len(rows))
	for _, row := range rows {
		source, target := common.OrderPair(row.SourceID, row.TargetID)
		td.strengths[pairKey(source, target)] = strengthRow{
			relationshipType: row.RelationshipType,
			strength:         row.Strength,
		}
	}
	return nil
}

func pairKey(source, target string) string {
	return source + "|" + target
}

func splitPairKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
