package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

func (s *GraphDBStore) GetPattern(ctx context.Context, tenantID int64, patternType, clusterID string) (*store.Pattern, error) {
	var (
		p          store.Pattern
		metaRaw    []byte
		membersRaw []byte
	)
	err := s.conn.QueryRow(ctx, getPatternSQL, tenantID, patternType, clusterID).
		Scan(&p.ID, &p.TenantID, &p.PatternType, &p.ClusterID, &p.Description, &metaRaw, &membersRaw, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("pattern %s/%s: %w", patternType, clusterID, common.ErrNotFound)
		}
		return nil, common.WrapTransient(err)
	}
	if err := decodePatternJSON(&p, metaRaw, membersRaw); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GraphDBStore) ListPatterns(ctx context.Context, tenantID int64, patternType string) ([]store.Pattern, error) {
	rows, err := s.conn.Query(ctx, listPatternsSQL, tenantID, patternType)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []store.Pattern
	for rows.Next() {
		var (
			p          store.Pattern
			metaRaw    []byte
			membersRaw []byte
		)
		if err := rows.Scan(&p.ID, &p.TenantID, &p.PatternType, &p.ClusterID, &p.Description, &metaRaw, &membersRaw, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, common.WrapTransient(err)
		}
		if err := decodePatternJSON(&p, metaRaw, membersRaw); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

// UpsertPatterns refreshes or inserts each pattern inside one transaction.
// Matching is on (tenant_id, pattern_type, cluster_id), so re-running a
// detection cycle with unchanged clusters updates rows in place instead of
// creating duplicates.
func (s *GraphDBStore) UpsertPatterns(ctx context.Context, tenantID int64, patterns []store.Pattern) ([]common.PatternRef, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer tx.Rollback(ctx)

	refs := make([]common.PatternRef, 0, len(patterns))
	for _, p := range patterns {
		metaRaw, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode pattern metadata: %w", err)
		}
		membersRaw, err := json.Marshal(p.MemberRefs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode pattern members: %w", err)
		}

		var existingID int64
		err = tx.QueryRow(ctx, selectPatternIDSQL, tenantID, p.PatternType, p.ClusterID).Scan(&existingID)
		switch {
		case err == nil:
			if _, err := tx.Exec(ctx, updatePatternSQL, existingID, p.Description, metaRaw, membersRaw); err != nil {
				return nil, common.WrapTransient(err)
			}
			refs = append(refs, common.PatternRef{
				ID:          existingID,
				TenantID:    tenantID,
				PatternType: p.PatternType,
				ClusterID:   p.ClusterID,
				Created:     false,
			})
		case errors.Is(err, pgxv5.ErrNoRows):
			var newID int64
			err := tx.QueryRow(ctx, insertPatternSQL, tenantID, p.PatternType, p.ClusterID, p.Description, metaRaw, membersRaw).Scan(&newID)
			if err != nil {
				return nil, common.WrapTransient(err)
			}
			refs = append(refs, common.PatternRef{
				ID:          newID,
				TenantID:    tenantID,
				PatternType: p.PatternType,
				ClusterID:   p.ClusterID,
				Created:     true,
			})
		default:
			return nil, common.WrapTransient(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapTransient(err)
	}
	return refs, nil
}

func decodePatternJSON(p *store.Pattern, metaRaw, membersRaw []byte) error {
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &p.Metadata); err != nil {
			return fmt.Errorf("failed to decode pattern metadata: %w", err)
		}
	}
	if len(membersRaw) > 0 {
		if err := json.Unmarshal(membersRaw, &p.MemberRefs); err != nil {
			return fmt.Errorf("failed to decode pattern members: %w", err)
		}
	}
	return nil
}

const getPatternSQL = `
SELECT id, tenant_id, pattern_type, cluster_id, description, metadata, member_refs, created_at, updated_at
FROM livemap_patterns
WHERE tenant_id = $1 AND pattern_type = $2 AND cluster_id = $3;
`

const listPatternsSQL = `
SELECT id, tenant_id, pattern_type, cluster_id, description, metadata, member_refs, created_at, updated_at
FROM livemap_patterns
WHERE tenant_id = $1 AND pattern_type = $2
ORDER BY id;
`

const selectPatternIDSQL = `
SELECT id
FROM livemap_patterns
WHERE tenant_id = $1 AND pattern_type = $2 AND cluster_id = $3
FOR UPDATE;
`

const updatePatternSQL = `
UPDATE livemap_patterns
SET description = $2,
    metadata    = $3,
    member_refs = $4,
    updated_at  = NOW()
WHERE id = $1;
`

const insertPatternSQL = `
INSERT INTO livemap_patterns (tenant_id, pattern_type, cluster_id, description, metadata, member_refs, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING id;
`
