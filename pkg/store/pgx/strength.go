package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/store"
)

const strengthChunkSize = 500

func (s *GraphDBStore) ListStrengths(ctx context.Context, tenantID int64, minStrength float64) ([]common.RelationshipStrength, error) {
	rows, err := s.conn.Query(ctx, listStrengthsSQL, tenantID, minStrength)
	if err != nil {
		return nil, common.WrapTransient(err)
	}
	defer rows.Close()

	var out []common.RelationshipStrength
	for rows.Next() {
		r := common.RelationshipStrength{TenantID: tenantID}
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.RelationshipType, &r.Strength); err != nil {
			return nil, common.WrapTransient(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapTransient(err)
	}
	return out, nil
}

// UpsertStrengths inserts or refreshes strength rows in bulk. Pairs are
// stored with the endpoints in canonical order so that (a,b) and (b,a) land
// on the same row.
func (s *GraphDBStore) UpsertStrengths(ctx context.Context, tenantID int64, rows []common.RelationshipStrength) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.WrapTransient(err)
	}
	defer tx.Rollback(ctx)

	if err := insertStrengthChunks(ctx, tx, tenantID, rows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapTransient(err)
	}
	return nil
}

// ReplaceStrengths swaps the tenant's whole strength feed for rows inside a
// single transaction, so readers never observe a half-rebuilt feed.
func (s *GraphDBStore) ReplaceStrengths(ctx context.Context, tenantID int64, rows []common.RelationshipStrength) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.WrapTransient(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteStrengthsSQL, tenantID); err != nil {
		return common.WrapTransient(err)
	}
	if err := insertStrengthChunks(ctx, tx, tenantID, rows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapTransient(err)
	}
	return nil
}

func insertStrengthChunks(ctx context.Context, tx pgxv5.Tx, tenantID int64, rows []common.RelationshipStrength) error {
	return store.ChunkRange(len(rows), strengthChunkSize, func(start, end int) error {
		chunk := rows[start:end]
		sources := make([]string, len(chunk))
		targets := make([]string, len(chunk))
		types := make([]string, len(chunk))
		strengths := make([]float64, len(chunk))
		for i, r := range chunk {
			src, tgt := common.OrderPair(r.SourceID, r.TargetID)
			sources[i] = src
			targets[i] = tgt
			types[i] = r.RelationshipType
			strengths[i] = r.Strength
		}
		if _, err := tx.Exec(ctx, upsertStrengthsSQL, tenantID, sources, targets, types, strengths); err != nil {
			return common.WrapTransient(err)
		}
		return nil
	})
}

const listStrengthsSQL = `
SELECT source_id, target_id, relationship_type, strength
FROM relationship_strengths
WHERE tenant_id = $1 AND strength >= $2
ORDER BY source_id, target_id;
`

const deleteStrengthsSQL = `
DELETE FROM relationship_strengths
WHERE tenant_id = $1;
`

const upsertStrengthsSQL = `
INSERT INTO relationship_strengths (tenant_id, source_id, target_id, relationship_type, strength, updated_at)
SELECT $1, src, tgt, typ, str, NOW()
FROM unnest($2::text[], $3::text[], $4::text[], $5::float8[]) AS t(src, tgt, typ, str)
ON CONFLICT (tenant_id, source_id, target_id)
DO UPDATE SET relationship_type = EXCLUDED.relationship_type,
              strength          = EXCLUDED.strength,
              updated_at        = NOW();
`
