// Package timing records how long recompute jobs take. The worker writes a
// row per processed job and can ask for a rough estimate before starting the
// next one, based on recent runs of the same job type.
package timing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	JobStrengthRebuild = "strength_rebuild"
	JobRecluster       = "recluster"
	JobSnapshot        = "snapshot"
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RecordJobDuration stores one finished job run. itemCount carries the job's
// size (rows rebuilt, clusters found, nodes exported) for later analysis.
func RecordJobDuration(ctx context.Context, conn dbConn, tenantID int64, jobType string, itemCount int, duration time.Duration) error {
	_, err := conn.Exec(ctx, insertStatSQL, tenantID, jobType, itemCount, duration.Milliseconds())
	return err
}

// EstimateJobDuration averages the most recent runs of jobType across all
// tenants. It returns zero when no history exists yet.
func EstimateJobDuration(ctx context.Context, conn dbConn, jobType string) (time.Duration, error) {
	var ms int64
	if err := conn.QueryRow(ctx, estimateStatSQL, jobType).Scan(&ms); err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

const insertStatSQL = `
INSERT INTO livemap_stats (tenant_id, job_type, item_count, duration_ms, created_at)
VALUES ($1, $2, $3, $4, NOW());
`

const estimateStatSQL = `
SELECT COALESCE(AVG(duration_ms), 0)::bigint
FROM (
    SELECT duration_ms
    FROM livemap_stats
    WHERE job_type = $1
    ORDER BY created_at DESC
    LIMIT 20
) recent;
`
