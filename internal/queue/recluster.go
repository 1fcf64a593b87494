package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"

	"github.com/orgloom/livemap/backend/internal/timing"
	"github.com/orgloom/livemap/backend/pkg/cluster"
	"github.com/orgloom/livemap/backend/pkg/common"
	"github.com/orgloom/livemap/backend/pkg/leaselock"
	"github.com/orgloom/livemap/backend/pkg/logger"
)

// ReclusterMessage asks the worker to recompute the clusters of one node
// kind for one tenant. StorePatterns additionally persists the result as
// pattern records.
type ReclusterMessage struct {
	TenantID      int64  `json:"tenant_id"`
	NodeKind      string `json:"node_kind"`
	StorePatterns bool   `json:"store_patterns"`
}

func PublishRecluster(ch *amqp091.Channel, msg ReclusterMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal recluster message: %w", err)
	}
	return PublishFIFO(ch, ReclusterQueue, data)
}

// ProcessRecluster recomputes clusters under a per-tenant-and-kind lease.
// Detection always forces a fresh computation; the message only exists
// because the underlying data changed.
func ProcessRecluster(ctx context.Context, locks *leaselock.Client, engine *cluster.Engine, conn *pgxpool.Pool, body string) error {
	var msg ReclusterMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode recluster message: %w", err)
	}
	if msg.TenantID == 0 {
		return fmt.Errorf("recluster message missing tenant_id")
	}
	kind := common.EntityKind(msg.NodeKind)
	if !slices.Contains(cluster.ClusterableKinds, kind) {
		return fmt.Errorf("recluster message names unclusterable kind %q", msg.NodeKind)
	}

	if estimate, err := timing.EstimateJobDuration(ctx, conn, timing.JobRecluster); err == nil && estimate > 0 {
		logger.Debug("[Queue] Starting recluster", "tenant_id", msg.TenantID, "kind", kind, "estimated", estimate)
	}

	err := locks.WithLease(ctx, leaselock.ClusterKey(msg.TenantID, kind), leaselock.Options{}, func(ctx context.Context) error {
		start := time.Now()
		clusters, err := engine.DetectClusters(ctx, msg.TenantID, kind, true)
		if err != nil {
			return err
		}

		if msg.StorePatterns {
			refs, err := engine.StoreClustersAsPatterns(ctx, msg.TenantID)
			if err != nil {
				return err
			}
			created := 0
			for _, ref := range refs {
				if ref.Created {
					created++
				}
			}
			logger.Info("[Queue] Stored cluster patterns", "tenant_id", msg.TenantID, "patterns", len(refs), "created", created)
		}

		if err := timing.RecordJobDuration(ctx, conn, msg.TenantID, timing.JobRecluster, len(clusters), time.Since(start)); err != nil {
			logger.Warn("[Queue] Failed to record recluster stats", "tenant_id", msg.TenantID, "err", err)
		}

		logger.Info("[Queue] Recluster finished", "tenant_id", msg.TenantID, "kind", kind, "clusters", len(clusters))
		return nil
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Info("[Queue] Recluster already running, re-queueing", "tenant_id", msg.TenantID, "kind", kind)
		return err
	}
	return err
}
