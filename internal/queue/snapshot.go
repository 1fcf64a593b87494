package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"

	"github.com/orgloom/livemap/backend/internal/storage"
	"github.com/orgloom/livemap/backend/internal/timing"
	"github.com/orgloom/livemap/backend/pkg/graph"
	"github.com/orgloom/livemap/backend/pkg/logger"
)

// snapshotKeep is how many exported snapshots survive pruning per tenant.
const snapshotKeep = 5

// SnapshotMessage asks the worker to assemble a map around a focal user and
// export it to object storage.
type SnapshotMessage struct {
	TenantID    int64 `json:"tenant_id"`
	FocalUserID int64 `json:"focal_user_id"`
}

// SnapshotReadyEvent is announced on the events exchange once the snapshot
// is uploaded. URL is a presigned download link.
type SnapshotReadyEvent struct {
	TenantID    int64  `json:"tenant_id"`
	FocalUserID int64  `json:"focal_user_id"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
}

func PublishSnapshot(ch *amqp091.Channel, msg SnapshotMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot message: %w", err)
	}
	return PublishFIFO(ch, SnapshotQueue, data)
}

// ProcessSnapshot assembles the map, uploads it as JSON and announces a
// presigned link on snapshot.ready.<tenant>. Pruning old snapshots is best
// effort; the fresh upload matters more than the cleanup.
func ProcessSnapshot(ctx context.Context, assembler *graph.Assembler, s3c *s3.Client, conn *pgxpool.Pool, ch *amqp091.Channel, body string) error {
	var msg SnapshotMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode snapshot message: %w", err)
	}
	if msg.TenantID == 0 {
		return fmt.Errorf("snapshot message missing tenant_id")
	}

	start := time.Now()
	mapData, err := assembler.AssembleMap(ctx, msg.TenantID, msg.FocalUserID)
	if err != nil {
		return fmt.Errorf("failed to assemble map for user %d: %w", msg.FocalUserID, err)
	}

	key, err := storage.SnapshotKey(msg.TenantID)
	if err != nil {
		return fmt.Errorf("failed to build snapshot key: %w", err)
	}
	if err := storage.PutJSON(ctx, s3c, key, mapData); err != nil {
		return err
	}
	url, err := storage.GenerateDownloadLink(ctx, s3c, key)
	if err != nil {
		return err
	}

	if pruned, err := storage.PruneSnapshots(ctx, s3c, msg.TenantID, snapshotKeep); err != nil {
		logger.Warn("[Queue] Failed to prune old snapshots", "tenant_id", msg.TenantID, "err", err)
	} else if pruned > 0 {
		logger.Debug("[Queue] Pruned old snapshots", "tenant_id", msg.TenantID, "count", pruned)
	}

	event := SnapshotReadyEvent{
		TenantID:    msg.TenantID,
		FocalUserID: msg.FocalUserID,
		Key:         key,
		URL:         url,
		NodeCount:   len(mapData.Nodes),
		EdgeCount:   len(mapData.Edges),
	}
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}
	topic := fmt.Sprintf("snapshot.ready.%d", msg.TenantID)
	if err := PublishTopic(ch, topic, eventData); err != nil {
		return fmt.Errorf("failed to announce snapshot: %w", err)
	}

	if err := timing.RecordJobDuration(ctx, conn, msg.TenantID, timing.JobSnapshot, len(mapData.Nodes), time.Since(start)); err != nil {
		logger.Warn("[Queue] Failed to record snapshot stats", "tenant_id", msg.TenantID, "err", err)
	}

	logger.Info("[Queue] Snapshot exported", "tenant_id", msg.TenantID, "focal_user_id", msg.FocalUserID, "nodes", len(mapData.Nodes), "edges", len(mapData.Edges), "key", key)
	return nil
}
