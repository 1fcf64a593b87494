package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"

	"github.com/orgloom/livemap/backend/internal/timing"
	"github.com/orgloom/livemap/backend/pkg/cluster"
	"github.com/orgloom/livemap/backend/pkg/leaselock"
	"github.com/orgloom/livemap/backend/pkg/logger"
	"github.com/orgloom/livemap/backend/pkg/store"
	"github.com/orgloom/livemap/backend/pkg/strength"
)

// StrengthsMessage asks the worker to rebuild one tenant's whole
// relationship-strength feed.
type StrengthsMessage struct {
	TenantID int64 `json:"tenant_id"`
}

func PublishStrengthsRebuild(ch *amqp091.Channel, msg StrengthsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal strengths message: %w", err)
	}
	return PublishFIFO(ch, StrengthsQueue, data)
}

// ProcessStrengths rebuilds the tenant's strength feed under a lease so only
// one rebuild per tenant runs at a time, then queues recluster jobs for every
// clusterable kind. A busy lease re-queues the message: the running rebuild
// may predate the change that triggered this one.
func ProcessStrengths(ctx context.Context, locks *leaselock.Client, st store.Store, conn *pgxpool.Pool, ch *amqp091.Channel, body string) error {
	var msg StrengthsMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode strengths message: %w", err)
	}
	if msg.TenantID == 0 {
		return fmt.Errorf("strengths message missing tenant_id")
	}

	err := locks.WithLease(ctx, leaselock.StrengthsKey(msg.TenantID), leaselock.Options{}, func(ctx context.Context) error {
		start := time.Now()
		rows, err := strength.Rebuild(ctx, st, msg.TenantID)
		if err != nil {
			return err
		}

		if err := timing.RecordJobDuration(ctx, conn, msg.TenantID, timing.JobStrengthRebuild, rows, time.Since(start)); err != nil {
			logger.Warn("[Queue] Failed to record rebuild stats", "tenant_id", msg.TenantID, "err", err)
		}

		for _, kind := range cluster.ClusterableKinds {
			err := PublishRecluster(ch, ReclusterMessage{
				TenantID:      msg.TenantID,
				NodeKind:      string(kind),
				StorePatterns: true,
			})
			if err != nil {
				return fmt.Errorf("failed to queue recluster for %s: %w", kind, err)
			}
		}
		return nil
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Info("[Queue] Strength rebuild already running, re-queueing", "tenant_id", msg.TenantID)
		return err
	}
	return err
}
