package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/orgloom/livemap/backend/pkg/cache"
	"github.com/orgloom/livemap/backend/pkg/logger"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// InvalidateMessage asks the worker to drop cached neighbor sets after org
// data changed. EntityIDs are node IDs such as "user:1".
type InvalidateMessage struct {
	TenantID  int64    `json:"tenant_id"`
	EntityIDs []string `json:"entity_ids"`
}

func PublishInvalidate(ch *amqp091.Channel, msg InvalidateMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidate message: %w", err)
	}
	return PublishFIFO(ch, InvalidateQueue, data)
}

// ProcessInvalidate clears the cached neighbor sets of every listed entity.
// The first backend failure aborts and re-queues the message, so a flapping
// cache cannot leave a partial invalidation behind silently.
func ProcessInvalidate(ctx context.Context, c cache.NeighborCache, body string) error {
	var msg InvalidateMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode invalidate message: %w", err)
	}
	if msg.TenantID == 0 {
		return fmt.Errorf("invalidate message missing tenant_id")
	}

	// Overlapping change events repeat node IDs; one delete per entity is enough.
	entityIDs := store.DedupeStrings(msg.EntityIDs)
	for _, entityID := range entityIDs {
		if err := c.Invalidate(ctx, msg.TenantID, entityID); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", entityID, err)
		}
	}

	logger.Info("[Queue] Invalidated cached neighbors", "tenant_id", msg.TenantID, "entities", len(entityIDs))
	return nil
}
