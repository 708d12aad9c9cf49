package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox/payloads"
)

const (
	lowStockConsumer    = "low-stock"
	defaultProcessedTTL = 24 * time.Hour
)

const (
	outcomeHandled   = "handled"
	outcomeSkipped   = "skipped"
	outcomeDuplicate = "duplicate"
	outcomeMalformed = "malformed"
	outcomeRetry     = "retry"
	outcomeFailed    = "failed"
)

type productReader interface {
	Get(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error)
}

type processedStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ProcessedKey(consumer, eventID string) string
}

type stockGauges interface {
	SetLowStock(productID string, count int)
	ClearLowStock(productID string)
	IncConsumed(eventType, outcome string)
}

// Receiver is satisfied by *pubsub.Subscriber.
type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// ConsumerParams wires the low-stock consumer.
type ConsumerParams struct {
	Products     productReader
	Processed    processedStore
	Metrics      stockGauges
	Logger       *logger.Logger
	Threshold    int
	ProcessedTTL time.Duration
}

// Consumer re-reads the stock of every product touched by a sale, drop or
// undo event and flags products at or below the threshold. Counts come from
// the store rather than the payload so out-of-order delivery converges.
type Consumer struct {
	products  productReader
	processed processedStore
	metrics   stockGauges
	logg      *logger.Logger
	threshold int
	ttl       time.Duration
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Processed == nil {
		return nil, fmt.Errorf("processed store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Threshold < 0 {
		return nil, fmt.Errorf("low-stock threshold must not be negative")
	}
	ttl := params.ProcessedTTL
	if ttl <= 0 {
		ttl = defaultProcessedTTL
	}
	return &Consumer{
		products:  params.Products,
		processed: params.Processed,
		metrics:   params.Metrics,
		logg:      params.Logger,
		threshold: params.Threshold,
		ttl:       ttl,
	}, nil
}

// Run consumes from sub until ctx is canceled.
func (c *Consumer) Run(ctx context.Context, sub Receiver) error {
	if sub == nil {
		return fmt.Errorf("subscription required")
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == outcomeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) string {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	outcome := c.handle(ctx, logCtx, enums.OutboxEventType(eventType), msg.Data)
	if c.metrics != nil {
		c.metrics.IncConsumed(eventType, outcome)
	}
	return outcome
}

func (c *Consumer) handle(ctx, logCtx context.Context, eventType enums.OutboxEventType, data []byte) string {
	switch eventType {
	case enums.EventSaleCreated, enums.EventInventoryDropped, enums.EventInventoryDropUndone:
	default:
		return outcomeSkipped
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return outcomeMalformed
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return outcomeMalformed
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	productIDs, err := touchedProducts(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return outcomeMalformed
	}

	key := c.processed.ProcessedKey(lowStockConsumer, envelope.EventID)
	first, err := c.processed.SetNX(ctx, key, "1", c.ttl)
	if err != nil {
		c.logg.Error(logCtx, "processed check failed", err)
		return outcomeRetry
	}
	if !first {
		c.logg.Debug(logCtx, "event already processed")
		return outcomeDuplicate
	}

	for _, productID := range productIDs {
		if err := c.checkProduct(ctx, logCtx, productID); err != nil {
			c.logg.Error(logCtx, "low-stock check failed", err)
			// Untyped errors come straight from the store and are retried.
			if pkgerrors.As(err) != nil && !pkgerrors.IsRetryable(err) {
				return outcomeFailed
			}
			if delErr := c.processed.Del(ctx, key); delErr != nil {
				c.logg.Error(logCtx, "failed to release processed marker", delErr)
			}
			return outcomeRetry
		}
	}
	return outcomeHandled
}

func (c *Consumer) checkProduct(ctx, logCtx context.Context, productID uuid.UUID) error {
	id := productID.String()
	product, err := c.products.Get(ctx, nil, productID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.clear(id)
			return nil
		}
		return err
	}

	if product.Count > c.threshold {
		c.clear(id)
		return nil
	}
	if c.metrics != nil {
		c.metrics.SetLowStock(id, product.Count)
	}
	c.logg.Warn(c.logg.WithFields(logCtx, map[string]any{
		"product_id": id,
		"product":    product.Name,
		"count":      product.Count,
		"threshold":  c.threshold,
	}), "inventory.low_stock")
	return nil
}

func (c *Consumer) clear(productID string) {
	if c.metrics != nil {
		c.metrics.ClearLowStock(productID)
	}
}

func touchedProducts(eventType enums.OutboxEventType, data json.RawMessage) ([]uuid.UUID, error) {
	switch eventType {
	case enums.EventSaleCreated:
		var payload payloads.SaleCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		seen := make(map[uuid.UUID]struct{}, len(payload.Lines))
		ids := make([]uuid.UUID, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			if _, ok := seen[line.ProductID]; ok {
				continue
			}
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
		return ids, nil
	case enums.EventInventoryDropped:
		var payload payloads.InventoryDroppedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []uuid.UUID{payload.ProductID}, nil
	case enums.EventInventoryDropUndone:
		var payload payloads.InventoryDropUndoneEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []uuid.UUID{payload.ProductID}, nil
	}
	return nil, fmt.Errorf("unsupported event type %q", eventType)
}
