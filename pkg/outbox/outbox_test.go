package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	occurred := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	actor := uuid.New()
	dropID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventInventoryDropped,
			AggregateType: enums.AggregateInventoryDrop,
			AggregateID:   dropID,
			Actor:         &ActorRef{ActorID: actor},
			Data:          map[string]int{"quantity_dropped": 3},
			OccurredAt:    occurred,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.AggregateID != dropID || row.PublishedAt != nil || row.AttemptCount != 0 {
		t.Fatalf("unexpected row %+v", row)
	}
	var env PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != CurrentVersion || !env.OccurredAt.Equal(occurred) || env.Actor == nil || env.Actor.ActorID != actor {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if string(env.Data) != `{"quantity_dropped":3}` {
		t.Fatalf("unexpected data %s", env.Data)
	}
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	boom := errors.New("state change failed")

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected caller error, got %v", err)
	}
	var count int64
	conn.Model(&models.OutboxEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows after rollback, got %d", count)
	}
}

func TestEmitRejectsUnknownTypesAndMissingTx(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); !errors.Is(err, errTxRequired) {
		t.Fatalf("expected tx required, got %v", err)
	}
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.OutboxEventType("order_created"),
		AggregateType: enums.AggregateSale,
	})
	if err == nil {
		t.Fatal("expected unknown event type to fail")
	}
}

func TestPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for i := 0; i < 3; i++ {
		if err := svc.Emit(context.Background(), conn, DomainEvent{
			EventType:     enums.EventSaleSettled,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"i": i},
		}); err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	if err != nil || len(rows) != 3 {
		t.Fatalf("fetch: rows=%d err=%v", len(rows), err)
	}
	if err := repo.MarkPublishedTx(conn, rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailedTx(conn, rows[1].ID, errors.New(strings.Repeat("x", 2000))); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != rows[1].ID {
		t.Fatalf("expected only the retryable row, got %d rows", len(pending))
	}
	if pending[0].AttemptCount != 1 || pending[0].LastError == nil || len(*pending[0].LastError) != maxLastErrorLen {
		t.Fatalf("unexpected failure bookkeeping %+v", pending[0])
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(time.Hour))
	if err != nil || deleted != 1 {
		t.Fatalf("purge: deleted=%d err=%v", deleted, err)
	}
}

func TestDLQInsertIsIdempotentPerEvent(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	msg := strings.Repeat("e", 1500)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventInventoryDropUndone,
		AggregateType: enums.AggregateInventoryDrop,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}
	for i := 0; i < 2; i++ {
		if err := dlq.InsertTx(conn, entry); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	var rows []models.OutboxDLQ
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load dlq: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one dlq row, got %d", len(rows))
	}
	if rows[0].ErrorMessage == nil || len(*rows[0].ErrorMessage) != maxLastErrorLen {
		t.Fatalf("expected truncated error message")
	}
	if err := dlq.InsertTx(nil, entry); err == nil {
		t.Fatal("expected tx required")
	}
}

func TestDLQInsertRejectsUnknownReason(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventSaleCreated,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQErrorReason("gave_up"),
		AttemptCount:  1,
	}
	if err := dlq.InsertTx(conn, entry); err == nil {
		t.Fatal("expected invalid reason error")
	}
	var n int64
	if err := conn.Model(&models.OutboxDLQ{}).Count(&n).Error; err != nil {
		t.Fatalf("count dlq: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no dlq rows, got %d", n)
	}

	if _, err := enums.ParseOutboxDLQErrorReason("non_retryable"); err != nil {
		t.Fatalf("parse known reason: %v", err)
	}
	if _, err := enums.ParseOutboxDLQErrorReason("gave_up"); err == nil {
		t.Fatal("expected parse error")
	}
}
