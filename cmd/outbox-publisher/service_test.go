package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bitetrack-backend/pkg/config"
	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
	"github.com/angelmondragon/bitetrack-backend/pkg/enums"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterRetryableFailure(t *testing.T) {
	first := dropEvent(t, 0)
	second := dropEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	observer := &fakeObserver{}
	svc := newTestService(t, repo, pub, &fakeRegistry{topic: "bt-inventory-events"}, &fakeDLQRepo{}, observer, nil)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != first.ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != second.ID {
		t.Fatalf("expected second row published, got %v", repo.published)
	}
	if observer.published != 1 || observer.failed != 1 {
		t.Fatalf("unexpected metrics %+v", observer)
	}
}

func TestPublishSetsEnvelopeAttributes(t *testing.T) {
	actor := uuid.New()
	event := dropEvent(t, 0)
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	reg := &fakeRegistry{topic: "bt-inventory-events", actor: &outbox.ActorRef{ActorID: actor}}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, pub, reg, &fakeDLQRepo{}, nil, nil)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	msg := pub.sent[0]
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatalf("message body must be the stored envelope")
	}
	want := map[string]string{
		"event_id":       event.ID.String(),
		"event_type":     string(enums.EventInventoryDropped),
		"aggregate_type": string(enums.AggregateInventoryDrop),
		"aggregate_id":   event.AggregateID.String(),
		"schema_version": "1",
		"actor_id":       actor.String(),
	}
	for k, v := range want {
		if msg.Attributes[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, msg.Attributes[k], v)
		}
	}
}

func TestProcessBatchDeadLettersNonRetryable(t *testing.T) {
	event := dropEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	observer := &fakeObserver{}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	svc := newTestService(t, repo, &fakePublisher{}, reg, dlq, observer, nil)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq entry does not mirror the outbox row")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(repo.terminal) != 1 || observer.dlq != 1 {
		t.Fatalf("expected terminal mark and dlq metric, got %v / %+v", repo.terminal, observer)
	}
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	event := dropEvent(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlq := &fakeDLQRepo{}
	svc := newTestService(t, repo, pub, &fakeRegistry{topic: "bt-inventory-events"}, dlq, nil, &config.OutboxConfig{
		BatchSize:   1,
		MaxAttempts: 2,
	})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("expected max-attempts dlq entry, got %+v", dlq.entries)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows must not also be marked failed")
	}
}

func TestProcessBatchMissingPublisherIsTerminal(t *testing.T) {
	event := dropEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	svc := newTestService(t, repo, nil, &fakeRegistry{topic: "unknown"}, dlq, nil, nil)
	svc.publishers = func(string) publisher { return nil }

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlq.entries)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil, nil)
	processed, err := svc.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, processed=%v err=%v", processed, err)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, observer publishObserver, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		DLQRepository:    dlq,
		Metrics:          observer,
		PublisherFactory: func(string) publisher { return pub },
		Now:              func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return svc
}

func dropEvent(tb testing.TB, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventInventoryDropped,
		AggregateType: enums.AggregateInventoryDrop,
		AggregateID:   uuid.New(),
		Payload:       body,
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeRegistry struct {
	topic string
	actor *outbox.ActorRef
	err   error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         f.topic,
		},
		Envelope: outbox.PayloadEnvelope{
			Version:    1,
			EventID:    event.ID.String(),
			OccurredAt: time.Now(),
			Actor:      f.actor,
		},
		Payload: &payloads.InventoryDroppedEvent{},
	}, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeObserver struct {
	published, failed, dlq int
}

func (f *fakeObserver) IncPublished(string)   { f.published++ }
func (f *fakeObserver) IncFailed(string)      { f.failed++ }
func (f *fakeObserver) IncDLQ(string, string) { f.dlq++ }
