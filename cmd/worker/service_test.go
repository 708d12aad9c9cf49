package main

import (
	"context"
	"errors"
	"io"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/bitetrack-backend/internal/alerts"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type blockingReceiver struct{}

func (blockingReceiver) Receive(ctx context.Context, _ func(context.Context, *pubsub.Message)) error {
	<-ctx.Done()
	return ctx.Err()
}

type stubRunner struct {
	err error
}

func (s stubRunner) Run(ctx context.Context, sub alerts.Receiver) error {
	if s.err != nil {
		return s.err
	}
	return sub.Receive(ctx, nil)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestServiceRequiresSubscriptions(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: quietLogger(), Consumer: stubRunner{}})
	if err == nil {
		t.Fatalf("expected error without subscriptions")
	}
	_, err = NewService(ServiceParams{
		Logger:        quietLogger(),
		Consumer:      stubRunner{},
		Subscriptions: []subscription{{name: "inventory"}},
	})
	if err == nil {
		t.Fatalf("expected error for nil subscriber")
	}
}

func TestServiceFailsFastOnDependency(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:        quietLogger(),
		Dependencies:  map[string]pinger{"redis": stubPinger{err: errors.New("down")}},
		Consumer:      stubRunner{},
		Subscriptions: []subscription{{name: "inventory", sub: blockingReceiver{}}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected readiness failure")
	}
}

func TestServiceStopsWhenConsumerFails(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger:        quietLogger(),
		Consumer:      stubRunner{err: boom},
		Subscriptions: []subscription{{name: "inventory", sub: blockingReceiver{}}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}
}

func TestServiceReturnsOnCancel(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:        quietLogger(),
		Dependencies:  map[string]pinger{"db": stubPinger{}},
		Consumer:      stubRunner{},
		Subscriptions: []subscription{{name: "inventory", sub: blockingReceiver{}}, {name: "sales", sub: blockingReceiver{}}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
