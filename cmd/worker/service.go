package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bitetrack-backend/internal/alerts"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger interface {
	Ping(ctx context.Context) error
}

type subscriptionRunner interface {
	Run(ctx context.Context, sub alerts.Receiver) error
}

// subscription is one named stream the worker drains.
type subscription struct {
	name string
	sub  alerts.Receiver
}

type ServiceParams struct {
	Logger        *logger.Logger
	Dependencies  map[string]pinger
	Consumer      subscriptionRunner
	Subscriptions []subscription
}

// Service checks its dependencies once, then runs the consumer against every
// subscription until one fails or ctx is canceled.
type Service struct {
	logg          *logger.Logger
	deps          map[string]pinger
	consumer      subscriptionRunner
	subscriptions []subscription
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("consumer is required")
	}
	if len(params.Subscriptions) == 0 {
		return nil, errors.New("at least one subscription is required")
	}
	for _, s := range params.Subscriptions {
		if s.sub == nil {
			return nil, fmt.Errorf("subscription %q is not configured", s.name)
		}
	}
	return &Service{
		logg:          params.Logger,
		deps:          params.Dependencies,
		consumer:      params.Consumer,
		subscriptions: params.Subscriptions,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		go func(sub subscription) {
			subCtx := s.logg.WithField(ctx, "subscription", sub.name)
			s.logg.Info(subCtx, "consumer started")
			if err := s.consumer.Run(subCtx, sub.sub); err != nil {
				errCh <- fmt.Errorf("%s: %w", sub.name, err)
				return
			}
			errCh <- nil
		}(sub)
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.New("consumer stopped without error")
		case <-ticker.C:
			s.logg.Debug(ctx, "worker.heartbeat")
		}
	}
}
