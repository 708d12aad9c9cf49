package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
)

type countingObserver struct {
	retries   int
	exhausted int
}

func (o *countingObserver) ObserveTxRetry()     { o.retries++ }
func (o *countingObserver) ObserveTxExhausted() { o.exhausted++ }

func newAtomicClient(t *testing.T, maxAttempts int) (*Client, *gorm.DB, *countingObserver) {
	t.Helper()
	db := newTestDB(t)
	observer := &countingObserver{}
	client := NewFromGorm(db, Options{MaxAttempts: maxAttempts, Observer: observer})
	client.retry.sleep = func(context.Context, time.Duration) error { return nil }
	return client, db, observer
}

func TestRunAtomicRetriesTransientConflictThenCommits(t *testing.T) {
	client, db, observer := newAtomicClient(t, 3)

	calls := 0
	err := client.RunAtomic(context.Background(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&testModel{Name: fmt.Sprintf("attempt-%d", calls)}).Error; err != nil {
			return err
		}
		if calls == 1 {
			return fmt.Errorf("guarded write: %w", ErrConcurrentUpdate)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunAtomic returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if observer.retries != 1 {
		t.Fatalf("expected 1 retry observed, got %d", observer.retries)
	}
	if got := countRows(t, db); got != 1 {
		t.Fatalf("expected only the successful attempt to persist, got %d rows", got)
	}
}

func TestRunAtomicDoesNotRetryDomainErrors(t *testing.T) {
	client, db, observer := newAtomicClient(t, 5)

	domainErr := pkgerrors.New(pkgerrors.CodeInsufficientInventory, "not enough stock")
	calls := 0
	err := client.RunAtomic(context.Background(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&testModel{Name: "partial"}).Error; err != nil {
			return err
		}
		return domainErr
	})
	if !errors.Is(err, domainErr) {
		t.Fatalf("expected domain error returned unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
	if observer.retries != 0 {
		t.Fatalf("expected no retries, got %d", observer.retries)
	}
	if got := countRows(t, db); got != 0 {
		t.Fatalf("expected rollback of partial write, got %d rows", got)
	}
}

func TestRunAtomicSurfacesRetryableErrorWhenExhausted(t *testing.T) {
	client, _, observer := newAtomicClient(t, 3)

	calls := 0
	err := client.RunAtomic(context.Background(), func(tx *gorm.DB) error {
		calls++
		return ErrConcurrentUpdate
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTransientConflict {
		t.Fatalf("expected transient conflict error, got %v", err)
	}
	if !pkgerrors.MetadataFor(typed.Code()).Retryable {
		t.Fatalf("transient conflict must be retryable")
	}
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected cause to be preserved")
	}
	if observer.retries != 2 || observer.exhausted != 1 {
		t.Fatalf("unexpected observer counts retries=%d exhausted=%d", observer.retries, observer.exhausted)
	}
}

func TestRunAtomicHonorsCancellationBetweenAttempts(t *testing.T) {
	client, _, _ := newAtomicClient(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := client.RunAtomic(ctx, func(tx *gorm.DB) error {
		calls++
		cancel()
		return ErrConcurrentUpdate
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no attempt after cancellation, got %d", calls)
	}
}

func TestRunAtomicCompletesStartedAttemptAfterCancel(t *testing.T) {
	client, db, _ := newAtomicClient(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	err := client.RunAtomic(ctx, func(tx *gorm.DB) error {
		cancel()
		return tx.Create(&testModel{Name: "finished"}).Error
	})
	if err != nil {
		t.Fatalf("expected started scope to commit, got %v", err)
	}
	if got := countRows(t, db); got != 1 {
		t.Fatalf("expected committed row, got %d", got)
	}
}

func TestRunAtomicRejectsAlreadyCanceledContext(t *testing.T) {
	client, _, _ := newAtomicClient(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := client.RunAtomic(ctx, func(tx *gorm.DB) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("scope must not start with a canceled context")
	}
}

func TestBackoffIsBounded(t *testing.T) {
	policy := newRetryPolicy(10, 100*time.Millisecond)
	for attempt := 1; attempt <= 10; attempt++ {
		d := policy.backoff(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: expected positive delay", attempt)
		}
		if d > maxTxRetryDelay+maxTxRetryDelay/2 {
			t.Fatalf("attempt %d: delay %v exceeds cap", attempt, d)
		}
	}
}

func TestScopeContextIgnoresCallerCancellation(t *testing.T) {
	client, _, _ := newAtomicClient(t, 1)

	type ctxKey struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "kept"))
	err := client.RunAtomic(ctx, func(tx *gorm.DB) error {
		cancel()
		scoped := ScopeContext(tx)
		if scoped.Err() != nil {
			return fmt.Errorf("scope context canceled: %w", scoped.Err())
		}
		if scoped.Value(ctxKey{}) != "kept" {
			return errors.New("scope context lost caller values")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ScopeContext(nil) == nil {
		t.Fatalf("expected background context for nil tx")
	}
}
