package db

import (
	"context"
	"math/rand"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/bitetrack-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	defaultTxMaxAttempts    = 5
	defaultTxRetryBaseDelay = 20 * time.Millisecond
	maxTxRetryDelay         = 500 * time.Millisecond
)

// TxObserver receives coordinator outcomes for instrumentation.
type TxObserver interface {
	ObserveTxRetry()
	ObserveTxExhausted()
}

// AtomicRunner is the contract services depend on for all-or-nothing scopes.
type AtomicRunner interface {
	RunAtomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	jitter *rand.Rand
}

func newRetryPolicy(maxAttempts int, baseDelay time.Duration) *retryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = defaultTxMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultTxRetryBaseDelay
	}
	return &retryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepContext,
		jitter:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RunAtomic executes fn as one all-or-nothing scope. Every read and write in
// fn must go through tx. A transient conflict (serialization failure,
// deadlock, lock timeout, busy sqlite handle or a lost compare-and-set)
// rolls the scope back and replays fn from the start, up to the configured
// attempt budget. Once an attempt has begun it is not interrupted by the
// caller's cancellation; cancellation is honored between attempts.
func (c *Client) RunAtomic(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.WithTx(context.WithoutCancel(ctx), fn)
		if err == nil {
			return nil
		}
		if !IsTransientConflict(err) {
			return err
		}

		lastErr = err
		if attempt == c.retry.maxAttempts {
			break
		}
		if c.observer != nil {
			c.observer.ObserveTxRetry()
		}
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"attempt":      attempt,
				"max_attempts": c.retry.maxAttempts,
				"error":        err.Error(),
			})
			c.logg.Warn(logCtx, "atomic scope hit transient conflict, retrying")
		}
		if err := c.retry.sleep(ctx, c.retry.backoff(attempt)); err != nil {
			return err
		}
	}

	if c.observer != nil {
		c.observer.ObserveTxExhausted()
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransientConflict, lastErr, "transaction retries exhausted").
		WithDetails(map[string]any{"attempts": c.retry.maxAttempts})
}

// backoff doubles the base delay per attempt, caps it and adds up to 50% jitter.
func (p *retryPolicy) backoff(attempt int) time.Duration {
	delay := p.baseDelay << (attempt - 1)
	if delay <= 0 || delay > maxTxRetryDelay {
		delay = maxTxRetryDelay
	}
	p.mu.Lock()
	jitter := time.Duration(p.jitter.Int63n(int64(delay)/2 + 1))
	p.mu.Unlock()
	return delay + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ScopeContext returns the context bound to an atomic scope's transaction.
// It carries the caller's values but not its cancellation, so work issued
// with it inside fn finishes even if the caller has gone away.
func ScopeContext(tx *gorm.DB) context.Context {
	if tx == nil || tx.Statement == nil || tx.Statement.Context == nil {
		return context.Background()
	}
	return tx.Statement.Context
}
