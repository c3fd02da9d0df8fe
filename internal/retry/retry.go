package retry

import (
	"context"
	"fmt"
	"time"

	"shipment-sync/internal/util"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 2 * time.Second
)

// ExhaustedError is returned when every attempt failed. It unwraps to the last failure.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Policy retries an operation a fixed number of times with a fixed delay
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep waits between attempts; it must return early when ctx is done
	Sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

// NewPolicy creates a policy. Non-positive attempts fall back to the default.
func NewPolicy(maxAttempts int, delay time.Duration, logger *zap.Logger) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Sleep:       sleepCtx,
		logger:      logger,
	}
}

// Do runs op until it succeeds or the attempts are exhausted
func (p *Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		p.logger.Warn("Attempt failed",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Error(lastErr))

		if attempt == p.MaxAttempts {
			break
		}
		util.RetryAttemptsTotal.WithLabelValues(name).Inc()
		if err := p.Sleep(ctx, p.Delay); err != nil {
			return &ExhaustedError{Op: name, Attempts: attempt, Err: lastErr}
		}
	}

	p.logger.Error("All attempts failed", zap.String("operation", name), zap.Int("attempts", p.MaxAttempts))
	return &ExhaustedError{Op: name, Attempts: p.MaxAttempts, Err: lastErr}
}

// Value runs op under p and returns its result
func Value[T any](ctx context.Context, p *Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
