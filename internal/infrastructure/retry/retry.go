// Package retry runs operations with exponential backoff and provides an
// HTTP client that retries transport failures.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stuffkit/backend/internal/infrastructure/config"
	"github.com/stuffkit/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Options configures Do.
type Options struct {
	MaxRetries    int
	Delay         time.Duration // wait before the first retry
	BackoffFactor float64       // multiplier applied after every retry, default 2
	// Retryable decides whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
	Logger    *zap.Logger
}

// FromConfig builds Options from the application retry settings.
func FromConfig(cfg config.RetryConfig, logger *zap.Logger) Options {
	return Options{
		MaxRetries:    cfg.MaxRetries,
		Delay:         cfg.Delay,
		BackoffFactor: cfg.BackoffFactor,
		Logger:        logger,
	}
}

func (o Options) backOff(ctx context.Context) backoff.BackOff {
	factor := o.BackoffFactor
	if factor <= 0 {
		factor = 2
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(o.Delay),
		backoff.WithMultiplier(factor),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(time.Hour),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(o.MaxRetries, 0))), ctx)
}

// Do calls fn until it succeeds, up to MaxRetries+1 times, waiting
// Delay*BackoffFactor^attempt between attempts. Each failed attempt that
// will be retried is logged as a warning, the final failure as an error.
// The last error is returned. Errors rejected by Retryable and context
// cancellation end the loop immediately.
func Do(ctx context.Context, fn func(ctx context.Context) error, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, span := telemetry.StartSpan(ctx, "retry.do")
	defer span.End()

	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if opts.Retryable != nil && !opts.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		telemetry.AddEvent(span, "retry", telemetry.SpanAttrAttempt, attempt)
		logger.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, opts.backOff(ctx), notify)
	if err != nil {
		telemetry.RecordError(span, err)
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logger.Error("operation failed",
				zap.Int("attempts", attempt),
				zap.Int("max_retries", opts.MaxRetries),
				zap.Error(err),
			)
		}
	}
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	var out T
	err := Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts)
	return out, err
}
