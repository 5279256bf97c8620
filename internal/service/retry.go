package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// errPermanent marks failures that retrying cannot fix.
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return errPermanent{err: err}
}

// retryFixed runs fn up to attempts times with a constant delay between tries.
func retryFixed(ctx context.Context, attempts int, delay time.Duration, logger *zap.Logger, op string, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm errPermanent
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}
		logger.Warn("upstream call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
