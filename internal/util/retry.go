package util

import (
	"context"
	"log/slog"
)

// RetryForever re-invokes fn until it succeeds or fails with an error the
// predicate rejects, which propagates unmodified. There is no backoff and no
// attempt limit: the per-attempt timeout on the wrapped call is the only
// pacing. Callers needing bounded latency must cancel ctx.
func RetryForever(ctx context.Context, logger *slog.Logger, name string, retryable func(error) bool, fn func() error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		logger.Warn("transient failure, retrying", "op", name, "error", err)
	}
}
