package indexer

import (
	"context"
	"fmt"
	"time"

	"wallscope/internal/errs"
)

// withRetry runs fn until it succeeds, the attempt budget is spent, or the
// context ends. The delay doubles after every failed attempt. When the
// budget runs out the last error is returned wrapped with the attempt
// count, keeping its kind.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	var err error
	delay := baseDelay
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return errs.Wrap(errs.KindOf(err), fmt.Sprintf("gave up after %d attempts", maxRetries+1), err)
}
