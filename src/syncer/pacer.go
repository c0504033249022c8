package syncer

import (
	"context"
	"time"
)

// Pacer suspends between consecutive gateway calls. Injecting it keeps the
// shared-rate-limit delay out of tests.
type Pacer func(ctx context.Context, d time.Duration)

// SleepPacer blocks for d or until the context is cancelled.
func SleepPacer(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// NopPacer never sleeps.
func NopPacer(ctx context.Context, d time.Duration) {}
