package scenarios

import (
	"context"
	"time"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

func waitUntil(ctx context.Context, timeout, interval time.Duration, condition func() bool) error {
	if condition() {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return context.DeadlineExceeded
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// waitDrained waits until the queue is empty and no drain is running.
func waitDrained(ctx context.Context, env *types.Environment, timeout time.Duration) error {
	return waitUntil(ctx, timeout, env.Step/10, func() bool {
		n, err := env.Queue.Len(ctx)

		return err == nil && n == 0 && !env.Queue.Draining()
	})
}

// waitQueued waits until at least n operations are pending.
func waitQueued(ctx context.Context, env *types.Environment, n int, timeout time.Duration) error {
	return waitUntil(ctx, timeout, env.Step/10, func() bool {
		pending, err := env.Queue.Len(ctx)

		return err == nil && pending >= n
	})
}
