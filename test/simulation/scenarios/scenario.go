// Package scenarios contains the fault scenarios the simulation runs against
// an offline queue.
package scenarios

import (
	"context"
	"time"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

// Scenario defines a test scenario interface.
type Scenario = types.Scenario

func hold(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
