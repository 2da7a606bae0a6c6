package scenarios

import (
	"context"
	"fmt"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

// SlowNetwork adds latency beyond the execute timeout, so writes time out
// and queue, then clears it.
type SlowNetwork struct{}

func (s *SlowNetwork) Name() string {
	return "slow-network"
}

func (s *SlowNetwork) Description() string {
	return "Adds latency past the execute timeout so writes time out and queue"
}

func (s *SlowNetwork) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Adding latency", "latency", 2*env.Step)
	env.Chaos.SetLatency(2 * env.Step)
	env.Link.SetReachable(false, "link degraded")

	if err := waitQueued(ctx, env, 1, 10*env.Step); err != nil {
		env.Chaos.SetLatency(0)
		env.Link.SetReachable(true, "link recovered")

		return fmt.Errorf("no write timed out into the queue: %w", err)
	}

	env.Chaos.SetLatency(0)
	env.Link.SetReachable(true, "link recovered")

	if err := waitDrained(ctx, env, 20*env.Step); err != nil {
		return fmt.Errorf("queue did not drain after latency cleared: %w", err)
	}

	return nil
}
