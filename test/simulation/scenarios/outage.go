package scenarios

import (
	"context"
	"fmt"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

// Outage cuts the network, lets writes pile up, then reconnects.
type Outage struct{}

func (s *Outage) Name() string {
	return "outage"
}

func (s *Outage) Description() string {
	return "Cuts the network so writes queue, then verifies reconnect drains them"
}

func (s *Outage) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Cutting the network")
	env.Chaos.SetPartitioned(true)
	env.Link.SetReachable(false, "network down")

	if err := waitQueued(ctx, env, 10, 10*env.Step); err != nil {
		env.Chaos.SetPartitioned(false)
		env.Link.SetReachable(true, "network restored")

		return fmt.Errorf("writes were not queued during outage: %w", err)
	}
	if err := hold(ctx, 5*env.Step); err != nil {
		return err
	}

	pending, _ := env.Queue.Len(ctx)
	env.Logger.Info("Restoring the network", "pending", pending)
	env.Chaos.SetPartitioned(false)
	env.Link.SetReachable(true, "network restored")

	if err := waitDrained(ctx, env, 20*env.Step); err != nil {
		return fmt.Errorf("queue did not drain after reconnect: %w", err)
	}
	env.Logger.Info("Outage scenario completed")

	return nil
}
