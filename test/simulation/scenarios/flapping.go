package scenarios

import (
	"context"
	"fmt"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

// Flapping toggles reachability faster than the settle delay.
type Flapping struct{}

func (s *Flapping) Name() string {
	return "flapping"
}

func (s *Flapping) Description() string {
	return "Toggles connectivity faster than the settle delay so no drain starts mid-flap"
}

func (s *Flapping) Run(ctx context.Context, env *types.Environment) error {
	env.Chaos.SetPartitioned(true)
	env.Link.SetReachable(false, "flap")

	for i := 0; i < 10; i++ {
		env.Link.SetReachable(true, "flap")
		if err := hold(ctx, env.Step/4); err != nil {
			return err
		}
		env.Link.SetReachable(false, "flap")
		if err := hold(ctx, env.Step/4); err != nil {
			return err
		}
	}

	env.Logger.Info("Flapping finished, settling")
	env.Chaos.SetPartitioned(false)
	env.Link.SetReachable(true, "stable")

	if err := waitDrained(ctx, env, 20*env.Step); err != nil {
		return fmt.Errorf("queue did not drain after flapping: %w", err)
	}

	return nil
}
