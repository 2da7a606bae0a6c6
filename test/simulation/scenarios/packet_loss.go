package scenarios

import (
	"context"
	"fmt"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

// PacketLoss drops a fraction of calls, including replays, during a
// reconnect drain.
type PacketLoss struct {
	// Rate is the drop probability. Default: 0.2
	Rate float64
}

func (s *PacketLoss) Name() string {
	return "packet-loss"
}

func (s *PacketLoss) Description() string {
	return "Drops calls at random so some replays are retained for a later drain"
}

func (s *PacketLoss) Run(ctx context.Context, env *types.Environment) error {
	rate := s.Rate
	if rate <= 0 {
		rate = 0.2
	}

	env.Logger.Info("Injecting packet loss", "rate", rate)
	env.Chaos.SetDropRate(rate)
	if err := hold(ctx, 5*env.Step); err != nil {
		env.Chaos.SetDropRate(0)
		return err
	}

	// Replays during loss may be retained; the next drain picks them up.
	_, _ = env.Queue.DrainAndReplay(ctx)
	env.Chaos.SetDropRate(0)

	if _, err := env.Queue.DrainAndReplay(ctx); err != nil {
		env.Logger.Warn("Drain after packet loss", "error", err)
	}
	if err := waitDrained(ctx, env, 20*env.Step); err != nil {
		return fmt.Errorf("queue did not drain after packet loss: %w", err)
	}

	return nil
}
