package scenarios

import (
	"context"
	"fmt"

	"github.com/salahkhalfi/offlineq/test/simulation/types"
)

// ServerErrors makes a fraction of calls answer 503 while online.
type ServerErrors struct {
	// Rate is the fraction of failing calls. Default: 0.3
	Rate float64
}

func (s *ServerErrors) Name() string {
	return "server-errors"
}

func (s *ServerErrors) Description() string {
	return "Answers 503 to some writes so they queue while the link stays up"
}

func (s *ServerErrors) Run(ctx context.Context, env *types.Environment) error {
	rate := s.Rate
	if rate <= 0 {
		rate = 0.3
	}

	env.Logger.Info("Injecting server errors", "rate", rate)
	env.Chaos.SetServerErrorRate(rate)
	err := hold(ctx, 5*env.Step)
	env.Chaos.SetServerErrorRate(0)
	if err != nil {
		return err
	}

	// The link never dropped, so nothing triggers a drain on its own.
	if _, err := env.Queue.DrainAndReplay(ctx); err != nil {
		env.Logger.Warn("Drain after server errors", "error", err)
	}
	if err := waitDrained(ctx, env, 20*env.Step); err != nil {
		return fmt.Errorf("queue did not drain after server errors: %w", err)
	}

	return nil
}
