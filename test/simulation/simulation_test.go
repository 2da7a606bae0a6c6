package simulation_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/salahkhalfi/offlineq/test/simulation"
	"github.com/salahkhalfi/offlineq/test/simulation/config"
	"github.com/salahkhalfi/offlineq/test/simulation/scenarios"
)

func runQuick(t *testing.T, store string, strict bool, extra ...scenarios.Scenario) {
	t.Helper()

	settings := config.Default()
	settings.Simulation.Seed = 42
	settings.Simulation.Step = 50 * time.Millisecond
	settings.Simulation.ConsoleInterval = time.Second
	settings.Simulation.RejectEvery = 13
	settings.Queue.Store = store
	settings.Queue.Path = t.TempDir()
	settings.Queue.SettleDelay = 50 * time.Millisecond
	settings.Queue.ExecuteTimeout = 50 * time.Millisecond

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim, err := simulation.New(simulation.Config{
		Profile:     "quick",
		Settings:    settings,
		StrictOrder: strict,
	}, logger)
	require.NoError(t, err)

	sim.RegisterScenario(&scenarios.Outage{})
	sim.RegisterScenario(&scenarios.Flapping{})
	sim.RegisterScenario(&scenarios.ServerErrors{})
	sim.RegisterScenario(&scenarios.SlowNetwork{})
	for _, s := range extra {
		sim.RegisterScenario(s)
	}

	require.NoError(t, sim.Run(t.Context()))

	env := sim.Environment()
	require.NotNil(t, env)
	require.Positive(t, env.Tracker.Count())
	require.Positive(t, env.Tracker.QueuedCount())
	require.Positive(t, env.Chaos.Faults())
}

func TestSimulationQuickMemory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping simulation in short mode")
	}

	runQuick(t, "memory", true)
}

func TestSimulationQuickPebble(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping simulation in short mode")
	}

	runQuick(t, "pebble", true)
}

func TestSimulationPacketLoss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping simulation in short mode")
	}

	runQuick(t, "memory", false, &scenarios.PacketLoss{Rate: 0.3})
}
