package types

import (
	"context"
	"log/slog"
	"time"

	"github.com/salahkhalfi/offlineq"
	vmmetrics "github.com/salahkhalfi/offlineq/contrib/metrics/vm"
	"github.com/salahkhalfi/offlineq/connectivity"
	"github.com/salahkhalfi/offlineq/test/simulation/chaos"
	"github.com/salahkhalfi/offlineq/test/simulation/workload"
)

// Environment holds the shared resources for the simulation.
type Environment struct {
	Queue   *offlineq.Queue
	Chaos   *chaos.Transport
	Link    *connectivity.Local
	Server  *workload.Server
	Tracker *workload.WriteTracker
	Metrics *vmmetrics.Collector
	Logger  *slog.Logger

	// Step is the base time unit scenarios scale their phases by.
	Step time.Duration
}

// Scenario defines a test scenario interface.
type Scenario interface {
	// Name returns the unique name of the scenario.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Run executes the scenario logic.
	Run(ctx context.Context, env *Environment) error
}
