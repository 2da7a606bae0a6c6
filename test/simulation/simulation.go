package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/salahkhalfi/offlineq"
	vmmetrics "github.com/salahkhalfi/offlineq/contrib/metrics/vm"
	"github.com/salahkhalfi/offlineq/connectivity"
	"github.com/salahkhalfi/offlineq/replay"
	"github.com/salahkhalfi/offlineq/store"
	"github.com/salahkhalfi/offlineq/test/simulation/chaos"
	"github.com/salahkhalfi/offlineq/test/simulation/config"
	simtypes "github.com/salahkhalfi/offlineq/test/simulation/types"
	"github.com/salahkhalfi/offlineq/test/simulation/workload"
	"github.com/salahkhalfi/offlineq/types"
)

// Config holds simulation configuration.
type Config struct {
	Profile  string
	Settings *config.Config

	// StrictOrder also verifies queued writes were delivered in queue order.
	StrictOrder bool

	// QueueLogger receives the queue's own logs. Nil discards them.
	QueueLogger types.Logger

	// Metrics collects queue metrics. Nil creates a private collector.
	Metrics *vmmetrics.Collector
}

// Simulation orchestrates the test execution.
type Simulation struct {
	config       Config
	logger       *slog.Logger
	env          *simtypes.Environment
	scenarios    []simtypes.Scenario
	stopWorkload context.CancelFunc
	workloadDone chan struct{}
	rng          *rand.Rand
	cleanup      []func()
}

// New creates a new simulation instance.
func New(cfg Config, logger *slog.Logger) (*Simulation, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}

	return &Simulation{
		config:    cfg,
		logger:    logger,
		scenarios: make([]simtypes.Scenario, 0),
		//nolint:gosec // Simulation data, not security sensitive
		rng: rand.New(rand.NewSource(cfg.Settings.Simulation.Seed)),
	}, nil
}

// RegisterScenario adds a scenario to the simulation.
func (s *Simulation) RegisterScenario(scenario simtypes.Scenario) {
	s.scenarios = append(s.scenarios, scenario)
}

// Environment returns the environment built by Run, or nil before Run.
func (s *Simulation) Environment() *simtypes.Environment {
	return s.env
}

// Run executes the simulation.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info("Initializing simulation environment...")

	if err := s.setupEnvironment(); err != nil {
		return fmt.Errorf("failed to setup environment: %w", err)
	}
	defer s.teardown()

	s.logger.Info("Starting workload generator...")
	workloadCtx, cancel := context.WithCancel(ctx)
	s.stopWorkload = cancel
	s.workloadDone = make(chan struct{})
	go s.generateTraffic(workloadCtx)
	go s.report(workloadCtx)

	for _, scenario := range s.scenarios {
		if ctx.Err() != nil {
			break
		}

		s.logger.Info("--------------------------------------------------")
		s.logger.Info("Running Scenario", "name", scenario.Name())
		s.logger.Info("--------------------------------------------------")

		if err := scenario.Run(ctx, s.env); err != nil {
			s.logger.Error("Scenario failed", "error", err)
		} else {
			s.logger.Info("Scenario completed successfully")
		}
		sleep(ctx, 2*s.env.Step)
	}

	s.logger.Info("Stopping workload...")
	cancel()
	<-s.workloadDone

	// Verification runs even when the run deadline cut the scenarios short.
	return s.verify(context.WithoutCancel(ctx))
}

func (s *Simulation) setupEnvironment() error {
	settings := s.config.Settings
	step := settings.Simulation.Step

	st, err := s.newStore(settings.Queue)
	if err != nil {
		return err
	}

	server := workload.NewServer()
	transport := chaos.NewTransport(server)
	link := connectivity.NewLocal(true)
	tracker := workload.NewWriteTracker()
	collector := s.config.Metrics
	if collector == nil {
		collector = vmmetrics.New(vmmetrics.WithQueueName("simulation"))
	}

	opts := []offlineq.Option{
		offlineq.WithSettleDelay(settings.Queue.SettleDelay),
		offlineq.WithExecuteTimeout(settings.Queue.ExecuteTimeout),
		offlineq.WithMaxRetries(settings.Queue.MaxRetries),
		offlineq.WithConnectivityWatcher(link),
		offlineq.WithMetrics(collector),
		offlineq.WithReplayOptions(replay.WithOnDrop(func(op types.QueuedOperation, _ error) {
			if seq, ok := decodeSeq(op.Payload); ok {
				tracker.TrackDropped(seq)
			}
		})),
	}
	if s.config.QueueLogger != nil {
		opts = append(opts, offlineq.WithLogger(s.config.QueueLogger))
	}

	q, err := offlineq.New(st, transport, opts...)
	if err != nil {
		return err
	}
	s.cleanup = append(s.cleanup, func() { _ = q.Close() })
	if !q.Available() {
		return fmt.Errorf("queue store %q is unavailable", settings.Queue.Store)
	}

	s.env = &simtypes.Environment{
		Queue:   q,
		Chaos:   transport,
		Link:    link,
		Server:  server,
		Tracker: tracker,
		Metrics: collector,
		Logger:  s.logger,
		Step:    step,
	}

	return nil
}

func (s *Simulation) newStore(cfg config.QueueConfig) (types.Store, error) {
	switch cfg.Store {
	case "pebble":
		dir := cfg.Path
		if dir == "" {
			tmp, err := os.MkdirTemp("", "offlineq-sim-*")
			if err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
			s.cleanup = append(s.cleanup, func() { _ = os.RemoveAll(tmp) })
			dir = tmp
		}

		return store.NewPebble(dir), nil
	default:
		return store.NewMemory(), nil
	}
}

func (s *Simulation) teardown() {
	if s.stopWorkload != nil {
		s.stopWorkload()
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func (s *Simulation) generateTraffic(ctx context.Context) {
	defer close(s.workloadDone)

	ticker := time.NewTicker(max(s.env.Step/50, time.Millisecond))
	defer ticker.Stop()

	rejectEvery := uint64(s.config.Settings.Simulation.RejectEvery)

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			data := make([]byte, 64)
			if _, err := s.rng.Read(data); err != nil {
				s.logger.Error("Failed to generate random data", "error", err)
				continue
			}
			if rejectEvery > 0 && seq%rejectEvery == 0 {
				s.env.Server.Reject(seq)
				s.env.Tracker.TrackRejected(seq)
			}

			payload, _ := json.Marshal(workload.Payload{Seq: seq, Data: data})
			res, err := s.env.Queue.Do(ctx, types.Request{
				Target:  fmt.Sprintf("/records/%d", seq),
				Method:  types.MethodCreate,
				Payload: payload,
			})

			switch {
			case err == nil && res.Offline():
				s.env.Tracker.TrackQueued(seq)
			case err == nil:
				s.env.Tracker.TrackLive(seq)
			case errors.Is(err, context.Canceled):
				return
			default:
				s.env.Tracker.TrackFailed()
				if types.StatusOf(nil, err) != 422 {
					s.logger.Error("Write failed", "seq", seq, "error", err)
				}
			}
		}
	}
}

func (s *Simulation) report(ctx context.Context) {
	ticker := time.NewTicker(s.config.Settings.Simulation.ConsoleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, _ := s.env.Queue.Len(ctx)
			s.logger.Info("Progress",
				"accepted", s.env.Tracker.Count(),
				"queued", s.env.Tracker.QueuedCount(),
				"pending", pending,
				"dropped", s.env.Tracker.Dropped(),
				"failed", s.env.Tracker.Failed(),
				"transport_calls", s.env.Chaos.Calls(),
				"faults", s.env.Chaos.Faults(),
			)
		}
	}
}

func (s *Simulation) verify(ctx context.Context) error {
	s.logger.Info("Verifying simulation results...")

	// Reset chaos and reconnect so the final drain runs on a clean network.
	s.env.Chaos.Reset()
	if !s.env.Link.Reachable() {
		s.env.Link.SetReachable(true, "verification")
	} else if _, err := s.env.Queue.DrainAndReplay(ctx); err != nil && !errors.Is(err, types.ErrReplayInFlight) {
		return fmt.Errorf("final drain failed: %w", err)
	}

	s.logger.Info("Waiting for the queue to drain...")
	if err := WaitForEmpty(ctx, s.env, 30*s.env.Step); err != nil {
		pending, _ := s.env.Queue.Len(context.Background())
		return fmt.Errorf("queue did not drain: %d operations pending: %w", pending, err)
	}

	if err := s.env.Tracker.VerifyDelivery(s.env.Server); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if s.config.StrictOrder {
		if err := s.env.Tracker.VerifyOrder(s.env.Server); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	s.logger.Info("Verification passed!",
		"accepted", s.env.Tracker.Count(),
		"queued", s.env.Tracker.QueuedCount(),
		"dropped", s.env.Tracker.Dropped(),
	)

	return nil
}

// WaitForEmpty waits until the queue holds no operations and no drain runs.
func WaitForEmpty(ctx context.Context, env *simtypes.Environment, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(max(env.Step/10, time.Millisecond))
	defer ticker.Stop()

	for {
		if n, err := env.Queue.Len(ctx); err == nil && n == 0 && !env.Queue.Draining() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func decodeSeq(payload []byte) (uint64, bool) {
	var p workload.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0, false
	}

	return p.Seq, true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
