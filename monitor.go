package offlineq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/salahkhalfi/offlineq/internal/logging"
	"github.com/salahkhalfi/offlineq/internal/metrics"
	"github.com/salahkhalfi/offlineq/internal/notify"
	"github.com/salahkhalfi/offlineq/types"
)

// stateReporter is implemented by watchers that know the current state
// before their first update, such as connectivity.Local.
type stateReporter interface {
	Reachable() bool
}

// DrainFunc runs one drain. Queue.DrainAndReplay satisfies it.
type DrainFunc func(ctx context.Context) (types.DrainSummary, error)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// SettleDelay is how long connectivity must stay up before a drain runs.
	SettleDelay time.Duration

	// Notifier receives online and offline events. If nil, events are
	// discarded.
	Notifier types.Notifier

	// Metrics records the reachability gauge. If nil, nothing is recorded.
	Metrics types.MetricsCollector

	// Logger is the structured logger. If nil, no logs are emitted.
	Logger types.Logger
}

// Monitor turns connectivity transitions into drains.
//
// Behavior:
//   - reachable: a drain is scheduled after the settle delay; another
//     reachable update restarts the delay
//   - unreachable: a pending drain is cancelled and nothing else happens to
//     the queue
//
// The watcher channel is consumed on its own goroutine and drains run on
// separate goroutines, so a slow drain never blocks connectivity updates.
type Monitor struct {
	watcher types.ConnectivityWatcher
	drain   DrainFunc
	config  MonitorConfig

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	reachable bool
	known     bool
	started   bool
	stopped   bool

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	drains   sync.WaitGroup
}

// NewMonitor creates a monitor. Call Start to begin consuming updates.
//
// Parameters:
//   - watcher: The connectivity source
//   - drain: Called once connectivity has settled
//   - config: Monitor configuration
//
// Returns:
//   - *Monitor: A new monitor
func NewMonitor(watcher types.ConnectivityWatcher, drain DrainFunc, config MonitorConfig) *Monitor {
	if config.Notifier == nil {
		config.Notifier = notify.NewNopNotifier()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNopMetrics()
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}
	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}

	return &Monitor{
		watcher:  watcher,
		drain:    drain,
		config:   config,
		loopDone: make(chan struct{}),
	}
}

// Start begins consuming connectivity updates. Calling it more than once has
// no effect. When the watcher reports itself reachable at start, a drain is
// scheduled after the settle delay.
//
// Parameters:
//   - ctx: Cancelling ctx stops the monitor like Stop
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.stopped {
		return
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)

	if s, ok := m.watcher.(stateReporter); ok {
		m.known = true
		m.reachable = s.Reachable()
		if m.reachable {
			// Records left by a previous process drain without waiting for
			// a transition.
			m.schedule()
		}
	}

	updates := m.watcher.Watch(m.ctx)
	go m.run(updates)
}

// Stop stops consuming updates, cancels a pending drain and waits for
// running drains to return.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	m.mu.Unlock()

	if !started {
		return
	}

	m.cancel()
	<-m.loopDone
	m.drains.Wait()
}

// Reachable reports the last connectivity state. Before the first update it
// reports the watcher's own Reachable() when it has one, and true otherwise.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.known || m.reachable
}

// DrainPending reports whether a drain is waiting for the settle delay.
func (m *Monitor) DrainPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.timer != nil
}

func (m *Monitor) run(updates <-chan types.ConnectivityUpdate) {
	defer close(m.loopDone)

	for {
		select {
		case <-m.ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			m.handle(u)
		}
	}
}

func (m *Monitor) handle(u types.ConnectivityUpdate) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}

	// The first update only announces itself when it reports an outage.
	changed := (m.known && m.reachable != u.Reachable) || (!m.known && !u.Reachable)
	m.known = true
	m.reachable = u.Reachable

	if u.Reachable {
		m.schedule()
	} else {
		m.gen++
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
	}
	m.mu.Unlock()

	m.config.Metrics.SetReachable(u.Reachable)

	if u.Reachable {
		m.config.Logger.Debug("connectivity up, drain scheduled",
			"settle_delay", m.config.SettleDelay.String(),
			"reason", u.Reason,
		)
	} else {
		m.config.Logger.Info("connectivity lost", "reason", u.Reason)
	}

	if !changed {
		return
	}

	kind := types.EventOffline
	if u.Reachable {
		kind = types.EventOnline
	}
	m.config.Notifier.Notify(types.Event{Kind: kind, Reason: u.Reason})
}

// schedule replaces any pending drain with one after the settle delay.
// Callers hold m.mu.
func (m *Monitor) schedule() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
	}
	gen := m.gen
	m.timer = time.AfterFunc(m.config.SettleDelay, func() {
		m.fire(gen)
	})
}

// fire runs the drain scheduled by generation gen unless it was superseded.
func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || !m.reachable {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.drains.Add(1)
	m.mu.Unlock()

	defer m.drains.Done()

	summary, err := m.drain(m.ctx)
	switch {
	case err == nil:
		m.config.Logger.Debug("drain after reconnect complete",
			"succeeded", summary.Succeeded,
			"dropped", summary.Dropped,
			"retained", summary.Retained,
		)
	case errors.Is(err, types.ErrReplayInFlight),
		errors.Is(err, types.ErrStoreUnavailable),
		errors.Is(err, types.ErrQueueClosed),
		errors.Is(err, context.Canceled):
		m.config.Logger.Debug("drain after reconnect skipped", "error", err.Error())
	default:
		m.config.Logger.Error("drain after reconnect failed", "error", err.Error())
	}
}
