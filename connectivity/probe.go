package connectivity

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/salahkhalfi/offlineq/types"
)

// DialFunc opens a connection to addr within timeout.
type DialFunc func(addr string, timeout time.Duration) (net.Conn, error)

// Probe reports reachability of a TCP endpoint by dialing it periodically.
//
// The first probe result is always emitted. Afterwards a transition is
// reported only once FailureThreshold consecutive failures (or
// SuccessThreshold consecutive successes) have been observed, which keeps a
// single dropped packet from flapping the queue offline.
type Probe struct {
	addr   string
	config ProbeConfig
	em     *emitter

	mu        sync.Mutex
	failures  int
	successes int
	lastErr   error
}

var _ types.ConnectivityWatcher = (*Probe)(nil)

// NewProbe creates a probe for addr.
//
// Parameters:
//   - addr: host:port to dial (e.g. "api.example.com:443")
//   - opts: Optional configuration options
//
// Returns:
//   - *Probe: A new probe
//   - error: Error if addr is empty
func NewProbe(addr string, opts ...ProbeOption) (*Probe, error) {
	if addr == "" {
		return nil, errors.New("offlineq/connectivity: probe address is empty")
	}

	config := DefaultProbeConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Dial == nil {
		config.Dial = fasthttp.DialTimeout
	}
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}

	return &Probe{addr: addr, config: config, em: newEmitter()}, nil
}

// Watch starts probing and returns the transition channel.
//
// Multiple calls to Watch return the same channel; only the first call's
// context controls the probe lifecycle.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan types.ConnectivityUpdate: Channel of transitions
func (p *Probe) Watch(ctx context.Context) <-chan types.ConnectivityUpdate {
	if p.em.start() {
		go p.probeLoop(ctx)
	}

	return p.em.updates
}

// Close stops probing and closes the update channel.
//
// Close is safe to call multiple times.
func (p *Probe) Close() error {
	p.em.close()

	return nil
}

// Config returns the probe configuration.
func (p *Probe) Config() ProbeConfig {
	return p.config
}

// LastError returns the error of the most recent failed probe, or nil after a
// successful one.
func (p *Probe) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastErr
}

func (p *Probe) probeLoop(ctx context.Context) {
	defer p.em.closeUpdates()

	p.probeOnce()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.em.done:
			return
		case <-ticker.C:
			p.probeOnce()
		}
	}
}

// probeOnce dials the endpoint and applies the thresholds.
func (p *Probe) probeOnce() {
	conn, err := p.config.Dial(p.addr, p.config.Timeout)
	if err == nil {
		_ = conn.Close()
	}

	p.mu.Lock()
	p.lastErr = err
	if err == nil {
		p.successes++
		p.failures = 0
	} else {
		p.failures++
		p.successes = 0
	}
	successes, failures := p.successes, p.failures
	p.mu.Unlock()

	current, known := p.em.state()
	switch {
	case !known:
		if err == nil {
			p.em.emit(true, "probe succeeded")
		} else {
			p.em.emit(false, "probe failed: "+err.Error())
		}
	case current && failures >= p.config.FailureThreshold:
		p.em.emit(false, "probe failed: "+err.Error())
	case !current && successes >= p.config.SuccessThreshold:
		p.em.emit(true, "probe succeeded")
	}
}
