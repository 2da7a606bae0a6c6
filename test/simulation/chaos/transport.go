package chaos

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/salahkhalfi/offlineq/types"
)

// ErrInjected is the cause of network failures injected by Transport.
var ErrInjected = errors.New("chaos: injected network failure")

// TransportConfig holds the chaos configuration for a transport.
type TransportConfig struct {
	LatencyFunc func() time.Duration // Return 0 for no delay
	StatusFunc  func() int           // Return 0 to let the call through
	DropRate    float64              // 0.0-1.0 probability of a network failure
	Partitioned bool                 // Every call fails without a response
}

// Transport wraps a types.Transport to inject chaos.
type Transport struct {
	wrapped types.Transport
	config  atomic.Pointer[TransportConfig]
	calls   atomic.Int64
	faults  atomic.Int64
}

var _ types.Transport = (*Transport)(nil)

// NewTransport creates a chaos transport wrapping the provided transport.
func NewTransport(wrapped types.Transport) *Transport {
	return &Transport{wrapped: wrapped}
}

// SetConfig replaces the chaos configuration.
func (t *Transport) SetConfig(cfg TransportConfig) {
	t.config.Store(&cfg)
}

// Config returns a copy of the current configuration.
func (t *Transport) Config() TransportConfig {
	if cfg := t.config.Load(); cfg != nil {
		return *cfg
	}

	return TransportConfig{}
}

// SetPartitioned cuts or restores the network.
func (t *Transport) SetPartitioned(partitioned bool) {
	cfg := t.Config()
	cfg.Partitioned = partitioned
	t.SetConfig(cfg)
}

// SetLatency sets a fixed latency for every call. Zero removes it.
func (t *Transport) SetLatency(d time.Duration) {
	cfg := t.Config()
	cfg.LatencyFunc = nil
	if d > 0 {
		cfg.LatencyFunc = func() time.Duration { return d }
	}
	t.SetConfig(cfg)
}

// SetDropRate sets the probability of an injected network failure.
func (t *Transport) SetDropRate(rate float64) {
	cfg := t.Config()
	cfg.DropRate = rate
	t.SetConfig(cfg)
}

// SetServerErrorRate makes the given fraction of calls answer 503.
func (t *Transport) SetServerErrorRate(rate float64) {
	cfg := t.Config()
	cfg.StatusFunc = nil
	if rate > 0 {
		cfg.StatusFunc = func() int {
			if chance(rate) {
				return 503
			}

			return 0
		}
	}
	t.SetConfig(cfg)
}

// Reset clears all injected chaos.
func (t *Transport) Reset() {
	t.SetConfig(TransportConfig{})
}

// Calls returns the number of calls made through the transport.
func (t *Transport) Calls() int64 { return t.calls.Load() }

// Faults returns the number of injected failures.
func (t *Transport) Faults() int64 { return t.faults.Load() }

// Perform applies the configured chaos, then delegates.
func (t *Transport) Perform(ctx context.Context, req types.Request) (*types.Response, error) {
	t.calls.Add(1)

	cfg := t.config.Load()
	if cfg == nil {
		return t.wrapped.Perform(ctx, req)
	}

	if cfg.LatencyFunc != nil {
		if d := cfg.LatencyFunc(); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				t.faults.Add(1)

				return nil, &types.TransportError{Target: req.Target, Cause: ctx.Err()}
			case <-timer.C:
			}
		}
	}

	if cfg.Partitioned || (cfg.DropRate > 0 && chance(cfg.DropRate)) {
		t.faults.Add(1)

		return nil, &types.TransportError{Target: req.Target, Cause: ErrInjected}
	}

	if cfg.StatusFunc != nil {
		if status := cfg.StatusFunc(); status != 0 {
			t.faults.Add(1)

			return nil, &types.TransportError{Status: status, Target: req.Target}
		}
	}

	return t.wrapped.Perform(ctx, req)
}

func chance(p float64) bool {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return false
	}

	return float64(n.Int64())/1000000.0 < p
}
