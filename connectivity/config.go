package connectivity

import (
	"time"
)

// Status is the reachability document stored in NATS KV.
type Status struct {
	// Reachable reports whether the backend can be reached.
	Reachable bool `json:"reachable"`

	// Reason is a human-readable explanation.
	// Example: "API maintenance window"
	Reason string `json:"reason,omitempty"`
}

// WatcherConfig holds configuration for the NATS watcher.
type WatcherConfig struct {
	// Key is the NATS KV key holding the Status document.
	// Default: "offlineq.connectivity"
	Key string

	// PollInterval is the fallback polling interval if watch fails.
	// Default: 5 seconds
	PollInterval time.Duration

	// InitialFetchTimeout is the timeout for the initial KV fetch.
	// Default: 10 seconds
	InitialFetchTimeout time.Duration
}

// DefaultWatcherConfig returns a WatcherConfig with sensible defaults.
//
// Returns:
//   - WatcherConfig: Default configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Key:                 "offlineq.connectivity",
		PollInterval:        5 * time.Second,
		InitialFetchTimeout: 10 * time.Second,
	}
}

// WatcherOption configures the NATS watcher.
type WatcherOption func(*WatcherConfig)

// WithKey sets the NATS KV key to watch.
//
// Parameters:
//   - key: The key name (e.g., "mobile.api.reachability")
//
// Returns:
//   - WatcherOption: Configuration option
func WithKey(key string) WatcherOption {
	return func(c *WatcherConfig) {
		c.Key = key
	}
}

// WithPollInterval sets the fallback polling interval.
//
// If the NATS watch fails or disconnects, the watcher falls back to
// polling at this interval.
//
// Parameters:
//   - d: Polling interval duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithPollInterval(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.PollInterval = d
	}
}

// WithInitialFetchTimeout sets the timeout for the initial KV fetch.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithInitialFetchTimeout(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.InitialFetchTimeout = d
	}
}

// ProbeConfig holds configuration for the TCP probe.
type ProbeConfig struct {
	// Interval is the time between probes.
	// Default: 5 seconds
	Interval time.Duration

	// Timeout bounds each dial.
	// Default: 3 seconds
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failed probes before the
	// endpoint is reported unreachable.
	// Default: 2
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successful probes before
	// the endpoint is reported reachable again.
	// Default: 1
	SuccessThreshold int

	// Dial opens the probe connection.
	// Default: fasthttp.DialTimeout
	Dial DialFunc
}

// DefaultProbeConfig returns a ProbeConfig with sensible defaults.
//
// Returns:
//   - ProbeConfig: Default configuration
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Interval:         5 * time.Second,
		Timeout:          3 * time.Second,
		FailureThreshold: 2,
		SuccessThreshold: 1,
	}
}

// ProbeOption configures a Probe.
type ProbeOption func(*ProbeConfig)

// WithProbeInterval sets the time between probes.
func WithProbeInterval(d time.Duration) ProbeOption {
	return func(c *ProbeConfig) {
		c.Interval = d
	}
}

// WithProbeTimeout sets the dial timeout.
func WithProbeTimeout(d time.Duration) ProbeOption {
	return func(c *ProbeConfig) {
		c.Timeout = d
	}
}

// WithFailureThreshold sets how many consecutive failures mark the endpoint
// unreachable.
//
// Parameters:
//   - n: Consecutive failures (minimum 1)
//
// Returns:
//   - ProbeOption: Configuration option
func WithFailureThreshold(n int) ProbeOption {
	return func(c *ProbeConfig) {
		c.FailureThreshold = n
	}
}

// WithSuccessThreshold sets how many consecutive successes mark the endpoint
// reachable.
//
// Parameters:
//   - n: Consecutive successes (minimum 1)
//
// Returns:
//   - ProbeOption: Configuration option
func WithSuccessThreshold(n int) ProbeOption {
	return func(c *ProbeConfig) {
		c.SuccessThreshold = n
	}
}

// WithDialer replaces the dial function.
//
// Parameters:
//   - dial: The dial function
//
// Returns:
//   - ProbeOption: Configuration option
func WithDialer(dial DialFunc) ProbeOption {
	return func(c *ProbeConfig) {
		c.Dial = dial
	}
}
