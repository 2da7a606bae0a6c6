package offlineq

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/salahkhalfi/offlineq/connectivity"
	"github.com/salahkhalfi/offlineq/store"
	"github.com/salahkhalfi/offlineq/types"
)

// Store backends selectable from a config file.
const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
	BackendSQLite = "sqlite"
)

// FileConfig is the YAML form of a queue configuration.
//
// Example:
//
//	settle_delay: 2s
//	execute_timeout: 30s
//	max_retries: 10
//	store:
//	  backend: pebble
//	  path: /var/lib/myapp/queue
//	probe:
//	  address: api.example.com:443
//	  interval: 5s
type FileConfig struct {
	SettleDelay    *Duration   `yaml:"settle_delay"`
	ExecuteTimeout Duration    `yaml:"execute_timeout"`
	OpenTimeout    Duration    `yaml:"open_timeout"`
	MaxRetries     int         `yaml:"max_retries"`
	Store          StoreConfig `yaml:"store"`
	Probe          ProbeConfig `yaml:"probe"`
}

// StoreConfig selects and configures the persistent store.
type StoreConfig struct {
	// Backend is one of "memory", "pebble" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the pebble directory or the sqlite database file.
	Path string `yaml:"path"`

	// Table is the sqlite table name.
	Table string `yaml:"table"`

	// NoSync skips fsync on pebble appends.
	NoSync bool `yaml:"no_sync"`

	// Capacity bounds the memory store. Zero is unbounded.
	Capacity int `yaml:"capacity"`
}

// ProbeConfig configures a TCP reachability probe. An empty address disables
// it.
type ProbeConfig struct {
	Address          string   `yaml:"address"`
	Interval         Duration `yaml:"interval"`
	Timeout          Duration `yaml:"timeout"`
	FailureThreshold int      `yaml:"failure_threshold"`
	SuccessThreshold int      `yaml:"success_threshold"`
}

// Duration is a time.Duration that unmarshals from "2s" style strings or
// plain numbers of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}

	return fmt.Errorf("offlineq: invalid duration value %q", node.Value)
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// ParseFileConfig decodes a YAML configuration document.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - *FileConfig: The decoded configuration
//   - error: Decoding or validation error
func ParseFileConfig(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("offlineq: failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFileConfig reads and decodes a YAML configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("offlineq: failed to read config: %w", err)
	}

	return ParseFileConfig(data)
}

// Validate checks the configuration for invalid values.
func (c *FileConfig) Validate() error {
	var errs []error

	if c.SettleDelay != nil && *c.SettleDelay < 0 {
		errs = append(errs, errors.New("settle_delay must not be negative"))
	}
	if c.ExecuteTimeout < 0 {
		errs = append(errs, errors.New("execute_timeout must not be negative"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must not be negative"))
	}

	switch strings.ToLower(c.Store.Backend) {
	case "", BackendMemory:
	case BackendPebble, BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for backend %q", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("offlineq: invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// Options converts the file configuration into queue options.
//
// Only values present in the file are converted, so the result can be
// combined with code-level options.
//
// Returns:
//   - []Option: Queue options
func (c *FileConfig) Options() []Option {
	var opts []Option

	if c.SettleDelay != nil {
		opts = append(opts, WithSettleDelay(c.SettleDelay.Duration()))
	}
	if c.ExecuteTimeout > 0 {
		opts = append(opts, WithExecuteTimeout(c.ExecuteTimeout.Duration()))
	}
	if c.OpenTimeout > 0 {
		opts = append(opts, WithOpenTimeout(c.OpenTimeout.Duration()))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, WithMaxRetries(c.MaxRetries))
	}

	return opts
}

// NewStore builds the configured store. The store is not opened.
//
// Returns:
//   - types.Store: The store
//   - error: Error if the configuration is invalid
func (c *FileConfig) NewStore() (types.Store, error) {
	switch strings.ToLower(c.Store.Backend) {
	case "", BackendMemory:
		var opts []store.MemoryOption
		if c.Store.Capacity > 0 {
			opts = append(opts, store.WithMemoryCapacity(c.Store.Capacity))
		}

		return store.NewMemory(opts...), nil

	case BackendPebble:
		if c.Store.Path == "" {
			return nil, errors.New("offlineq: store.path is required for pebble")
		}

		return store.NewPebble(c.Store.Path, store.WithPebbleNoSync(c.Store.NoSync)), nil

	case BackendSQLite:
		if c.Store.Path == "" {
			return nil, errors.New("offlineq: store.path is required for sqlite")
		}
		var opts []store.SQLiteOption
		if c.Store.Table != "" {
			opts = append(opts, store.WithSQLiteTable(c.Store.Table))
		}

		return store.NewSQLite(c.Store.Path, opts...), nil

	default:
		return nil, fmt.Errorf("offlineq: unknown store backend %q", c.Store.Backend)
	}
}

// NewWatcher builds the configured probe, or returns nil when no probe
// address is set.
//
// The probe stops when the queue that watches it is closed.
//
// Returns:
//   - types.ConnectivityWatcher: The probe, or nil
//   - error: Error if the probe configuration is invalid
func (c *FileConfig) NewWatcher() (types.ConnectivityWatcher, error) {
	if c.Probe.Address == "" {
		return nil, nil //nolint:nilnil // no probe configured
	}

	var opts []connectivity.ProbeOption
	if c.Probe.Interval > 0 {
		opts = append(opts, connectivity.WithProbeInterval(c.Probe.Interval.Duration()))
	}
	if c.Probe.Timeout > 0 {
		opts = append(opts, connectivity.WithProbeTimeout(c.Probe.Timeout.Duration()))
	}
	if c.Probe.FailureThreshold > 0 {
		opts = append(opts, connectivity.WithFailureThreshold(c.Probe.FailureThreshold))
	}
	if c.Probe.SuccessThreshold > 0 {
		opts = append(opts, connectivity.WithSuccessThreshold(c.Probe.SuccessThreshold))
	}

	probe, err := connectivity.NewProbe(c.Probe.Address, opts...)
	if err != nil {
		return nil, err
	}

	return probe, nil
}
