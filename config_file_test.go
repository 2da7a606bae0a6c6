package offlineq

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salahkhalfi/offlineq/connectivity"
	"github.com/salahkhalfi/offlineq/store"
)

const fullConfig = `
settle_delay: 500ms
execute_timeout: 15s
open_timeout: 1.5
max_retries: 7
store:
  backend: sqlite
  path: /tmp/queue.db
  table: outbox
probe:
  address: api.example.com:443
  interval: 10s
  timeout: 2s
  failure_threshold: 3
`

func TestParseFileConfig(t *testing.T) {
	cfg, err := ParseFileConfig([]byte(fullConfig))
	require.NoError(t, err)

	require.NotNil(t, cfg.SettleDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay.Duration())
	assert.Equal(t, 15*time.Second, cfg.ExecuteTimeout.Duration())
	assert.Equal(t, 1500*time.Millisecond, cfg.OpenTimeout.Duration())
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "outbox", cfg.Store.Table)
	assert.Equal(t, "api.example.com:443", cfg.Probe.Address)
	assert.Equal(t, 3, cfg.Probe.FailureThreshold)
}

func TestFileConfigOptions(t *testing.T) {
	cfg, err := ParseFileConfig([]byte(fullConfig))
	require.NoError(t, err)

	qc := DefaultConfig()
	for _, opt := range cfg.Options() {
		opt(qc)
	}

	assert.Equal(t, 500*time.Millisecond, qc.SettleDelay)
	assert.Equal(t, 15*time.Second, qc.ExecuteTimeout)
	assert.Equal(t, 1500*time.Millisecond, qc.OpenTimeout)
	assert.Equal(t, 7, qc.MaxRetries)
}

func TestFileConfigEmptyKeepsDefaults(t *testing.T) {
	cfg, err := ParseFileConfig([]byte("{}"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Options())

	st, err := cfg.NewStore()
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, st)

	w, err := cfg.NewWatcher()
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestFileConfigZeroSettleDelay(t *testing.T) {
	cfg, err := ParseFileConfig([]byte("settle_delay: 0s\n"))
	require.NoError(t, err)

	qc := DefaultConfig()
	for _, opt := range cfg.Options() {
		opt(qc)
	}
	assert.Zero(t, qc.SettleDelay)
}

func TestFileConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown backend": "store:\n  backend: redis\n",
		"missing path":    "store:\n  backend: pebble\n",
		"bad duration":    "execute_timeout: soon\n",
		"negative":        "max_retries: -1\n",
		"not yaml":        "settle_delay: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFileConfig([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestFileConfigNewStore(t *testing.T) {
	dir := t.TempDir()

	cfg := &FileConfig{Store: StoreConfig{Backend: BackendPebble, Path: filepath.Join(dir, "pebble"), NoSync: true}}
	st, err := cfg.NewStore()
	require.NoError(t, err)
	assert.IsType(t, &store.Pebble{}, st)

	cfg = &FileConfig{Store: StoreConfig{Backend: BackendSQLite, Path: filepath.Join(dir, "q.db")}}
	st, err = cfg.NewStore()
	require.NoError(t, err)
	assert.IsType(t, &store.SQLite{}, st)

	require.NoError(t, st.Open(t.Context()))
	require.NoError(t, st.Close())

	cfg = &FileConfig{Store: StoreConfig{Backend: BackendMemory, Capacity: 1}}
	st, err = cfg.NewStore()
	require.NoError(t, err)
	require.NoError(t, st.Open(t.Context()))
	_, err = st.Append(t.Context(), createQueued("/a"))
	require.NoError(t, err)
	_, err = st.Append(t.Context(), createQueued("/b"))
	require.Error(t, err)
}

func TestFileConfigNewWatcher(t *testing.T) {
	cfg, err := ParseFileConfig([]byte(fullConfig))
	require.NoError(t, err)

	w, err := cfg.NewWatcher()
	require.NoError(t, err)

	probe, ok := w.(*connectivity.Probe)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, probe.Config().Interval)
	assert.Equal(t, 2*time.Second, probe.Config().Timeout)
	assert.Equal(t, 3, probe.Config().FailureThreshold)
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offlineq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 3\n"), 0o600))

	cfg, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRetries)

	_, err = LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func createQueued(target string) QueuedOperation {
	return QueuedOperation{Target: target, Method: MethodCreate, EnqueuedAt: time.Now()}
}
