package zaplog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	zaplog "github.com/salahkhalfi/offlineq/contrib/logging/zap"
)

func newObserved(t *testing.T, opts ...zaplog.Option) (*zaplog.Logger, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)

	return zaplog.New(zap.New(core), opts...), logs
}

func TestLoggerLevels(t *testing.T) {
	l, logs := newObserved(t)

	l.Debug("d", "id", 1)
	l.Info("i", "target", "/tickets")
	l.Warn("w")
	l.Error("e", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)

	assert.Equal(t, int64(1), entries[0].ContextMap()["id"])
	assert.Equal(t, "/tickets", entries[1].ContextMap()["target"])
}

func TestLoggerRedactsSensitiveKeys(t *testing.T) {
	l, logs := newObserved(t)

	kv := []any{"Authorization", "Bearer secret", "target", "/tickets"}
	l.Info("replaying", kv...)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "<redacted>", fields["Authorization"])
	assert.Equal(t, "/tickets", fields["target"])
	assert.Equal(t, "Bearer secret", kv[1], "caller slice must not be modified")
}

func TestLoggerCustomRedactedKeys(t *testing.T) {
	l, logs := newObserved(t, zaplog.WithRedactedKeys("X-Session"))

	l.Warn("w", "x-session", "abc", "authorization", "kept")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "<redacted>", fields["x-session"])
	assert.Equal(t, "kept", fields["authorization"])
}

func TestNewNilLogger(t *testing.T) {
	l := zaplog.New(nil)
	assert.NotPanics(t, func() {
		l.Info("ignored", "k", "v")
	})
}
