// Package zaplog adapts go.uber.org/zap to the offlineq Logger interface.
//
//	logger, _ := zap.NewProduction()
//	q, _ := offlineq.New(store, transport,
//	    offlineq.WithLogger(zaplog.New(logger)),
//	)
//
// Values logged under sensitive keys (authorization, cookie, x-api-key by
// default) are replaced with "<redacted>" so replayed header snapshots never
// leak credentials into logs.
package zaplog

import (
	"strings"

	"go.uber.org/zap"

	"github.com/salahkhalfi/offlineq/types"
)

const redacted = "<redacted>"

// Option configures a Logger.
type Option func(*Logger)

// WithRedactedKeys replaces the set of keys whose values are redacted.
//
// Keys are matched case-insensitively.
//
// Parameters:
//   - keys: The keys to redact
//
// Returns:
//   - Option: A configuration option
func WithRedactedKeys(keys ...string) Option {
	return func(l *Logger) {
		l.sensitive = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			l.sensitive[strings.ToLower(k)] = struct{}{}
		}
	}
}

// Logger implements types.Logger on top of a *zap.SugaredLogger.
type Logger struct {
	sugar     *zap.SugaredLogger
	sensitive map[string]struct{}
}

var _ types.Logger = (*Logger)(nil)

// New wraps a zap logger.
//
// Parameters:
//   - logger: The zap logger; nil yields a no-op logger
//   - opts: Optional configuration options
//
// Returns:
//   - *Logger: A logger implementing types.Logger
func New(logger *zap.Logger, opts ...Option) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Logger{
		sugar: logger.Sugar(),
		sensitive: map[string]struct{}{
			"authorization": {},
			"cookie":        {},
			"x-api-key":     {},
		},
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, l.redact(keysAndValues)...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, l.redact(keysAndValues)...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, l.redact(keysAndValues)...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, l.redact(keysAndValues)...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) redact(kv []any) []any {
	var out []any
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if _, hit := l.sensitive[strings.ToLower(key)]; !hit {
			continue
		}
		if out == nil {
			out = append([]any(nil), kv...)
		}
		out[i+1] = redacted
	}
	if out == nil {
		return kv
	}

	return out
}
