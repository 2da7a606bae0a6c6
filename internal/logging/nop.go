// Package logging holds the default logger and shared log field helpers.
package logging

import "github.com/salahkhalfi/offlineq/types"

// NopLogger discards every message. It is the default whenever no logger is
// configured, so components never check for nil.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNopLogger creates a new no-op logger.
//
// Returns:
//   - *NopLogger: A logger that discards all messages
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Debug(_ string, _ ...any) {}
func (l *NopLogger) Info(_ string, _ ...any)  {}
func (l *NopLogger) Warn(_ string, _ ...any)  {}
func (l *NopLogger) Error(_ string, _ ...any) {}
