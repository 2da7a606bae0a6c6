package types

// Logger is the structured logger used by every offlineq component.
//
// Messages are constant strings; variable data goes in alternating
// key/value pairs:
//
//	logger.Warn("replay attempt retained", "id", op.ID, "target", op.Target)
//
// Use contrib/logging/zap to plug in a zap.SugaredLogger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
