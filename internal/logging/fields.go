package logging

import "github.com/salahkhalfi/offlineq/types"

// OpFields returns the key/value pairs identifying a queued operation,
// followed by kv.
//
// Header values are never included; they may carry credentials.
func OpFields(op types.QueuedOperation, kv ...any) []any {
	fields := make([]any, 0, 8+len(kv))
	fields = append(fields,
		"id", op.ID,
		"target", op.Target,
		"method", op.Method.String(),
		"retry_count", op.RetryCount,
	)

	return append(fields, kv...)
}

// ErrField returns the error message, or "" for a nil error.
func ErrField(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
