package types

import (
	"encoding/json"
	"net/http"
	"time"
)

// SyntheticStatus is the status reported by synthetic responses.
const SyntheticStatus = http.StatusAccepted

// PlaceholderPrefix prefixes the temporary ids handed out for queued creates.
const PlaceholderPrefix = "offline-"

// PlaceholderObjects lists the nested objects always present in a synthetic body.
//
// Each object carries the keys in PlaceholderKeys, so code that decodes the
// body into its usual response structs finds every commonly accessed field.
var PlaceholderObjects = []string{"data", "ticket", "message", "item"}

// PlaceholderKeys lists the keys present in every placeholder object.
var PlaceholderKeys = []string{"id", "title", "content", "status"}

// pendingStatus is the status value reported inside placeholder objects.
const pendingStatus = "pending_sync"

// SyntheticResponse is the locally fabricated success returned when an
// operation is queued instead of sent.
//
// It is the Offline variant of Result. Callers that need to distinguish it
// from a real reply type-switch on Result or check Offline().
type SyntheticResponse struct {
	// QueuedID is the store id assigned to the queued operation.
	QueuedID uint64

	// PlaceholderID is a temporary identifier usable as a client-side key
	// for the pending resource (e.g. "offline-4f1c…").
	PlaceholderID string

	// Target is the endpoint the operation will be replayed against.
	Target string

	// Method is the verb tag of the queued operation.
	Method Method

	// QueuedAt is when the operation was persisted.
	QueuedAt time.Time

	// Title and Content echo the matching top-level string fields of a JSON
	// object payload, when present.
	Title   string
	Content string
}

// Offline always returns true for synthetic responses.
func (s *SyntheticResponse) Offline() bool { return true }

// StatusCode returns SyntheticStatus.
func (s *SyntheticResponse) StatusCode() int { return SyntheticStatus }

func (s *SyntheticResponse) sealed() {}

// NewSyntheticResponse builds the synthetic response for a queued operation.
//
// Parameters:
//   - op: The operation as stored (ID assigned)
//   - placeholderID: Temporary client-side identifier
//
// Returns:
//   - *SyntheticResponse: The offline result
func NewSyntheticResponse(op QueuedOperation, placeholderID string) *SyntheticResponse {
	s := &SyntheticResponse{
		QueuedID:      op.ID,
		PlaceholderID: placeholderID,
		Target:        op.Target,
		Method:        op.Method,
		QueuedAt:      op.EnqueuedAt,
	}

	// Best effort: payloads are opaque, only JSON objects are inspected.
	var fields map[string]any
	if json.Unmarshal(op.Payload, &fields) == nil {
		if v, ok := fields["title"].(string); ok {
			s.Title = v
		}
		if v, ok := fields["content"].(string); ok {
			s.Content = v
		}
	}

	return s
}

// Body renders the synthetic response as a JSON document.
//
// The document always contains "offline": true, a top-level "id", and one
// object per PlaceholderObjects entry carrying every PlaceholderKeys key.
//
// Returns:
//   - []byte: JSON encoded body
func (s *SyntheticResponse) Body() []byte {
	doc := map[string]any{
		"offline":   true,
		"queued":    true,
		"queued_id": s.QueuedID,
		"id":        s.PlaceholderID,
		"target":    s.Target,
		"method":    string(s.Method),
		"queued_at": s.QueuedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, name := range PlaceholderObjects {
		doc[name] = map[string]any{
			"id":      s.PlaceholderID,
			"title":   s.Title,
			"content": s.Content,
			"status":  pendingStatus,
		}
	}

	// Only strings, numbers and nested maps of those: Marshal cannot fail.
	data, _ := json.Marshal(doc)

	return data
}
