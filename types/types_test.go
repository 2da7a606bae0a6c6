package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")

	netErr := &TransportError{Target: "/api/tickets", Cause: cause}
	assert.Contains(t, netErr.Error(), "/api/tickets unreachable")
	assert.Contains(t, netErr.Error(), "connection refused")
	assert.True(t, errors.Is(netErr, cause))

	statusErr := &TransportError{Status: 404, Target: "/api/tickets/9"}
	assert.Contains(t, statusErr.Error(), "returned status 404")
}

func TestStoreError(t *testing.T) {
	cause := errors.New("permission denied")

	err := &StoreError{Backend: "pebble", Operation: "open", Unavailable: true, Cause: cause}
	assert.Contains(t, err.Error(), "pebble store open failed")
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))

	err = &StoreError{Backend: "sqlite", Operation: "append", Cause: cause}
	assert.False(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrStoreUnavailable", ErrStoreUnavailable, "store unavailable"},
		{"ErrStoreFull", ErrStoreFull, "store is full"},
		{"ErrStoreClosed", ErrStoreClosed, "store is closed"},
		{"ErrOperationNotFound", ErrOperationNotFound, "not found"},
		{"ErrReplayInFlight", ErrReplayInFlight, "drain in flight"},
		{"ErrQueueClosed", ErrQueueClosed, "queue is closed"},
		{"ErrNilStore", ErrNilStore, "store cannot be nil"},
		{"ErrNilTransport", ErrNilTransport, "transport cannot be nil"},
		{"ErrRetriesExhausted", ErrRetriesExhausted, "retry limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.msg)
			assert.Contains(t, tt.err.Error(), "offlineq:")
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		err  error
		want Outcome
	}{
		{"ok response", &Response{Status: 200}, nil, OutcomeSuccess},
		{"no content", &Response{Status: 204}, nil, OutcomeSuccess},
		{"nil response nil error", nil, nil, OutcomeSuccess},
		{"status-less transport", &Response{}, nil, OutcomeSuccess},
		{"bad request", nil, &TransportError{Status: 400}, OutcomeTerminal},
		{"forbidden", nil, &TransportError{Status: 403}, OutcomeTerminal},
		{"not found", nil, &TransportError{Status: 404}, OutcomeTerminal},
		{"unprocessable", nil, &TransportError{Status: 422}, OutcomeTerminal},
		{"request timeout", nil, &TransportError{Status: 408}, OutcomeTransient},
		{"too many requests", nil, &TransportError{Status: 429}, OutcomeTransient},
		{"server error", nil, &TransportError{Status: 503}, OutcomeTransient},
		{"network error", nil, &TransportError{Cause: errors.New("dial tcp: refused")}, OutcomeTransient},
		{"plain error", nil, errors.New("boom"), OutcomeTransient},
		{"deadline", nil, context.DeadlineExceeded, OutcomeTransient},
		{"4xx response without error", &Response{Status: 404}, nil, OutcomeTerminal},
		{"5xx response without error", &Response{Status: 500}, nil, OutcomeTransient},
		{"wrapped status error", nil, fmt.Errorf("call: %w", &TransportError{Status: 410}), OutcomeTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.resp, tt.err))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "terminal", OutcomeTerminal.String())
	assert.Equal(t, "transient", OutcomeTransient.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestMethodHTTPVerb(t *testing.T) {
	assert.Equal(t, "POST", MethodCreate.HTTPVerb())
	assert.Equal(t, "PUT", MethodUpdate.HTTPVerb())
	assert.Equal(t, "DELETE", MethodDelete.HTTPVerb())
	assert.Equal(t, "PATCH", Method("patch").HTTPVerb())
}

func TestNewQueuedOperationCopies(t *testing.T) {
	req := Request{
		Target:  "/api/tickets/1",
		Method:  MethodUpdate,
		Payload: []byte(`{"status":"closed"}`),
		Headers: map[string]string{"Authorization": "Bearer old"},
	}
	now := time.Unix(1700000000, 0)

	op := NewQueuedOperation(req, now)
	req.Payload[0] = 'X'
	req.Headers["Authorization"] = "changed"

	assert.Equal(t, `{"status":"closed"}`, string(op.Payload))
	assert.Equal(t, "Bearer old", op.Headers["Authorization"])
	assert.Equal(t, now, op.EnqueuedAt)
	assert.Zero(t, op.ID)

	back := op.Request()
	assert.Equal(t, op.Target, back.Target)
	assert.Equal(t, op.Method, back.Method)
	assert.Equal(t, op.Payload, back.Payload)
}

func TestSyntheticResponseShape(t *testing.T) {
	op := QueuedOperation{
		ID:         7,
		Target:     "/api/tickets",
		Method:     MethodCreate,
		Payload:    []byte(`{"title":"Broken pump","content":"Leaking since monday"}`),
		EnqueuedAt: time.Unix(1700000000, 0),
	}

	resp := NewSyntheticResponse(op, PlaceholderPrefix+"abc")

	var res Result = resp
	assert.True(t, res.Offline())
	assert.Equal(t, SyntheticStatus, res.StatusCode())
	assert.Equal(t, "Broken pump", resp.Title)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(resp.Body(), &doc))
	assert.Equal(t, true, doc["offline"])
	assert.Equal(t, "offline-abc", doc["id"])
	assert.EqualValues(t, 7, doc["queued_id"])

	for _, name := range PlaceholderObjects {
		obj, ok := doc[name].(map[string]any)
		require.True(t, ok, "placeholder object %q missing", name)
		for _, key := range PlaceholderKeys {
			_, ok := obj[key]
			assert.True(t, ok, "key %q missing in %q", key, name)
		}
		assert.Equal(t, "offline-abc", obj["id"])
		assert.Equal(t, "Broken pump", obj["title"])
	}
}

func TestSyntheticResponseOpaquePayload(t *testing.T) {
	op := QueuedOperation{ID: 1, Target: "/upload", Method: MethodCreate, Payload: []byte{0xff, 0x00, 0x13}}

	resp := NewSyntheticResponse(op, "offline-x")
	assert.Empty(t, resp.Title)
	assert.Empty(t, resp.Content)

	// Decoding into a typical caller struct never fails.
	var typed struct {
		Offline bool `json:"offline"`
		Ticket  struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &typed))
	assert.True(t, typed.Offline)
	assert.Equal(t, "offline-x", typed.Ticket.ID)
}

func TestResponseIsOnline(t *testing.T) {
	var res Result = &Response{Status: 201}
	assert.False(t, res.Offline())
	assert.Equal(t, 201, res.StatusCode())
}

func TestDrainSummary(t *testing.T) {
	var total DrainSummary
	total.Add(DrainSummary{Succeeded: 2, Retained: 1, Passes: 1})
	total.Add(DrainSummary{Succeeded: 1, Dropped: 1, Passes: 1})

	assert.Equal(t, 3, total.Succeeded)
	assert.Equal(t, 1, total.Dropped)
	assert.Equal(t, 1, total.Retained)
	assert.Equal(t, 2, total.Passes)
	assert.Equal(t, 5, total.Attempted())
	assert.Equal(t, "3 actions synced, 1 action failed and was discarded, 1 action still pending", total.Message())

	assert.Empty(t, DrainSummary{}.Message())
	assert.Equal(t, "2 actions failed and were discarded", DrainSummary{Dropped: 2}.Message())
}

func TestNotifierFunc(t *testing.T) {
	var got []Event
	n := NotifierFunc(func(e Event) { got = append(got, e) })

	n.Notify(Event{Kind: EventQueued, Target: "/a"})
	require.Len(t, got, 1)
	assert.Equal(t, EventQueued, got[0].Kind)
}
