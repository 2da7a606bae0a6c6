package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salahkhalfi/offlineq/types"
)

// ErrNetworkDown is the cause carried by NetworkDown replies.
var ErrNetworkDown = errors.New("testutil: network down")

// Reply is one scripted transport outcome.
type Reply struct {
	// Status is the response status. Zero with a nil Err means a network
	// failure with no response.
	Status int

	// Body is returned with successful responses.
	Body []byte

	// Err, when set, is returned as-is.
	Err error

	// Delay holds the reply back; a cancelled context ends the wait early.
	Delay time.Duration
}

// OK returns a 200 reply.
func OK() Reply { return Reply{Status: 200} }

// Status returns a reply with the given status code.
func Status(code int) Reply { return Reply{Status: code} }

// NetworkDown returns a reply that fails without a response.
func NetworkDown() Reply { return Reply{} }

// Fail returns a reply that fails with err.
func Fail(err error) Reply { return Reply{Err: err} }

// FakeTransport is a scripted types.Transport.
//
// Replies are consumed per target in the order scripted; once a target's
// script is exhausted the default reply is used (200 unless changed).
type FakeTransport struct {
	mu       sync.Mutex
	scripts  map[string][]Reply
	fallback Reply
	calls    []types.Request

	// OnPerform, when set, replaces scripted behavior entirely.
	OnPerform func(ctx context.Context, req types.Request) (*types.Response, error)
}

// Compile-time assertion that FakeTransport implements types.Transport.
var _ types.Transport = (*FakeTransport)(nil)

// NewFakeTransport creates a transport that answers 200 to everything.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		scripts:  make(map[string][]Reply),
		fallback: OK(),
	}
}

// Script appends replies for target.
func (f *FakeTransport) Script(target string, replies ...Reply) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scripts[target] = append(f.scripts[target], replies...)

	return f
}

// SetDefault sets the reply used once a target's script is exhausted.
func (f *FakeTransport) SetDefault(r Reply) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fallback = r

	return f
}

// Perform records req and answers with the next scripted reply.
func (f *FakeTransport) Perform(ctx context.Context, req types.Request) (*types.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	hook := f.OnPerform
	reply := f.fallback
	if script := f.scripts[req.Target]; len(script) > 0 {
		reply = script[0]
		f.scripts[req.Target] = script[1:]
	}
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, req)
	}

	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, &types.TransportError{Target: req.Target, Cause: ctx.Err()}
		case <-timer.C:
		}
	}

	switch {
	case reply.Err != nil:
		return nil, reply.Err
	case reply.Status == 0:
		return nil, &types.TransportError{Target: req.Target, Cause: ErrNetworkDown}
	case reply.Status >= 400:
		return nil, &types.TransportError{Status: reply.Status, Target: req.Target}
	default:
		return &types.Response{Status: reply.Status, Body: reply.Body}, nil
	}
}

// Calls returns every request performed so far.
func (f *FakeTransport) Calls() []types.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]types.Request, len(f.calls))
	copy(out, f.calls)

	return out
}

// Targets returns the target of every request performed so far, in order.
func (f *FakeTransport) Targets() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Target
	}

	return out
}

// CountingStore wraps a types.Store, counting calls and allowing failures to
// be injected.
type CountingStore struct {
	types.Store

	ListCalls      atomic.Int64
	AppendCalls    atomic.Int64
	RemoveCalls    atomic.Int64
	IncrementCalls atomic.Int64

	// OnList runs before each ListAll reaches the wrapped store.
	OnList func(ctx context.Context)

	mu        sync.Mutex
	openErr   error
	appendErr error
}

// Compile-time assertion that CountingStore implements types.Store.
var _ types.Store = (*CountingStore)(nil)

// NewCountingStore wraps inner.
func NewCountingStore(inner types.Store) *CountingStore {
	return &CountingStore{Store: inner}
}

// FailOpen makes Open fail with an unavailable-store error wrapping cause.
func (s *CountingStore) FailOpen(cause error) *CountingStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openErr = cause

	return s
}

// FailAppend makes Append fail with err. A nil err restores normal appends.
func (s *CountingStore) FailAppend(err error) *CountingStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendErr = err

	return s
}

// Open opens the wrapped store unless a failure was injected.
func (s *CountingStore) Open(ctx context.Context) error {
	s.mu.Lock()
	err := s.openErr
	s.mu.Unlock()

	if err != nil {
		return &types.StoreError{Backend: "counting", Operation: "open", Unavailable: true, Cause: err}
	}

	return s.Store.Open(ctx)
}

// Append counts the call and delegates unless a failure was injected.
func (s *CountingStore) Append(ctx context.Context, op types.QueuedOperation) (uint64, error) {
	s.AppendCalls.Add(1)

	s.mu.Lock()
	err := s.appendErr
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	return s.Store.Append(ctx, op)
}

// ListAll counts the call, runs OnList, and delegates.
func (s *CountingStore) ListAll(ctx context.Context) ([]types.QueuedOperation, error) {
	s.ListCalls.Add(1)
	if s.OnList != nil {
		s.OnList(ctx)
	}

	return s.Store.ListAll(ctx)
}

// Remove counts the call and delegates.
func (s *CountingStore) Remove(ctx context.Context, id uint64) error {
	s.RemoveCalls.Add(1)

	return s.Store.Remove(ctx, id)
}

// IncrementRetry counts the call and delegates.
func (s *CountingStore) IncrementRetry(ctx context.Context, id uint64) (int, error) {
	s.IncrementCalls.Add(1)

	return s.Store.IncrementRetry(ctx, id)
}

// RecordingNotifier keeps every event it receives.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []types.Event
}

// Compile-time assertion that RecordingNotifier implements types.Notifier.
var _ types.Notifier = (*RecordingNotifier)(nil)

// NewRecordingNotifier creates an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// Notify records event.
func (n *RecordingNotifier) Notify(event types.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, event)
}

// Events returns all recorded events.
func (n *RecordingNotifier) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]types.Event, len(n.events))
	copy(out, n.events)

	return out
}

// OfKind returns recorded events of the given kind.
func (n *RecordingNotifier) OfKind(kind types.EventKind) []types.Event {
	var out []types.Event
	for _, e := range n.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

// Reset discards all recorded events.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = nil
}
