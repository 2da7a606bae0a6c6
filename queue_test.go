package offlineq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salahkhalfi/offlineq/replay"
	"github.com/salahkhalfi/offlineq/store"
	"github.com/salahkhalfi/offlineq/test/testutil"
	"github.com/salahkhalfi/offlineq/types"
)

type queueFixture struct {
	queue     *Queue
	store     *testutil.CountingStore
	transport *testutil.FakeTransport
	notifier  *testutil.RecordingNotifier
	metrics   *testutil.TestMetricsCollector
}

func newQueueFixture(t *testing.T, st types.Store, opts ...Option) *queueFixture {
	t.Helper()

	f := &queueFixture{
		store:     testutil.NewCountingStore(st),
		transport: testutil.NewFakeTransport(),
		notifier:  testutil.NewRecordingNotifier(),
		metrics:   testutil.NewTestMetricsCollector(),
	}

	opts = append([]Option{
		WithNotifier(f.notifier),
		WithMetrics(f.metrics),
		WithExecuteTimeout(time.Second),
	}, opts...)

	q, err := New(f.store, f.transport, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = q.Close()
	})
	f.queue = q

	return f
}

func createTicket(target string) types.Request {
	return types.Request{
		Target:  target,
		Method:  types.MethodCreate,
		Payload: []byte(`{"title":"printer jam","content":"floor 3"}`),
		Headers: map[string]string{"Authorization": "Bearer old"},
	}
}

func TestNewNilArguments(t *testing.T) {
	_, err := New(nil, testutil.NewFakeTransport())
	require.ErrorIs(t, err, types.ErrNilStore)

	_, err = New(store.NewMemory(), nil)
	require.ErrorIs(t, err, types.ErrNilTransport)
}

func TestQueueDoSuccess(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())

	res, err := f.queue.Do(t.Context(), createTicket("/api/tickets"))
	require.NoError(t, err)
	require.False(t, res.Offline())
	assert.Equal(t, 200, res.StatusCode())

	_, ok := res.(*types.Response)
	assert.True(t, ok)

	n, err := f.queue.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.notifier.Events())
}

func TestQueueDoTerminalIsNotQueued(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())
	f.transport.Script("/api/tickets/9", testutil.Status(404))

	res, err := f.queue.Do(t.Context(), types.Request{Target: "/api/tickets/9", Method: types.MethodDelete})
	require.Error(t, err)
	assert.Nil(t, res)

	var te *types.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 404, te.Status)

	assert.Zero(t, f.store.AppendCalls.Load())
	assert.Empty(t, f.notifier.Events())
}

func TestQueueDoTransientQueues(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	f := newQueueFixture(t, store.NewMemory(),
		WithClock(func() time.Time { return now }),
		WithPlaceholderGenerator(func() string { return "offline-test" }),
	)
	f.transport.Script("/api/tickets", testutil.NetworkDown())

	res, err := f.queue.Do(t.Context(), createTicket("/api/tickets"))
	require.NoError(t, err)
	require.True(t, res.Offline())
	assert.Equal(t, types.SyntheticStatus, res.StatusCode())

	synthetic, ok := res.(*types.SyntheticResponse)
	require.True(t, ok)
	assert.Equal(t, uint64(1), synthetic.QueuedID)
	assert.Equal(t, "offline-test", synthetic.PlaceholderID)
	assert.Equal(t, now, synthetic.QueuedAt)
	assert.Equal(t, "printer jam", synthetic.Title)

	var body map[string]any
	require.NoError(t, json.Unmarshal(synthetic.Body(), &body))
	assert.Equal(t, true, body["offline"])
	assert.Equal(t, "offline-test", body["id"])

	pending, err := f.queue.Pending(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/api/tickets", pending[0].Target)
	assert.Equal(t, types.MethodCreate, pending[0].Method)
	assert.Equal(t, "Bearer old", pending[0].Headers["Authorization"])
	assert.Zero(t, pending[0].RetryCount)

	queued := f.notifier.OfKind(types.EventQueued)
	require.Len(t, queued, 1)
	assert.Equal(t, "/api/tickets", queued[0].Target)
	assert.Equal(t, uint64(1), queued[0].QueuedID)

	assert.Equal(t, int64(1), f.metrics.Enqueued.Load())
	assert.Equal(t, 1, f.metrics.QueueDepth())
}

func TestQueueDefaultPlaceholder(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())

	s, err := f.queue.Enqueue(t.Context(), createTicket("/api/messages"), testutil.ErrNetworkDown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.PlaceholderID, types.PlaceholderPrefix))
	assert.Greater(t, len(s.PlaceholderID), len(types.PlaceholderPrefix))
}

func TestQueueDoServerErrorQueues(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())
	f.transport.Script("/api/tickets", testutil.Status(503))

	res, err := f.queue.Do(t.Context(), createTicket("/api/tickets"))
	require.NoError(t, err)
	assert.True(t, res.Offline())
}

func TestQueueDoCallerCancelled(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())
	f.transport.Script("/api/tickets", testutil.Reply{Status: 200, Delay: time.Minute})

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := f.queue.Do(ctx, createTicket("/api/tickets"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Zero(t, f.store.AppendCalls.Load())
}

func TestQueueDoExecuteTimeoutQueues(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory(), WithExecuteTimeout(20*time.Millisecond))
	f.transport.Script("/api/tickets", testutil.Reply{Status: 200, Delay: time.Minute})

	res, err := f.queue.Do(t.Context(), createTicket("/api/tickets"))
	require.NoError(t, err)
	assert.True(t, res.Offline())
}

// Scenario: every queued operation replays in order once the network is back.
func TestQueueDrainReplaysInOrder(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())

	targets := []string{"/api/tickets", "/api/tickets/1/messages", "/api/tickets/1"}
	for _, target := range targets {
		f.transport.Script(target, testutil.NetworkDown())
		res, err := f.queue.Do(t.Context(), createTicket(target))
		require.NoError(t, err)
		require.True(t, res.Offline())
	}
	require.Equal(t, 3, f.metrics.QueueDepth())

	summary, err := f.queue.DrainAndReplay(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Zero(t, summary.Dropped)
	assert.Zero(t, summary.Retained)

	// First three calls were the failed live attempts.
	assert.Equal(t, targets, f.transport.Targets()[3:])

	n, err := f.queue.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0, f.metrics.QueueDepth())

	summaries := f.notifier.OfKind(types.EventReplaySummary)
	require.Len(t, summaries, 1)
	assert.Equal(t, 3, summaries[0].Summary.Succeeded)
	assert.Equal(t, "3 actions synced", summaries[0].Reason)
}

func TestQueueDrainMixedOutcomes(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())

	for _, target := range []string{"/a", "/b", "/c"} {
		_, err := f.queue.Enqueue(t.Context(), createTicket(target), testutil.ErrNetworkDown)
		require.NoError(t, err)
	}
	f.transport.Script("/b", testutil.Status(404))
	f.transport.Script("/c", testutil.NetworkDown())

	summary, err := f.queue.DrainAndReplay(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Dropped)
	assert.Equal(t, 1, summary.Retained)

	pending, err := f.queue.Pending(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/c", pending[0].Target)
	assert.Equal(t, 1, pending[0].RetryCount)

	dropped := f.notifier.OfKind(types.EventReplayItemDropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, "/b", dropped[0].Target)
	assert.Equal(t, 404, dropped[0].Status)
}

func TestQueueHeaderResolver(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory(),
		WithHeaderResolver(func(_ context.Context, op types.QueuedOperation) (map[string]string, error) {
			h := map[string]string{}
			for k, v := range op.Headers {
				h[k] = v
			}
			h["Authorization"] = "Bearer fresh"

			return h, nil
		}),
	)

	_, err := f.queue.Enqueue(t.Context(), createTicket("/api/tickets"), testutil.ErrNetworkDown)
	require.NoError(t, err)

	_, err = f.queue.DrainAndReplay(t.Context())
	require.NoError(t, err)

	calls := f.transport.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer fresh", calls[0].Headers["Authorization"])
}

func TestQueueMaxRetries(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory(), WithMaxRetries(2))
	f.transport.SetDefault(testutil.NetworkDown())

	_, err := f.queue.Enqueue(t.Context(), createTicket("/api/tickets"), testutil.ErrNetworkDown)
	require.NoError(t, err)

	summary, err := f.queue.DrainAndReplay(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retained)

	summary, err = f.queue.DrainAndReplay(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Dropped)

	n, err := f.queue.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueReplayOptions(t *testing.T) {
	var dropped []string
	f := newQueueFixture(t, store.NewMemory(),
		WithReplayOptions(replay.WithOnDrop(func(op types.QueuedOperation, _ error) {
			dropped = append(dropped, op.Target)
		})),
	)
	f.transport.Script("/gone", testutil.Status(410))

	_, err := f.queue.Enqueue(t.Context(), createTicket("/gone"), testutil.ErrNetworkDown)
	require.NoError(t, err)

	_, err = f.queue.DrainAndReplay(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"/gone"}, dropped)
}

// Scenario: the store cannot be opened, so failures reach the caller
// unchanged and nothing crashes.
func TestQueuePassThroughMode(t *testing.T) {
	st := testutil.NewCountingStore(store.NewMemory()).FailOpen(errors.New("disk quota exceeded"))
	f := newQueueFixture(t, st)

	assert.False(t, f.queue.Available())

	f.transport.Script("/api/tickets", testutil.NetworkDown())
	res, err := f.queue.Do(t.Context(), createTicket("/api/tickets"))
	require.ErrorIs(t, err, testutil.ErrNetworkDown)
	assert.Nil(t, res)

	assert.Equal(t, int64(1), f.metrics.Passthrough.Load())
	assert.Zero(t, f.metrics.Enqueued.Load())
	assert.Empty(t, f.notifier.OfKind(types.EventQueued))

	_, err = f.queue.DrainAndReplay(t.Context())
	require.ErrorIs(t, err, types.ErrStoreUnavailable)

	_, err = f.queue.Pending(t.Context())
	require.ErrorIs(t, err, types.ErrStoreUnavailable)

	// Live calls still work.
	res, err = f.queue.Do(t.Context(), createTicket("/api/tickets"))
	require.NoError(t, err)
	assert.False(t, res.Offline())

	require.NoError(t, f.queue.Close())
}

func TestQueueEnqueueReturnsCauseWhenAppendFails(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())
	f.store.FailAppend(errors.New("disk full"))

	cause := errors.New("connection reset")
	s, err := f.queue.Enqueue(t.Context(), createTicket("/api/tickets"), cause)
	require.ErrorIs(t, err, cause)
	assert.Nil(t, s)
	assert.Equal(t, int64(1), f.metrics.Passthrough.Load())
	assert.Empty(t, f.notifier.OfKind(types.EventQueued))
}

func TestQueueEnqueueNilCauseInPassThrough(t *testing.T) {
	st := testutil.NewCountingStore(store.NewMemory()).FailOpen(errors.New("locked"))
	f := newQueueFixture(t, st)

	_, err := f.queue.Enqueue(t.Context(), createTicket("/api/tickets"), nil)
	require.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func TestQueueDepthFromExistingStore(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Open(t.Context()))
	for range 4 {
		_, err := mem.Append(t.Context(), types.NewQueuedOperation(createTicket("/x"), time.Now()))
		require.NoError(t, err)
	}

	f := newQueueFixture(t, mem)
	assert.Equal(t, 4, f.metrics.QueueDepth())
}

func TestQueueClose(t *testing.T) {
	mem := store.NewMemory()
	f := newQueueFixture(t, mem)

	require.NoError(t, f.queue.Close())
	require.NoError(t, f.queue.Close())

	_, err := f.queue.Do(t.Context(), createTicket("/x"))
	require.ErrorIs(t, err, types.ErrQueueClosed)

	_, err = f.queue.Enqueue(t.Context(), createTicket("/x"), testutil.ErrNetworkDown)
	require.ErrorIs(t, err, types.ErrQueueClosed)

	_, err = f.queue.DrainAndReplay(t.Context())
	require.ErrorIs(t, err, types.ErrQueueClosed)

	_, err = mem.Append(t.Context(), types.QueuedOperation{Target: "/x"})
	require.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestQueueCloseCancelsDrain(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())

	for _, target := range []string{"/a", "/b"} {
		_, err := f.queue.Enqueue(t.Context(), createTicket(target), testutil.ErrNetworkDown)
		require.NoError(t, err)
	}

	started := make(chan struct{})
	f.transport.OnPerform = func(ctx context.Context, req types.Request) (*types.Response, error) {
		close(started)
		<-ctx.Done()

		return nil, &types.TransportError{Target: req.Target, Cause: ctx.Err()}
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.queue.DrainAndReplay(t.Context())
		done <- err
	}()

	<-started
	require.NoError(t, f.queue.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("drain did not stop after Close")
	}

	assert.Len(t, f.transport.Calls(), 1)
}

func TestQueueDrainCoalesces(t *testing.T) {
	f := newQueueFixture(t, store.NewMemory())

	_, err := f.queue.Enqueue(t.Context(), createTicket("/a"), testutil.ErrNetworkDown)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f.transport.OnPerform = func(_ context.Context, _ types.Request) (*types.Response, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release

		return &types.Response{Status: 200}, nil
	}

	type result struct {
		summary types.DrainSummary
		err     error
	}
	first := make(chan result, 1)
	go func() {
		s, err := f.queue.DrainAndReplay(t.Context())
		first <- result{s, err}
	}()

	<-started
	assert.True(t, f.queue.Draining())

	_, err = f.queue.DrainAndReplay(t.Context())
	require.ErrorIs(t, err, types.ErrReplayInFlight)

	close(release)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, 2, r.summary.Passes)
	assert.Equal(t, 1, r.summary.Succeeded)
	assert.False(t, f.queue.Draining())
}
