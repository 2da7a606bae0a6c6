package notify_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salahkhalfi/offlineq/notify"
	"github.com/salahkhalfi/offlineq/test/testutil"
	"github.com/salahkhalfi/offlineq/types"
)

func TestChannelDeliversAndDrops(t *testing.T) {
	c := notify.NewChannel(2)

	c.Notify(types.Event{Kind: types.EventQueued, Target: "/a"})
	c.Notify(types.Event{Kind: types.EventQueued, Target: "/b"})
	c.Notify(types.Event{Kind: types.EventQueued, Target: "/c"})

	assert.Equal(t, int64(1), c.Dropped())
	assert.Equal(t, "/a", (<-c.C()).Target)
	assert.Equal(t, "/b", (<-c.C()).Target)

	c.Close()
	c.Close()
	c.Notify(types.Event{Kind: types.EventOnline})

	_, ok := <-c.C()
	assert.False(t, ok)
}

func TestFuncAndMulti(t *testing.T) {
	var got []types.EventKind
	rec := testutil.NewRecordingNotifier()

	n := notify.Multi(
		notify.Func(func(e types.Event) { got = append(got, e.Kind) }),
		nil,
		rec,
		notify.Func(nil),
	)
	n.Notify(types.Event{Kind: types.EventOffline})
	n.Notify(types.Event{Kind: types.EventOnline})

	assert.Equal(t, []types.EventKind{types.EventOffline, types.EventOnline}, got)
	assert.Len(t, rec.Events(), 2)
}

func TestNewNATSNilPublisher(t *testing.T) {
	_, err := notify.NewNATS(nil)
	require.Error(t, err)
}

func TestNATSPublishesEvents(t *testing.T) {
	n := testutil.StartEmbeddedNATS(t)

	sub, err := n.Conn.SubscribeSync("app.events.>")
	require.NoError(t, err)
	require.NoError(t, n.Conn.Flush())

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	notifier, err := notify.NewNATS(n.Conn,
		notify.WithSubjectPrefix("app.events"),
		notify.WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)

	notifier.Notify(types.Event{
		Kind:    types.EventReplaySummary,
		Summary: types.DrainSummary{Succeeded: 2, Dropped: 1},
		Reason:  "2 actions synced, 1 action failed and was discarded",
	})
	notifier.Notify(types.Event{Kind: types.EventReplayItemDropped, Target: "/tickets/9", QueuedID: 9, Status: 404})

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "app.events.replay-summary", msg.Subject)

	var summary notify.Message
	require.NoError(t, json.Unmarshal(msg.Data, &summary))
	assert.Equal(t, types.EventReplaySummary, summary.Kind)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Dropped)
	assert.True(t, fixed.Equal(summary.Time))

	msg, err = sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "app.events.replay-item-dropped", msg.Subject)

	var dropped notify.Message
	require.NoError(t, json.Unmarshal(msg.Data, &dropped))
	assert.Equal(t, "/tickets/9", dropped.Target)
	assert.Equal(t, uint64(9), dropped.QueuedID)
	assert.Equal(t, 404, dropped.Status)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, []byte) error { return errors.New("connection closed") }

func TestNATSPublishFailureIsLogged(t *testing.T) {
	var warned []string
	logger := &captureLogger{warn: func(msg string) { warned = append(warned, msg) }}

	notifier, err := notify.NewNATS(failingPublisher{}, notify.WithLogger(logger))
	require.NoError(t, err)

	notifier.Notify(types.Event{Kind: types.EventQueued, Target: "/x"})
	assert.Equal(t, []string{"failed to publish event"}, warned)
}

var _ notify.Publisher = (*nats.Conn)(nil)

type captureLogger struct {
	warn func(string)
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Warn(msg string, _ ...any) {
	l.warn(msg)
}
func (l *captureLogger) Error(string, ...any) {}
