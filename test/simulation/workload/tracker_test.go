package workload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salahkhalfi/offlineq/types"
)

func deliver(t *testing.T, s *Server, seq uint64) error {
	t.Helper()

	payload, err := json.Marshal(Payload{Seq: seq})
	require.NoError(t, err)

	_, err = s.Perform(t.Context(), types.Request{Target: "/records", Method: types.MethodCreate, Payload: payload})

	return err
}

func TestTrackerVerifyDelivery(t *testing.T) {
	s := NewServer()
	tr := NewWriteTracker()

	tr.TrackLive(1)
	require.NoError(t, deliver(t, s, 1))

	tr.TrackQueued(2)
	tr.TrackQueued(3)
	s.Reject(3)
	tr.TrackRejected(3)

	require.ErrorContains(t, tr.VerifyDelivery(s), "never dropped")

	require.Error(t, deliver(t, s, 3))
	tr.TrackDropped(3)
	require.ErrorContains(t, tr.VerifyDelivery(s), "1 of 3 accepted writes missing")

	require.NoError(t, deliver(t, s, 2))
	require.NoError(t, tr.VerifyDelivery(s))
	require.Equal(t, 3, tr.Count())
	require.Equal(t, 2, tr.QueuedCount())
	require.Equal(t, 1, tr.Dropped())
}

func TestTrackerVerifyOrder(t *testing.T) {
	s := NewServer()
	tr := NewWriteTracker()
	tr.TrackQueued(5)
	tr.TrackQueued(6)

	require.NoError(t, deliver(t, s, 6))
	require.NoError(t, deliver(t, s, 5))
	require.ErrorContains(t, tr.VerifyOrder(s), "queued write 5")

	ordered := NewServer()
	require.NoError(t, deliver(t, ordered, 5))
	require.NoError(t, deliver(t, ordered, 6))
	require.NoError(t, deliver(t, ordered, 5))
	require.NoError(t, tr.VerifyOrder(ordered))
}

func TestServerRejects(t *testing.T) {
	s := NewServer()
	s.Reject(9)

	err := deliver(t, s, 9)
	require.Equal(t, 422, types.StatusOf(nil, err))
	require.Zero(t, s.Deliveries(9))

	_, err = s.Perform(t.Context(), types.Request{Target: "/records", Payload: []byte("{")})
	require.Equal(t, 400, types.StatusOf(nil, err))
}
