package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/salahkhalfi/offlineq/types"
)

func TestRecordRoundTrip(t *testing.T) {
	op := types.QueuedOperation{
		ID:         42,
		Target:     "/api/messages",
		Method:     types.MethodCreate,
		Payload:    []byte{0x00, 0xff, '{', '}'},
		Headers:    map[string]string{"Authorization": "Bearer t"},
		EnqueuedAt: time.Unix(1_700_000_000, 123).UTC(),
		RetryCount: 3,
	}

	got, err := UnmarshalRecord(MarshalRecord(op))
	require.NoError(t, err)
	require.Equal(t, op, got)
}

func TestRecordZeroValues(t *testing.T) {
	got, err := UnmarshalRecord(MarshalRecord(types.QueuedOperation{ID: 1, Target: "/t", Method: "PATCH"}))
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.ID)
	require.Equal(t, types.Method("PATCH"), got.Method)
	require.Empty(t, got.Payload)
	require.Nil(t, got.Headers)
	require.True(t, got.EnqueuedAt.IsZero())
}

func TestRecordSkipsUnknownFields(t *testing.T) {
	buf := msgp.AppendMapHeader(nil, 3)
	buf = msgp.AppendString(buf, fieldID)
	buf = msgp.AppendUint64(buf, 9)
	buf = msgp.AppendString(buf, "priority")
	buf = msgp.AppendArrayHeader(buf, 2)
	buf = msgp.AppendInt(buf, 1)
	buf = msgp.AppendString(buf, "high")
	buf = msgp.AppendString(buf, fieldTarget)
	buf = msgp.AppendString(buf, "/future")

	got, err := UnmarshalRecord(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(9), got.ID)
	require.Equal(t, "/future", got.Target)
}

func TestRecordMalformed(t *testing.T) {
	_, err := UnmarshalRecord([]byte{0xc1})
	require.Error(t, err)

	truncated := MarshalRecord(types.QueuedOperation{ID: 1, Target: "/long-target"})
	_, err = UnmarshalRecord(truncated[:len(truncated)-3])
	require.Error(t, err)

	buf := msgp.AppendMapHeader(nil, 1)
	buf = msgp.AppendString(buf, fieldRetryCount)
	buf = msgp.AppendString(buf, "three")
	_, err = UnmarshalRecord(buf)
	require.ErrorContains(t, err, fieldRetryCount)
}

func TestHeadersCodec(t *testing.T) {
	h, err := UnmarshalHeaders(MarshalHeaders(nil))
	require.NoError(t, err)
	require.Nil(t, h)

	h, err = UnmarshalHeaders(nil)
	require.NoError(t, err)
	require.Nil(t, h)

	in := map[string]string{"A": "1", "B": ""}
	h, err = UnmarshalHeaders(MarshalHeaders(in))
	require.NoError(t, err)
	require.Equal(t, in, h)
}

func TestPebbleKeysSortByID(t *testing.T) {
	require.Less(t, string(pebbleOpKey(255)), string(pebbleOpKey(256)))
	require.Less(t, string(pebbleOpKey(1)), string(pebbleOpUpper))
	require.Less(t, natsOpKey(9), natsOpKey(10))
	require.Equal(t, "op.00000000000000000042", natsOpKey(42))
}
