package store

import (
	"fmt"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/salahkhalfi/offlineq/types"
)

// Field names of the persisted record. A record is a flat MessagePack map:
//
//	{id, target, method, payload, headers, enqueued_at, retry_count}
//
// payload and headers are bin blobs; headers holds a nested MessagePack map
// of strings that the queue never interprets.
const (
	fieldID         = "id"
	fieldTarget     = "target"
	fieldMethod     = "method"
	fieldPayload    = "payload"
	fieldHeaders    = "headers"
	fieldEnqueuedAt = "enqueued_at"
	fieldRetryCount = "retry_count"

	recordFields = 7
)

// MarshalRecord encodes a queued operation into its persisted form.
//
// Parameters:
//   - op: The operation to encode (ID must already be assigned)
//
// Returns:
//   - []byte: MessagePack encoded record
func MarshalRecord(op types.QueuedOperation) []byte {
	return appendRecord(nil, op)
}

// UnmarshalRecord decodes a persisted record.
//
// Unknown fields are skipped so records written by newer versions remain
// readable.
//
// Parameters:
//   - data: MessagePack encoded record
//
// Returns:
//   - types.QueuedOperation: The decoded operation
//   - error: Decoding error if the data is malformed
func UnmarshalRecord(data []byte) (types.QueuedOperation, error) {
	var op types.QueuedOperation

	sz, buf, err := msgp.ReadMapHeaderBytes(data)
	if err != nil {
		return op, fmt.Errorf("offlineq: failed to read record header: %w", err)
	}

	for i := uint32(0); i < sz; i++ {
		var key []byte
		key, buf, err = msgp.ReadMapKeyZC(buf)
		if err != nil {
			return op, fmt.Errorf("offlineq: failed to read record key: %w", err)
		}

		switch string(key) {
		case fieldID:
			op.ID, buf, err = msgp.ReadUint64Bytes(buf)
		case fieldTarget:
			op.Target, buf, err = msgp.ReadStringBytes(buf)
		case fieldMethod:
			var m string
			m, buf, err = msgp.ReadStringBytes(buf)
			op.Method = types.Method(m)
		case fieldPayload:
			op.Payload, buf, err = msgp.ReadBytesBytes(buf, nil)
		case fieldHeaders:
			var raw []byte
			raw, buf, err = msgp.ReadBytesZC(buf)
			if err == nil {
				op.Headers, err = UnmarshalHeaders(raw)
			}
		case fieldEnqueuedAt:
			var ns int64
			ns, buf, err = msgp.ReadInt64Bytes(buf)
			if ns != 0 {
				op.EnqueuedAt = time.Unix(0, ns).UTC()
			}
		case fieldRetryCount:
			op.RetryCount, buf, err = msgp.ReadIntBytes(buf)
		default:
			buf, err = msgp.Skip(buf)
		}
		if err != nil {
			return op, fmt.Errorf("offlineq: failed to decode record field %q: %w", key, err)
		}
	}

	return op, nil
}

func appendRecord(buf []byte, op types.QueuedOperation) []byte {
	buf = msgp.AppendMapHeader(buf, recordFields)
	buf = msgp.AppendString(buf, fieldID)
	buf = msgp.AppendUint64(buf, op.ID)
	buf = msgp.AppendString(buf, fieldTarget)
	buf = msgp.AppendString(buf, op.Target)
	buf = msgp.AppendString(buf, fieldMethod)
	buf = msgp.AppendString(buf, string(op.Method))
	buf = msgp.AppendString(buf, fieldPayload)
	buf = msgp.AppendBytes(buf, op.Payload)
	buf = msgp.AppendString(buf, fieldHeaders)
	buf = msgp.AppendBytes(buf, MarshalHeaders(op.Headers))
	buf = msgp.AppendString(buf, fieldEnqueuedAt)
	buf = msgp.AppendInt64(buf, enqueuedNanos(op.EnqueuedAt))
	buf = msgp.AppendString(buf, fieldRetryCount)
	buf = msgp.AppendInt(buf, op.RetryCount)

	return buf
}

// MarshalHeaders encodes a header map as a MessagePack map of strings.
//
// Parameters:
//   - headers: The headers to encode, may be nil
//
// Returns:
//   - []byte: Encoded headers
func MarshalHeaders(headers map[string]string) []byte {
	// Header maps are small; the count always fits in uint32.
	buf := msgp.AppendMapHeader(nil, uint32(len(headers))) //nolint:gosec
	for k, v := range headers {
		buf = msgp.AppendString(buf, k)
		buf = msgp.AppendString(buf, v)
	}

	return buf
}

// UnmarshalHeaders decodes headers encoded by MarshalHeaders.
//
// An empty input or an empty map decodes to nil.
//
// Parameters:
//   - data: Encoded headers
//
// Returns:
//   - map[string]string: The decoded headers
//   - error: Decoding error if the data is malformed
func UnmarshalHeaders(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	sz, buf, err := msgp.ReadMapHeaderBytes(data)
	if err != nil {
		return nil, err
	}
	if sz == 0 {
		return nil, nil
	}

	headers := make(map[string]string, sz)
	for i := uint32(0); i < sz; i++ {
		var k, v string
		if k, buf, err = msgp.ReadStringBytes(buf); err != nil {
			return nil, err
		}
		if v, buf, err = msgp.ReadStringBytes(buf); err != nil {
			return nil, err
		}
		headers[k] = v
	}

	return headers, nil
}

func enqueuedNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}
