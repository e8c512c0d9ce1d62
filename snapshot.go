package inkwell

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is a point-in-time capture of an aggregate's state. Snapshots are
// written only when explicitly requested and bound replay work on load; the
// event log stays the source of truth.
type Snapshot struct {
	// AggregateID identifies the aggregate instance.
	AggregateID string

	// AggregateType is the aggregate category.
	AggregateType string

	// Version is the sequence number of the last event folded into the state.
	Version int64

	// State is the encoded aggregate state.
	State []byte

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time
}

// SnapshotCodec encodes and decodes aggregate snapshot state.
// Event payloads stay JSON; snapshot state is an internal blob and uses a
// compact binary encoding.
type SnapshotCodec interface {
	// Marshal encodes a snapshot state value.
	Marshal(state interface{}) ([]byte, error)

	// Unmarshal decodes into a snapshot state value.
	Unmarshal(data []byte, state interface{}) error
}

// MsgpackSnapshotCodec encodes snapshot state with MessagePack.
type MsgpackSnapshotCodec struct{}

// NewMsgpackSnapshotCodec creates a new MsgpackSnapshotCodec.
func NewMsgpackSnapshotCodec() *MsgpackSnapshotCodec {
	return &MsgpackSnapshotCodec{}
}

// Marshal encodes the state as MessagePack.
func (c *MsgpackSnapshotCodec) Marshal(state interface{}) ([]byte, error) {
	if state == nil {
		return nil, NewSerializationError("snapshot", "serialize", fmt.Errorf("state cannot be nil"))
	}

	data, err := msgpack.Marshal(state)
	if err != nil {
		return nil, NewSerializationError("snapshot", "serialize", err)
	}
	return data, nil
}

// Unmarshal decodes MessagePack data into the state value.
func (c *MsgpackSnapshotCodec) Unmarshal(data []byte, state interface{}) error {
	if len(data) == 0 {
		return NewSerializationError("snapshot", "deserialize", fmt.Errorf("data cannot be empty"))
	}

	if err := msgpack.Unmarshal(data, state); err != nil {
		return NewSerializationError("snapshot", "deserialize", err)
	}
	return nil
}
