package ports

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned when a loop ID has no stored snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Record is one applied event as stored in a Journal. Seq is assigned by the
// journal on append, strictly increasing per loop, starting at 1.
type Record struct {
	ID      string    `json:"id"`
	LoopID  string    `json:"loop_id"`
	Seq     uint64    `json:"seq"`
	Kind    string    `json:"kind"`
	Payload []byte    `json:"payload"`
	At      time.Time `json:"at"`
}

// Journal is an append-only event log. Implementations must preserve append
// order per loop ID and must be safe for concurrent use.
type Journal interface {
	// Append stores a record and returns it with Seq assigned.
	Append(ctx context.Context, rec Record) (Record, error)

	// Replay streams records for a loop in sequence order, starting after
	// the given sequence number (0 replays everything). fn returning an
	// error aborts the replay with that error.
	Replay(ctx context.Context, loopID string, after uint64, fn func(Record) error) error

	// Len reports the number of records stored for a loop.
	Len(ctx context.Context, loopID string) (uint64, error)
}

// SnapshotStore persists the latest serialized state per loop ID, enabling
// restart without a full replay.
type SnapshotStore interface {
	// Save stores the snapshot together with the sequence number of the
	// last event folded into it.
	Save(ctx context.Context, loopID string, seq uint64, snapshot []byte) error

	// Load retrieves the snapshot and its sequence number.
	// Returns ErrSnapshotNotFound if the loop has none.
	Load(ctx context.Context, loopID string) (uint64, []byte, error)

	// Delete removes the snapshot for a loop ID.
	Delete(ctx context.Context, loopID string) error
}
