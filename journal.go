package loopkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loopkit/loopkit/internal/logging"
	"github.com/loopkit/loopkit/pkg/ports"
	"github.com/loopkit/loopkit/pkg/system"
)

// Codec serializes loop events for persistence. Registry implements it.
type Codec[E any] interface {
	Encode(e E) (kind string, payload []byte, err error)
	Decode(kind string, payload []byte) (E, error)
}

// Journaler records every applied event to a ports.Journal, optionally
// snapshotting the resulting state every N events. Writes happen on a
// dedicated goroutine so the loop is never blocked on storage; if the
// writer falls too far behind, transitions are dropped with a warning
// rather than stalling event processing.
type Journaler[S, E any] struct {
	loopID  string
	journal ports.Journal
	codec   Codec[E]
	logger  *slog.Logger

	snapshots   ports.SnapshotStore
	encodeState func(S) ([]byte, error)
	every       uint64

	buffer int
}

// JournalerOption configures a Journaler.
type JournalerOption[S, E any] func(*Journaler[S, E])

// WithSnapshots enables periodic state snapshots: after every n journaled
// events the current state is encoded and saved alongside the sequence
// number, so restarts can restore from the snapshot and replay only the
// tail.
func WithSnapshots[S, E any](store ports.SnapshotStore, encodeState func(S) ([]byte, error), n uint64) JournalerOption[S, E] {
	return func(j *Journaler[S, E]) {
		j.snapshots = store
		j.encodeState = encodeState
		if n > 0 {
			j.every = n
		}
	}
}

// WithJournalLogger sets the logger used for write failures and drops.
func WithJournalLogger[S, E any](logger *slog.Logger) JournalerOption[S, E] {
	return func(j *Journaler[S, E]) {
		j.logger = logger
	}
}

// NewJournaler creates a journaler for one loop ID.
func NewJournaler[S, E any](loopID string, journal ports.Journal, codec Codec[E], opts ...JournalerOption[S, E]) *Journaler[S, E] {
	j := &Journaler[S, E]{
		loopID:  loopID,
		journal: journal,
		codec:   codec,
		logger:  logging.NewNop(),
		every:   1,
		buffer:  256,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Feedback returns the feedback that wires this journaler into a system's
// feedback list.
func (j *Journaler[S, E]) Feedback() system.Feedback[S, E] {
	return system.FeedbackFunc[S, E](func(ctx context.Context, _ system.Dispatch[E]) system.Observer[S, E] {
		work := make(chan system.Transition[S, E], j.buffer)
		go j.writer(ctx, work)

		return func(t system.Transition[S, E]) {
			select {
			case work <- t:
			default:
				j.logger.Warn("journal writer behind, dropping record", "loop_id", j.loopID)
			}
		}
	})
}

func (j *Journaler[S, E]) writer(ctx context.Context, work <-chan system.Transition[S, E]) {
	for {
		select {
		case t := <-work:
			j.write(ctx, t)
		case <-ctx.Done():
			// Drain what was already enqueued before the system went away.
			for {
				select {
				case t := <-work:
					j.write(context.Background(), t)
				default:
					return
				}
			}
		}
	}
}

func (j *Journaler[S, E]) write(ctx context.Context, t system.Transition[S, E]) {
	kind, payload, err := j.codec.Encode(t.Event)
	if err != nil {
		j.logger.Error("journal encode failed", "loop_id", j.loopID, "error", err)
		return
	}

	rec, err := j.journal.Append(ctx, ports.Record{
		ID:      uuid.NewString(),
		LoopID:  j.loopID,
		Kind:    kind,
		Payload: payload,
		At:      time.Now().UTC(),
	})
	if err != nil {
		j.logger.Error("journal append failed", "loop_id", j.loopID, "kind", kind, "error", err)
		return
	}

	if j.snapshots == nil || rec.Seq%j.every != 0 {
		return
	}
	snap, err := j.encodeState(t.To)
	if err != nil {
		j.logger.Error("snapshot encode failed", "loop_id", j.loopID, "error", err)
		return
	}
	if err := j.snapshots.Save(ctx, j.loopID, rec.Seq, snap); err != nil {
		j.logger.Error("snapshot save failed", "loop_id", j.loopID, "seq", rec.Seq, "error", err)
	}
}

// Replay left-folds the journaled events for a loop through the reducer,
// starting from initial, and returns the resulting state plus the sequence
// number of the last applied record. With a pure reducer this reproduces
// exactly the state the original run reached.
func Replay[S, E any](ctx context.Context, journal ports.Journal, loopID string, initial S, reducer system.Reducer[S, E], codec Codec[E]) (S, uint64, error) {
	return replayAfter(ctx, journal, loopID, 0, initial, reducer, codec)
}

// Restore rebuilds state from the latest snapshot plus the journal tail.
// Without a snapshot it falls back to a full replay from initial.
func Restore[S, E any](ctx context.Context, snapshots ports.SnapshotStore, journal ports.Journal, loopID string, initial S, decodeState func([]byte) (S, error), reducer system.Reducer[S, E], codec Codec[E]) (S, uint64, error) {
	seq, snap, err := snapshots.Load(ctx, loopID)
	switch {
	case err == nil:
		state, derr := decodeState(snap)
		if derr != nil {
			var zero S
			return zero, 0, fmt.Errorf("decoding snapshot for %q: %w", loopID, derr)
		}
		return replayAfter(ctx, journal, loopID, seq, state, reducer, codec)
	case errors.Is(err, ports.ErrSnapshotNotFound):
		return replayAfter(ctx, journal, loopID, 0, initial, reducer, codec)
	default:
		var zero S
		return zero, 0, fmt.Errorf("loading snapshot for %q: %w", loopID, err)
	}
}

func replayAfter[S, E any](ctx context.Context, journal ports.Journal, loopID string, after uint64, initial S, reducer system.Reducer[S, E], codec Codec[E]) (S, uint64, error) {
	state := initial
	last := after
	err := journal.Replay(ctx, loopID, after, func(rec ports.Record) error {
		e, derr := codec.Decode(rec.Kind, rec.Payload)
		if derr != nil {
			return fmt.Errorf("record %d: %w", rec.Seq, derr)
		}
		state = reducer(state, e)
		last = rec.Seq
		return nil
	})
	if err != nil {
		var zero S
		return zero, 0, err
	}
	return state, last, nil
}

// JSONState returns encode/decode helpers for states that marshal cleanly
// as JSON, convenient for WithSnapshots and Restore.
func JSONState[S any]() (func(S) ([]byte, error), func([]byte) (S, error)) {
	encode := func(s S) ([]byte, error) { return json.Marshal(s) }
	decode := func(b []byte) (S, error) {
		var s S
		err := json.Unmarshal(b, &s)
		return s, err
	}
	return encode, decode
}
