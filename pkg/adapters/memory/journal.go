// Package memory provides in-memory implementations of the persistence
// ports. Useful for tests and for loops that do not need durability.
package memory

import (
	"context"
	"sync"

	"github.com/loopkit/loopkit/pkg/ports"
)

// Journal implements ports.Journal in memory. Safe for concurrent use.
type Journal struct {
	mu   sync.RWMutex
	logs map[string][]ports.Record
}

// NewJournal creates an empty in-memory journal.
func NewJournal() *Journal {
	return &Journal{
		logs: make(map[string][]ports.Record),
	}
}

// Append stores the record, assigning the next sequence number for its loop.
func (j *Journal) Append(ctx context.Context, rec ports.Record) (ports.Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec.Seq = uint64(len(j.logs[rec.LoopID])) + 1
	// Copy the payload so the caller can't mutate stored records.
	payload := make([]byte, len(rec.Payload))
	copy(payload, rec.Payload)
	rec.Payload = payload

	j.logs[rec.LoopID] = append(j.logs[rec.LoopID], rec)
	return rec, nil
}

// Replay streams records in sequence order, starting after the given seq.
func (j *Journal) Replay(ctx context.Context, loopID string, after uint64, fn func(ports.Record) error) error {
	j.mu.RLock()
	log := j.logs[loopID]
	// Snapshot the slice header; records are immutable once appended.
	records := log[:len(log):len(log)]
	j.mu.RUnlock()

	for _, rec := range records {
		if rec.Seq <= after {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of records stored for a loop.
func (j *Journal) Len(ctx context.Context, loopID string) (uint64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.logs[loopID])), nil
}

// snapshot is one stored state snapshot.
type snapshot struct {
	seq  uint64
	data []byte
}

// SnapshotStore implements ports.SnapshotStore in memory.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]snapshot
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snaps: make(map[string]snapshot),
	}
}

// Save stores the snapshot, overwriting any previous one for the loop.
func (s *SnapshotStore) Save(ctx context.Context, loopID string, seq uint64, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[loopID] = snapshot{seq: seq, data: buf}
	return nil
}

// Load retrieves the snapshot for a loop.
func (s *SnapshotStore) Load(ctx context.Context, loopID string) (uint64, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[loopID]
	if !ok {
		return 0, nil, ports.ErrSnapshotNotFound
	}
	// Copy on read so the caller can't mutate stored bytes.
	data := make([]byte, len(snap.data))
	copy(data, snap.data)
	return snap.seq, data, nil
}

// Delete removes the snapshot for a loop.
func (s *SnapshotStore) Delete(ctx context.Context, loopID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, loopID)
	return nil
}
