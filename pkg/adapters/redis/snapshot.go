package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/loopkit/loopkit/pkg/ports"
)

// storedSnapshot is the JSON envelope persisted for each loop.
type storedSnapshot struct {
	Seq  uint64 `json:"seq"`
	Data []byte `json:"data"`
}

// SnapshotStore implements ports.SnapshotStore on Redis.
type SnapshotStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotStore creates a snapshot store from an existing client.
// It honors the same prefix/TTL options as the journal.
func NewSnapshotStore(client *backend.Client, opts ...Option) *SnapshotStore {
	// Reuse Journal option plumbing to keep one option set per package.
	j := &Journal{prefix: "loopkit:"}
	for _, opt := range opts {
		opt(j)
	}
	return &SnapshotStore{
		client: client,
		prefix: j.prefix,
		ttl:    j.ttl,
	}
}

func (s *SnapshotStore) key(loopID string) string {
	return s.prefix + "snapshot:" + loopID
}

// Save persists the snapshot, overwriting any previous one.
func (s *SnapshotStore) Save(ctx context.Context, loopID string, seq uint64, data []byte) error {
	payload, err := json.Marshal(storedSnapshot{Seq: seq, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(loopID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a loop.
func (s *SnapshotStore) Load(ctx context.Context, loopID string) (uint64, []byte, error) {
	val, err := s.client.Get(ctx, s.key(loopID)).Result()
	if err != nil {
		if err == backend.Nil {
			return 0, nil, ports.ErrSnapshotNotFound
		}
		return 0, nil, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}

	var snap storedSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return 0, nil, fmt.Errorf("corrupt snapshot for %q: %w", loopID, err)
	}
	return snap.Seq, snap.Data, nil
}

// Delete removes the snapshot for a loop.
func (s *SnapshotStore) Delete(ctx context.Context, loopID string) error {
	if err := s.client.Del(ctx, s.key(loopID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
