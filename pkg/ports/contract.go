package ports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract verifies that a Journal implementation adheres to the
// interface contract. Adapter test suites call this against their backend.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	loopID := "contract-" + uuid.NewString()

	t.Run("Append assigns increasing sequence", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			rec, err := journal.Append(ctx, Record{
				ID:      uuid.NewString(),
				LoopID:  loopID,
				Kind:    "test.event",
				Payload: []byte(`{"n":1}`),
				At:      time.Now().UTC(),
			})
			require.NoError(t, err)
			assert.Equal(t, uint64(i), rec.Seq)
		}

		n, err := journal.Len(ctx, loopID)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n)
	})

	t.Run("Replay preserves order", func(t *testing.T) {
		var seqs []uint64
		err := journal.Replay(ctx, loopID, 0, func(rec Record) error {
			seqs = append(seqs, rec.Seq)
			assert.Equal(t, loopID, rec.LoopID)
			assert.Equal(t, "test.event", rec.Kind)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3}, seqs)
	})

	t.Run("Replay after offset", func(t *testing.T) {
		var seqs []uint64
		err := journal.Replay(ctx, loopID, 2, func(rec Record) error {
			seqs = append(seqs, rec.Seq)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{3}, seqs)
	})

	t.Run("Replay unknown loop is empty", func(t *testing.T) {
		calls := 0
		err := journal.Replay(ctx, "unknown-"+loopID, 0, func(Record) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Zero(t, calls)
	})

	t.Run("Loops are isolated", func(t *testing.T) {
		other := "other-" + uuid.NewString()
		rec, err := journal.Append(ctx, Record{ID: uuid.NewString(), LoopID: other, Kind: "test.event", At: time.Now().UTC()})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), rec.Seq, "sequence numbering is per loop")
	})
}

// RunSnapshotStoreContract verifies a SnapshotStore implementation.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	loopID := "contract-" + uuid.NewString()

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, loopID, 7, []byte(`{"phase":"idle"}`)))

		seq, snap, err := store.Load(ctx, loopID)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), seq)
		assert.JSONEq(t, `{"phase":"idle"}`, string(snap))
	})

	t.Run("Save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, loopID, 9, []byte(`{"phase":"busy"}`)))

		seq, snap, err := store.Load(ctx, loopID)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), seq)
		assert.JSONEq(t, `{"phase":"busy"}`, string(snap))
	})

	t.Run("Load non-existent", func(t *testing.T) {
		_, _, err := store.Load(ctx, "non-existent-"+loopID)
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, loopID))
		_, _, err := store.Load(ctx, loopID)
		assert.ErrorIs(t, err, ErrSnapshotNotFound, "Load after Delete should report missing snapshot")
	})
}
