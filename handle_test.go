package loopkit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/loopkit"
)

func newExposedCounter(t *testing.T) *loopkit.Handle[int, testEvent] {
	t.Helper()

	store := loopkit.NewStore(0, reduceCounter, nil)
	t.Cleanup(func() { store.Close() })

	encode, _ := loopkit.JSONState[int]()
	return loopkit.Expose(store, newTestRegistry(), encode)
}

func TestHandle_SnapshotSerializesState(t *testing.T) {
	h := newExposedCounter(t)

	snap, err := h.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, `0`, string(snap))
}

func TestHandle_DispatchKindRoutesDecodedEvents(t *testing.T) {
	h := newExposedCounter(t)

	require.NoError(t, h.DispatchKind("added", map[string]any{"amount": 4}))
	require.NoError(t, h.DispatchKind("added", map[string]any{"amount": 1}))

	waitFor(t, func() bool {
		snap, err := h.Snapshot()
		return err == nil && string(snap) == "5"
	})
}

func TestHandle_DispatchKindRejectsUnknown(t *testing.T) {
	h := newExposedCounter(t)

	err := h.DispatchKind("mystery", nil)
	assert.ErrorContains(t, err, "unknown event kind")
}

func TestHandle_KindsComeFromRegistry(t *testing.T) {
	h := newExposedCounter(t)
	assert.Equal(t, []string{"added", "cleared"}, h.Kinds())
}

func TestHandle_WatchStreamsEncodedStates(t *testing.T) {
	h := newExposedCounter(t)

	states, cancel := h.Watch()
	defer cancel()

	require.NoError(t, h.DispatchKind("added", map[string]any{"amount": 7}))

	select {
	case snap := <-states:
		assert.JSONEq(t, `7`, string(snap))
	case <-time.After(2 * time.Second):
		t.Fatal("no state update delivered")
	}
}
