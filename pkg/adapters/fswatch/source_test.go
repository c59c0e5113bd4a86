package fswatch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopkit/loopkit/pkg/adapters/fswatch"
)

func TestSource_DeliversChangesUnderWatchedDir(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := fswatch.Source([]string{dir})(ctx)

	// Give the watcher a moment to attach before producing events.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case change, ok := <-changes:
			require.True(t, ok, "stream ended before delivering the change")
			if change.Path == path {
				return
			}
		case <-deadline:
			t.Fatal("no filesystem change observed")
		}
	}
}

func TestSource_CancellationClosesStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	changes := fswatch.Source([]string{t.TempDir()})(ctx)

	cancel()

	select {
	case _, ok := <-changes:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func TestSource_MissingPathEndsStream(t *testing.T) {
	changes := fswatch.Source([]string{"/definitely/not/a/path"})(context.Background())

	select {
	case _, ok := <-changes:
		require.False(t, ok, "stream should close without events")
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
}
