package observability_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/loopkit/pkg/observability"
	"github.com/loopkit/loopkit/pkg/system"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHooks_CountAppliedDroppedAndDisposals(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg, "test")

	reduce := func(s int, e string) int { return s + 1 }
	sys := system.New(0, reduce, nil,
		system.WithHooks(observability.Hooks[int, string](m, func(e string) string { return e })),
	)

	sys.Dispatch("login")
	sys.Dispatch("login")
	sys.Dispatch("logout")
	waitFor(t, func() bool { return sys.State() == 3 })

	sys.Dispose()
	<-sys.Done()
	sys.Dispatch("login") // dropped after disposal

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["loopkit_events_applied_total"])
	assert.True(t, names["loopkit_reducer_duration_seconds"])

	applied, err := testutil.GatherAndCount(reg, "loopkit_events_applied_total")
	require.NoError(t, err)
	assert.Equal(t, 2, applied, "one series per event kind")
}

func TestHooks_NilKindLabelsEverythingEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg, "test")

	reduce := func(s int, e string) int { return s + 1 }
	sys := system.New(0, reduce, nil,
		system.WithHooks(observability.Hooks[int, string](m, nil)),
	)
	defer sys.Dispose()

	sys.Dispatch("a")
	waitFor(t, func() bool { return sys.State() == 1 })

	count, err := testutil.GatherAndCount(reg, "loopkit_events_applied_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestQueueGauge_ReportsQueueDepth(t *testing.T) {
	reg := prometheus.NewRegistry()

	sys := system.New(0, func(s, e int) int { return s + e }, nil)
	defer sys.Dispose()

	observability.QueueGauge(reg, "test", sys)

	waitFor(t, func() bool { return sys.QueueLen() == 0 })
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "loopkit_queue_depth", families[0].GetName())
	assert.Equal(t, float64(0), families[0].GetMetric()[0].GetGauge().GetValue())
}
