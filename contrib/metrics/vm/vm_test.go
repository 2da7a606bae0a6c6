package vm_test

import (
	"bytes"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salahkhalfi/offlineq/contrib/metrics/vm"
	"github.com/salahkhalfi/offlineq/types"
)

func scrape(t *testing.T, c *vm.Collector) string {
	t.Helper()

	var buf bytes.Buffer
	c.WritePrometheus(&buf)

	return buf.String()
}

func TestCollectorImplementsInterface(t *testing.T) {
	var _ types.MetricsCollector = vm.New(vm.WithMetricsSet(metrics.NewSet()))
}

func TestCollectorCounters(t *testing.T) {
	c := vm.New(vm.WithMetricsSet(metrics.NewSet()), vm.WithPrefix("test"), vm.WithQueueName("tickets"))

	c.IncEnqueued()
	c.IncEnqueued()
	c.IncPassthrough()
	c.IncReplaySuccess()
	c.IncReplayDropped()
	c.IncReplayRetained()
	c.IncReplayRetained()
	c.IncDrainPass()
	c.IncDrainCoalesced()

	out := scrape(t, c)
	assert.Contains(t, out, `test_enqueued_total{queue="tickets"} 2`)
	assert.Contains(t, out, `test_passthrough_total{queue="tickets"} 1`)
	assert.Contains(t, out, `test_replay_total{queue="tickets",outcome="success"} 1`)
	assert.Contains(t, out, `test_replay_total{queue="tickets",outcome="dropped"} 1`)
	assert.Contains(t, out, `test_replay_total{queue="tickets",outcome="retained"} 2`)
	assert.Contains(t, out, `test_drain_passes_total{queue="tickets"} 1`)
	assert.Contains(t, out, `test_drain_coalesced_total{queue="tickets"} 1`)
}

func TestCollectorGauges(t *testing.T) {
	c := vm.New(vm.WithMetricsSet(metrics.NewSet()))

	c.SetQueueDepth(7)
	c.SetReachable(true)

	out := scrape(t, c)
	assert.Contains(t, out, `offlineq_queue_depth{queue="default"} 7`)
	assert.Contains(t, out, `offlineq_reachable{queue="default"} 1`)

	c.SetQueueDepth(0)
	c.SetReachable(false)

	out = scrape(t, c)
	assert.Contains(t, out, `offlineq_queue_depth{queue="default"} 0`)
	assert.Contains(t, out, `offlineq_reachable{queue="default"} 0`)
}

func TestCollectorHistogram(t *testing.T) {
	c := vm.New(vm.WithMetricsSet(metrics.NewSet()))

	c.ObserveReplayDuration(0.25)
	c.ObserveReplayDuration(1.5)

	out := scrape(t, c)
	assert.Contains(t, out, `offlineq_replay_duration_seconds_count{queue="default"} 2`)
	assert.Contains(t, out, `offlineq_replay_duration_seconds_sum{queue="default"} 1.75`)
}

func TestCollectorSharedSet(t *testing.T) {
	set := metrics.NewSet()
	a := vm.New(vm.WithMetricsSet(set), vm.WithQueueName("a"))
	b := vm.New(vm.WithMetricsSet(set), vm.WithQueueName("b"))
	require.Same(t, a.Set(), b.Set())

	a.IncEnqueued()

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `offlineq_enqueued_total{queue="a"} 1`)
	assert.Contains(t, buf.String(), `offlineq_enqueued_total{queue="b"} 0`)
}
