package metrics

import (
	"testing"
	"time"
)

func TestCollectorAccumulatesCounters(t *testing.T) {
	c := NewCollector(time.Second, map[string]string{"stream": "test"})

	c.ObserveCompletion(10 * time.Millisecond)
	c.ObserveCompletion(20 * time.Millisecond)
	c.ObserveEviction()
	c.ObserveRejection()
	c.ObserveRejection()

	if c.completed != 2 {
		t.Errorf("completed = %d, want 2", c.completed)
	}
	if c.evicted != 1 {
		t.Errorf("evicted = %d, want 1", c.evicted)
	}
	if c.rejected != 2 {
		t.Errorf("rejected = %d, want 2", c.rejected)
	}
}

func TestCollectorDatapointsIncludesCounters(t *testing.T) {
	c := NewCollector(time.Second, nil)
	c.ObserveCompletion(5 * time.Millisecond)

	points := c.Datapoints()
	names := make(map[string]bool)
	for _, p := range points {
		names[p.Metric] = true
	}
	for _, want := range []string{
		"spead.heap.completed",
		"spead.heap.evicted",
		"spead.packet.rejected",
		"spead.heap.latency.p50",
		"spead.heap.latency.p99",
		"spead.heap.latency.max",
	} {
		if !names[want] {
			t.Errorf("missing datapoint %q", want)
		}
	}
}

func TestCollectorResetClearsState(t *testing.T) {
	c := NewCollector(time.Second, nil)
	c.ObserveCompletion(time.Millisecond)
	c.ObserveEviction()
	c.Reset()

	if c.completed != 0 || c.evicted != 0 || c.rejected != 0 {
		t.Fatal("expected Reset to zero all counters")
	}
	if c.hist.TotalCount() != 0 {
		t.Fatal("expected Reset to clear the histogram")
	}
}
