//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package metrics tracks heap reassembly latency and outcome counts
// for one stream, and exposes them as signalfx datapoints, per spec
// §5's observability surface.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/signalfx/golib/v3/datapoint"
)

// Collector accumulates heap completion latencies and per-outcome
// counters for one stream. It satisfies sfxclient's Collector
// interface so it can be registered directly with an sfxclient
// Scheduler, grounded on the teacher's hdrhistogram usage in
// test/drv/junoload/stats.go and its sfxclient wiring in
// pkg/logging/sherlock/sfxclient.go.
type Collector struct {
	mu sync.Mutex

	hist *hdrhistogram.Histogram

	completed int64
	evicted   int64
	rejected  int64

	dims map[string]string
}

// NewCollector builds a Collector tracking latencies from 1 to
// maxLatency, with dims attached to every emitted datapoint (e.g. a
// stream session id).
func NewCollector(maxLatency time.Duration, dims map[string]string) *Collector {
	if maxLatency <= 0 {
		maxLatency = time.Minute
	}
	return &Collector{
		hist: hdrhistogram.New(1, int64(maxLatency), 3),
		dims: dims,
	}
}

// ObserveCompletion records the time between a heap's first accepted
// packet and its delivery to the sink via normal completion.
func (c *Collector) ObserveCompletion(latency time.Duration) {
	c.mu.Lock()
	c.hist.RecordValues(int64(latency), 1)
	c.completed++
	c.mu.Unlock()
}

// ObserveEviction records a heap that was force-frozen and delivered
// incomplete because the live-heap capacity was exceeded.
func (c *Collector) ObserveEviction() {
	c.mu.Lock()
	c.evicted++
	c.mu.Unlock()
}

// ObserveRejection records a packet AddPacket refused.
func (c *Collector) ObserveRejection() {
	c.mu.Lock()
	c.rejected++
	c.mu.Unlock()
}

// Datapoints implements sfxclient.Collector.
func (c *Collector) Datapoints() []*datapoint.Datapoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	points := []*datapoint.Datapoint{
		datapoint.New("spead.heap.completed", c.dims, datapoint.NewIntValue(c.completed), datapoint.Counter, now),
		datapoint.New("spead.heap.evicted", c.dims, datapoint.NewIntValue(c.evicted), datapoint.Counter, now),
		datapoint.New("spead.packet.rejected", c.dims, datapoint.NewIntValue(c.rejected), datapoint.Counter, now),
	}

	if c.hist.TotalCount() > 0 {
		points = append(points,
			datapoint.New("spead.heap.latency.p50", c.dims, datapoint.NewIntValue(c.hist.ValueAtQuantile(50)), datapoint.Gauge, now),
			datapoint.New("spead.heap.latency.p99", c.dims, datapoint.NewIntValue(c.hist.ValueAtQuantile(99)), datapoint.Gauge, now),
			datapoint.New("spead.heap.latency.max", c.dims, datapoint.NewIntValue(c.hist.Max()), datapoint.Gauge, now),
		)
	}

	return points
}

// Reset clears every counter and the latency histogram, for use
// between test runs or on an operator-triggered metrics rollover.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.hist.Reset()
	c.completed, c.evicted, c.rejected = 0, 0, 0
	c.mu.Unlock()
}
