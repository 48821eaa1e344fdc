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

package stream

import (
	"time"

	"github.com/golang/glog"

	"spead/heap"
	"spead/memorypool"
	"spead/wire"
)

const defaultMaxHeaps = 8

// Stream holds a bounded ordered collection of live heaps keyed by
// heap count, ascending, per spec §4.5. Its exported methods assume
// they run on the strand returned by Strand (NewStream wires one up
// automatically) — calling them concurrently without going through
// the strand races, exactly as heap.ReceiveHeap documents for itself.
type Stream struct {
	id     sessionID
	strand *Strand

	maxHeaps int
	pool     memorypool.Pool
	sink     Sink
	metrics  metricsHook

	live      []*heap.ReceiveHeap // ascending by HeapCnt
	firstSeen map[uint64]time.Time

	readers []Reader

	stopped       bool
	stopRequested bool
}

// metricsHook is the minimal surface Stream needs from a
// metrics.Collector, kept narrow so stream does not force every
// caller to depend on the signalfx/hdrhistogram stack.
type metricsHook interface {
	ObserveCompletion(latency time.Duration)
	ObserveEviction()
	ObserveRejection()
}

// NewStream builds a Stream dispatching strand work onto executor. A
// nil sink installs a do-nothing sink, matching the source's base
// heap_ready implementation.
func NewStream(executor *Executor, sink Sink) *Stream {
	if sink == nil {
		sink = discardSink{}
	}
	return &Stream{
		id:        newSessionID(),
		strand:    NewStrand(executor),
		maxHeaps:  defaultMaxHeaps,
		sink:      sink,
		firstSeen: make(map[uint64]time.Time),
	}
}

// ID returns the session identifier this stream was created with, for
// correlating its logs and metrics with other streams in the process.
func (s *Stream) ID() string { return s.id.String() }

// SetMetrics attaches a collector that receives completion latency
// and outcome counts as the stream dispatches packets. Passing nil
// detaches any previously set collector.
func (s *Stream) SetMetrics(m metricsHook) { s.metrics = m }

// Strand returns the serialization context every mutating method
// below must be called through in a concurrent program.
func (s *Stream) Strand() *Strand { return s.strand }

// Post schedules fn to run on the stream's strand.
func (s *Stream) Post(fn func()) { s.strand.Post(fn) }

// SetMaxHeaps raises or lowers the live-heap capacity. Lowering it
// never evicts synchronously — the new cap is enforced only on
// subsequent insertions, per spec §4.5's open question, resolved to
// preserve the source's behavior.
func (s *Stream) SetMaxHeaps(n int) { s.maxHeaps = n }

// SetMemoryPool installs the allocator new heaps will draw payload
// buffers from.
func (s *Stream) SetMemoryPool(p memorypool.Pool) { s.pool = p }

// SetSink replaces the stream's sink. Passing nil installs a
// do-nothing sink, same as NewStream. Intended for callers that need
// the stream's session id (e.g. to tag a sink's own metrics) before
// the sink itself can be built.
func (s *Stream) SetSink(sink Sink) {
	if sink == nil {
		sink = discardSink{}
	}
	s.sink = sink
}

// AddReader registers r, in insertion order. It does not start r —
// call StartReaders, or post r.Start yourself, once the stream is
// otherwise ready.
func (s *Stream) AddReader(r Reader) { s.readers = append(s.readers, r) }

// StartReaders starts every registered reader, in insertion order, on
// the stream's strand, and blocks until they have started. Like Stop,
// it must not be called from within a task already running on the
// strand.
func (s *Stream) StartReaders() error {
	var err error
	s.strand.PostSync(func() {
		for _, r := range s.readers {
			if err = r.Start(); err != nil {
				return
			}
		}
	})
	return err
}

// AddPacket is the dispatch routine from spec §4.5. Calling it after
// Stop is a defined no-op that returns false, resolving the source's
// documented-undefined behavior.
func (s *Stream) AddPacket(hdr wire.Header) bool {
	if s.stopped {
		return false
	}

	for i, rh := range s.live {
		if rh.HeapCnt() != hdr.HeapCnt {
			continue
		}
		accepted := rh.AddPacket(hdr)
		if !accepted {
			if s.metrics != nil {
				s.metrics.ObserveRejection()
			}
			return false
		}
		if rh.IsComplete() {
			s.emitAndRemove(i, rh)
		}
		if rh.EndOfStream() {
			s.deferredStop()
		}
		return true
	}

	nh := heap.NewReceiveHeap(hdr.HeapCnt, s.pool)
	if !nh.AddPacket(hdr) {
		if s.metrics != nil {
			s.metrics.ObserveRejection()
		}
		return false
	}
	s.firstSeen[hdr.HeapCnt] = time.Now()

	if nh.IsComplete() {
		s.emit(nh)
		if nh.EndOfStream() {
			s.deferredStop()
		}
		return true
	}

	s.insertAscending(nh)
	if nh.EndOfStream() {
		s.deferredStop()
	}
	s.evictOverCapacity()
	return true
}

func (s *Stream) emitAndRemove(i int, rh *heap.ReceiveHeap) {
	s.live = append(s.live[:i], s.live[i+1:]...)
	s.emit(rh)
}

func (s *Stream) emit(rh *heap.ReceiveHeap) {
	frozen, err := rh.Freeze()
	if err != nil {
		// completion implies contiguity (spec §8 invariant); reaching
		// here means a logic error upstream, not a wire-level fault.
		glog.Errorf("heap %d: complete heap failed to freeze: %v", rh.HeapCnt(), err)
		return
	}
	if s.metrics != nil {
		if start, ok := s.firstSeen[rh.HeapCnt()]; ok {
			s.metrics.ObserveCompletion(time.Since(start))
		}
	}
	delete(s.firstSeen, rh.HeapCnt())
	s.sink.HeapReady(frozen)
}

func (s *Stream) insertAscending(nh *heap.ReceiveHeap) {
	i := 0
	for i < len(s.live) && s.live[i].HeapCnt() < nh.HeapCnt() {
		i++
	}
	s.live = append(s.live, nil)
	copy(s.live[i+1:], s.live[i:])
	s.live[i] = nh
}

// evictOverCapacity drops and emits the lowest-id live heap, even if
// incomplete, whenever the live count exceeds maxHeaps.
func (s *Stream) evictOverCapacity() {
	if len(s.live) <= s.maxHeaps {
		return
	}
	evicted := s.live[0]
	s.live = s.live[1:]
	delete(s.firstSeen, evicted.HeapCnt())
	if s.metrics != nil {
		s.metrics.ObserveEviction()
	}
	s.sink.HeapReady(evicted.ForceFreeze())
}

// deferredStop requests a stop without blocking the caller — the only
// safe way to stop from inside AddPacket itself, which already runs
// on the strand; see the design note on end-of-stream triggers.
func (s *Stream) deferredStop() {
	if s.stopRequested {
		return
	}
	s.stopRequested = true
	s.strand.Post(s.performStop)
}

// Stop is the one blocking operation in the core: it posts a
// termination task to the strand and waits for it to finish, per
// spec §5. Safe to call from outside the strand at any time; must
// never be called from within a task already running on the strand
// (use deferredStop's pattern there instead — AddPacket already does).
func (s *Stream) Stop() {
	s.strand.PostSync(s.performStop)
}

func (s *Stream) performStop() {
	if s.stopped {
		return
	}
	for i := len(s.readers) - 1; i >= 0; i-- {
		s.readers[i].Stop()
	}
	s.Flush()
	s.stopped = true
}

// Flush delivers every live heap to the sink in ascending heap-count
// order and clears the live collection.
func (s *Stream) Flush() {
	for _, rh := range s.live {
		s.sink.HeapReady(rh.ForceFreeze())
	}
	s.live = nil
	s.firstSeen = make(map[uint64]time.Time)
}

// Stopped reports whether the stream has completed its stop sequence.
func (s *Stream) Stopped() bool { return s.stopped }

// LiveHeapCount returns the number of heaps currently in flight.
func (s *Stream) LiveHeapCount() int { return len(s.live) }
