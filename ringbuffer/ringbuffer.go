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

// Package ringbuffer hands finished heaps from a stream's strand to a
// consumer goroutine, per spec §5, §6: bounded, safe for a single
// producer and single consumer, with blocking and non-blocking pop
// and a stop signal that breaks any waiting consumer.
package ringbuffer

import (
	"sync"
	"sync/atomic"

	"spead/heap"
)

// RingBuffer is a bounded single-producer/single-consumer queue of
// frozen heaps. The producer (a stream's strand) only ever advances
// tail; the consumer only ever advances head — the same division of
// labor as the teacher's lock-free ring, generalized here with a
// notify channel and a stop signal so Pop can block.
type RingBuffer struct {
	head, tail uint32
	capacity   uint32
	buf        []*heap.FrozenHeap

	notify   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a RingBuffer holding at most size elements.
func New(size uint32) *RingBuffer {
	if size == 0 {
		size = 1
	}
	return &RingBuffer{
		capacity: size + 1,
		buf:      make([]*heap.FrozenHeap, size+1),
		notify:   make(chan struct{}, size),
		stopCh:   make(chan struct{}),
	}
}

// Push attempts to enqueue h without blocking. It returns false if
// the buffer is full.
func (rb *RingBuffer) Push(h *heap.FrozenHeap) bool {
	curTail := atomic.LoadUint32(&rb.tail)
	nextTail := (curTail + 1) % rb.capacity
	if nextTail == atomic.LoadUint32(&rb.head) {
		return false
	}
	rb.buf[curTail] = h
	atomic.StoreUint32(&rb.tail, nextTail)
	select {
	case rb.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop dequeues the oldest heap without blocking. ok is false if the
// buffer is currently empty.
func (rb *RingBuffer) Pop() (h *heap.FrozenHeap, ok bool) {
	curHead := atomic.LoadUint32(&rb.head)
	if curHead == atomic.LoadUint32(&rb.tail) {
		return nil, false
	}
	h = rb.buf[curHead]
	rb.buf[curHead] = nil
	atomic.StoreUint32(&rb.head, (curHead+1)%rb.capacity)
	return h, true
}

// PopBlocking dequeues the oldest heap, waiting for one to arrive if
// the buffer is empty. It returns ok=false only once Stop has been
// called and the buffer has been fully drained.
func (rb *RingBuffer) PopBlocking() (h *heap.FrozenHeap, ok bool) {
	for {
		if h, ok = rb.Pop(); ok {
			return h, true
		}
		select {
		case <-rb.notify:
		case <-rb.stopCh:
			return rb.Pop()
		}
	}
}

// Stop marks the buffer stopped, waking any consumer blocked in
// PopBlocking. Idempotent.
func (rb *RingBuffer) Stop() {
	rb.stopOnce.Do(func() { close(rb.stopCh) })
}

// Stopped reports whether Stop has been called.
func (rb *RingBuffer) Stopped() bool {
	select {
	case <-rb.stopCh:
		return true
	default:
		return false
	}
}

// Len returns the number of heaps currently queued.
func (rb *RingBuffer) Len() uint32 {
	tail := atomic.LoadUint32(&rb.tail)
	head := atomic.LoadUint32(&rb.head)
	if tail >= head {
		return tail - head
	}
	return rb.capacity - head + tail
}
