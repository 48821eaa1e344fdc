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

// Package heap implements in-progress heap reassembly on the receive
// side, the immutable frozen heap handed to consumers, and the
// send-side heap builder, per spec §3, §4.4, §4.6.
package heap

import (
	"github.com/golang/glog"

	spdErrors "spead/errors"
	"spead/flavour"
	"spead/memorypool"
	"spead/wire"
)

// ItemPointer is one item pointer accumulated by a heap, in
// host-readable form.
type ItemPointer struct {
	ID        wire.ItemID
	Immediate bool
	Value     uint64
}

const heapLengthUnknown = -1

// ReceiveHeap is the in-progress reassembly of one heap, identified by
// its heap count. It is not safe for concurrent use — callers must
// serialize access (the owning stream's strand does this).
type ReceiveHeap struct {
	heapCnt        uint64
	flavourLocked  bool
	flavour        flavour.Flavour
	heapLength     int64 // heapLengthUnknown until a HEAP_LENGTH pointer is seen
	receivedLength uint64
	minLength      uint64
	payload        []byte
	seenOffsets    map[uint64]struct{}
	pointers       []ItemPointer
	endOfStream    bool
	pool           memorypool.Pool
}

// NewReceiveHeap creates an empty heap for heapCnt. pool may be nil,
// in which case payload growth allocates directly.
func NewReceiveHeap(heapCnt uint64, pool memorypool.Pool) *ReceiveHeap {
	return &ReceiveHeap{
		heapCnt:     heapCnt,
		heapLength:  heapLengthUnknown,
		seenOffsets: make(map[uint64]struct{}),
		pool:        pool,
	}
}

// HeapCnt returns the identity this heap was created for.
func (h *ReceiveHeap) HeapCnt() uint64 { return h.heapCnt }

// EndOfStream reports whether any accepted packet carried a
// STREAM_CTRL end-of-stream marker.
func (h *ReceiveHeap) EndOfStream() bool { return h.endOfStream }

// AddPacket accepts or rejects hdr per spec §4.4. On acceptance it
// mutates the heap's reassembly state and returns true; on rejection
// the heap is left unchanged and it returns false.
func (h *ReceiveHeap) AddPacket(hdr wire.Header) bool {
	if hdr.HeapCnt != h.heapCnt {
		return false
	}
	if h.flavourLocked && hdr.Flavour != h.flavour {
		if glog.V(1) {
			glog.Infof("heap %d: rejecting packet with mismatched flavour %+v (locked %+v)", h.heapCnt, hdr.Flavour, h.flavour)
		}
		return false
	}

	if hdr.HeapLength != wire.HeapLengthUnknown {
		if h.heapLength != heapLengthUnknown && h.heapLength != hdr.HeapLength {
			return false
		}
	}
	declaredHeapLength := h.heapLength
	if hdr.HeapLength != wire.HeapLengthUnknown {
		declaredHeapLength = hdr.HeapLength
	}
	packetEnd := hdr.PayloadOffset + hdr.PayloadLength
	if declaredHeapLength != heapLengthUnknown && packetEnd > uint64(declaredHeapLength) {
		return false
	}

	if _, dup := h.seenOffsets[hdr.PayloadOffset]; dup {
		return false
	}

	if declaredHeapLength != heapLengthUnknown {
		for _, p := range hdr.NonStandard {
			if !p.Immediate && p.Value > uint64(declaredHeapLength) {
				return false
			}
		}
	}

	if !h.flavourLocked {
		h.flavour = hdr.Flavour
		h.flavourLocked = true
	}
	if hdr.HeapLength != wire.HeapLengthUnknown {
		h.heapLength = hdr.HeapLength
	}

	h.reserve(packetEnd)
	copy(h.payload[hdr.PayloadOffset:packetEnd], hdr.Payload)
	h.seenOffsets[hdr.PayloadOffset] = struct{}{}

	for _, p := range hdr.NonStandard {
		ptr := ItemPointer{ID: p.ID, Immediate: p.Immediate, Value: p.Value}
		h.pointers = append(h.pointers, ptr)
		if p.ID == wire.IDStreamCtrl && p.Immediate && p.Value == uint64(wire.StreamCtrlStreamStop) {
			h.endOfStream = true
		}
	}

	h.receivedLength += hdr.PayloadLength
	if packetEnd > h.minLength {
		h.minLength = packetEnd
	}
	for _, p := range hdr.NonStandard {
		if !p.Immediate && p.Value > h.minLength {
			h.minLength = p.Value
		}
	}

	return true
}

// reserve grows h.payload to at least n bytes. When h.heapLength is
// known the final size is allocated exactly; otherwise capacity
// doubles, and growth never zeroes the newly exposed tail — callers
// must only read offsets recorded in h.seenOffsets.
func (h *ReceiveHeap) reserve(n uint64) {
	if uint64(len(h.payload)) >= n {
		return
	}
	var target uint64
	if h.heapLength != heapLengthUnknown {
		target = uint64(h.heapLength)
	} else {
		target = uint64(len(h.payload))
		if target == 0 {
			target = n
		}
		for target < n {
			target *= 2
		}
	}
	grown := h.allocate(int(target))
	copy(grown, h.payload)
	h.payload = grown
}

func (h *ReceiveHeap) allocate(size int) []byte {
	if h.pool != nil {
		return h.pool.Allocate(size)
	}
	return make([]byte, size)
}

// IsComplete reports heap_length ≥ 0 ∧ received_length == heap_length.
func (h *ReceiveHeap) IsComplete() bool {
	return h.heapLength >= 0 && h.receivedLength == uint64(h.heapLength)
}

// IsContiguous reports that the seen offsets, taken with their
// lengths, cover [0, min_length) exactly and every non-immediate
// pointer address lies within that range.
func (h *ReceiveHeap) IsContiguous() bool {
	return h.receivedLength == h.minLength
}

// Freeze converts a contiguous heap into an immutable FrozenHeap. It
// fails if the heap is not contiguous.
func (h *ReceiveHeap) Freeze() (*FrozenHeap, error) {
	if !h.IsContiguous() {
		return nil, spdErrors.ErrHeapNotContiguous
	}
	return &FrozenHeap{
		heapCnt:  h.heapCnt,
		flavour:  h.flavour,
		payload:  h.payload[:h.minLength],
		pointers: h.pointers,
	}, nil
}

// ForceFreeze freezes the heap's current state regardless of
// contiguity, for the stream's eviction and flush paths: the consumer
// may still want partial data from a heap that never completed. Bytes
// outside the ranges the accepted packets actually wrote are not
// zeroed; callers that care must cross-reference against the item
// pointers, the same obligation IsContiguous would otherwise enforce.
func (h *ReceiveHeap) ForceFreeze() *FrozenHeap {
	end := h.minLength
	if end > uint64(len(h.payload)) {
		end = uint64(len(h.payload))
	}
	return &FrozenHeap{
		heapCnt:  h.heapCnt,
		flavour:  h.flavour,
		payload:  h.payload[:end],
		pointers: h.pointers,
	}
}
