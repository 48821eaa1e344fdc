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

package heap

import (
	"spead/flavour"
	"spead/wire"
)

// FrozenHeap is an immutable, completed or aged-out heap: it owns its
// payload buffer and the item pointers accumulated while it was a
// ReceiveHeap. Once created it is never mutated, so it is safe to
// hand across a ring buffer to a consumer goroutine.
type FrozenHeap struct {
	heapCnt  uint64
	flavour  flavour.Flavour
	payload  []byte
	pointers []ItemPointer
}

// HeapCnt returns the heap's identity.
func (f *FrozenHeap) HeapCnt() uint64 { return f.heapCnt }

// Flavour returns the flavour this heap was reassembled under.
func (f *FrozenHeap) Flavour() flavour.Flavour { return f.flavour }

// Payload returns the heap's reassembled payload bytes.
func (f *FrozenHeap) Payload() []byte { return f.payload }

// Items returns every non-standard item pointer accumulated while
// reassembling the heap.
func (f *FrozenHeap) Items() []ItemPointer { return f.pointers }

// ItemValue returns the bytes or immediate value for the item
// identified by id. For an address item, the returned slice views the
// payload from that item's offset to the start of whichever pointer
// holds the next-highest offset, or the end of the payload if none —
// mirroring the layout a descriptor's own sections use. For an
// immediate item it returns the value's 8 big-endian bytes. ok is
// false if no such item was recorded.
func (f *FrozenHeap) ItemValue(id wire.ItemID) ([]byte, bool) {
	var found ItemPointer
	have := false
	for _, p := range f.pointers {
		if p.ID == id {
			found = p
			have = true
			break
		}
	}
	if !have {
		return nil, false
	}
	if found.Immediate {
		buf := make([]byte, 8)
		v := found.Value
		for i := 7; i >= 0; i-- {
			buf[i] = byte(v)
			v >>= 8
		}
		return buf, true
	}

	end := uint64(len(f.payload))
	for _, p := range f.pointers {
		if !p.Immediate && p.Value > found.Value && p.Value < end {
			end = p.Value
		}
	}
	if found.Value > uint64(len(f.payload)) || end > uint64(len(f.payload)) {
		return nil, false
	}
	return f.payload[found.Value:end], true
}
