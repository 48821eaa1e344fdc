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
	"spead/descriptor"
	spdErrors "spead/errors"
	"spead/flavour"
	"spead/wire"
)

type sendItem struct {
	id        wire.ItemID
	data      []byte
	immediate bool
}

// SendHeap accumulates items and descriptors for one heap and, once
// populated, serializes them into an ordered packet stream per §4.6.
// A SendHeap is constructed, populated, serialized once, then
// discarded.
type SendHeap struct {
	flavour flavour.Flavour
	heapCnt uint64
	items   []sendItem
	err     error
}

// NewSendHeap constructs a heap for heapCnt under fl. It fails with an
// invariant-violation error if fl's heap_address_bits is out of range.
func NewSendHeap(fl flavour.Flavour, heapCnt uint64) (*SendHeap, error) {
	if err := fl.Validate(); err != nil {
		return nil, err
	}
	return &SendHeap{flavour: fl, heapCnt: heapCnt}, nil
}

// AddItem appends one item. When immediate is true, data's bytes
// (big-endian, at most 8) become the pointer's immediate value;
// otherwise data is placed into the heap payload and addressed by
// offset.
func (s *SendHeap) AddItem(id wire.ItemID, data []byte, immediate bool) {
	s.items = append(s.items, sendItem{id: id, data: data, immediate: immediate})
}

// AddDescriptor encodes d with the descriptor encoder and appends the
// result as a DESCRIPTOR-typed address item, retaining ownership of
// the encoded blob until Serialize completes.
func (s *SendHeap) AddDescriptor(d descriptor.Descriptor) error {
	blob, err := descriptor.Encode(s.flavour, d)
	if err != nil {
		s.err = err
		return err
	}
	s.items = append(s.items, sendItem{id: wire.IDDescriptor, data: blob})
	return nil
}

func immediateValue(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}

type packetSpan struct {
	start, end uint64
}

// Serialize produces an ordered sequence of packets, none exceeding
// maxPacket bytes, covering every accumulated item, per §4.6: every
// packet carries HEAP_CNT, HEAP_LENGTH (known up front, since all
// items are gathered before serialization), PAYLOAD_OFFSET, and
// PAYLOAD_LENGTH; every address-item pointer appears in the one
// packet whose payload span contains that item's data; every
// immediate-item pointer is carried once, in the first packet.
func (s *SendHeap) Serialize(maxPacket int) ([][]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	var payload []byte
	offsets := make([]uint64, len(s.items))
	for i, it := range s.items {
		if it.immediate {
			continue
		}
		offsets[i] = uint64(len(payload))
		payload = append(payload, it.data...)
	}
	totalLen := uint64(len(payload))

	// Reserve room for the 4 standard pointers plus every item's
	// pointer in the same packet, even though in practice a given
	// packet only carries the immediates (packet 0 only) and whichever
	// address pointers land in its span. This is conservative — it
	// never lets a packet's actual pointer count exceed what headroom
	// was reserved for, so maxPacket is never exceeded.
	headerOverhead := 8 + s.flavour.PointerWidthBytes()*(4+len(s.items))
	budget := maxPacket - headerOverhead
	if budget <= 0 {
		return nil, spdErrors.ErrInvalidBufferSize
	}

	spans := packetSpans(totalLen, uint64(budget))

	packets := make([][]byte, 0, len(spans))
	for spanIdx, span := range spans {
		var extra []wire.Pointer
		if spanIdx == 0 {
			for _, it := range s.items {
				if it.immediate {
					extra = append(extra, wire.Pointer{Immediate: true, ID: it.id, Value: immediateValue(it.data)})
				}
			}
		}
		for i, it := range s.items {
			if it.immediate {
				continue
			}
			inSpan := offsets[i] >= span.start && offsets[i] < span.end
			if spanIdx == len(spans)-1 && offsets[i] == span.end {
				// an empty item at the very end of the payload
				inSpan = true
			}
			if inSpan {
				extra = append(extra, wire.Pointer{ID: it.id, Value: offsets[i]})
			}
		}

		h := wire.Header{
			HeapCnt:       s.heapCnt,
			HeapLength:    int64(totalLen),
			PayloadOffset: span.start,
			PayloadLength: span.end - span.start,
		}
		buf, err := wire.EncodeHeader(s.flavour, h, extra, payload[span.start:span.end])
		if err != nil {
			return nil, err
		}
		packets = append(packets, buf)
	}
	return packets, nil
}

// packetSpans divides [0, totalLen) into consecutive spans of at most
// budget bytes, always returning at least one span (possibly empty)
// so a zero-payload heap still emits one packet.
func packetSpans(totalLen, budget uint64) []packetSpan {
	if totalLen == 0 {
		return []packetSpan{{0, 0}}
	}
	var spans []packetSpan
	for start := uint64(0); start < totalLen; {
		end := start + budget
		if end > totalLen {
			end = totalLen
		}
		spans = append(spans, packetSpan{start, end})
		start = end
	}
	return spans
}
