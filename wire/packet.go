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

// Package wire implements the shared SPEAD packet grammar used by both
// the receive and send sides: the 8-byte packet header, the item
// pointer encoding, and the reserved item ids, per spec §4.1, §4.2, §6.
package wire

import (
	"encoding/binary"
	"fmt"

	"spead/flavour"
)

const headerSize = 8

// HeapLengthUnknown is the sentinel Header.HeapLength carries when no
// HEAP_LENGTH pointer has been observed yet.
const HeapLengthUnknown int64 = -1

// Header is the decoded form of one packet header, per spec §3.
type Header struct {
	Flavour       flavour.Flavour
	HeapCnt       uint64
	HeapLength    int64 // HeapLengthUnknown if not present
	PayloadOffset uint64
	PayloadLength uint64
	NonStandard   []Pointer
	Payload       []byte // slice into the original buffer, not copied
}

// DecodeError reports a malformed packet. Callers must stop scanning
// the byte stream after one — there is no resync point, per spec §4.1.
type DecodeError struct {
	reason string
}

func (e *DecodeError) Error() string { return "spead: malformed packet: " + e.reason }

func malformed(format string, args ...interface{}) (Header, int, error) {
	return Header{}, 0, &DecodeError{reason: fmt.Sprintf(format, args...)}
}

// DecodeHeader parses one packet's header and item pointers from buf,
// returning the decoded header and the total number of bytes the
// packet occupies (header + pointers + payload). On any malformed
// field it returns consumed=0 and a *DecodeError, per spec §4.1.
func DecodeHeader(buf []byte) (Header, int, error) {
	if len(buf) < headerSize {
		return malformed("buffer shorter than packet header")
	}

	magic := binary.BigEndian.Uint16(buf[0:2])
	if magic != Magic {
		return malformed("bad magic %#x", magic)
	}

	pointerWidthTag := int(buf[2])
	heapAddressBytes := int(buf[3])
	nItems := int(binary.BigEndian.Uint32(buf[4:8]))

	fl := flavour.Flavour{
		PointerWidthBits: (pointerWidthTag + heapAddressBytes) * 8,
		HeapAddressBits:  heapAddressBytes * 8,
	}
	if err := fl.Validate(); err != nil {
		return malformed("invalid flavour: %v", err)
	}

	pointerBytes := fl.PointerWidthBytes()
	pointersEnd := headerSize + nItems*pointerBytes
	if pointersEnd > len(buf) {
		return malformed("item pointers exceed remaining buffer")
	}

	h := Header{Flavour: fl, HeapLength: HeapLengthUnknown}
	haveHeapCnt := false

	for i := 0; i < nItems; i++ {
		off := headerSize + i*pointerBytes
		word := readPointerWord(fl, buf[off:off+pointerBytes])
		ptr := DecodePointer(fl, word)

		switch ptr.ID {
		case IDHeapCnt:
			h.HeapCnt = ptr.Value
			haveHeapCnt = true
		case IDHeapLength:
			h.HeapLength = int64(ptr.Value)
		case IDPayloadOffset:
			h.PayloadOffset = ptr.Value
		case IDPayloadLength:
			h.PayloadLength = ptr.Value
		default:
			h.NonStandard = append(h.NonStandard, ptr)
		}
	}
	if !haveHeapCnt {
		return malformed("missing HEAP_CNT pointer")
	}

	payloadEnd := pointersEnd + int(h.PayloadLength)
	if payloadEnd > len(buf) {
		return malformed("declared payload length exceeds remaining buffer")
	}

	h.Payload = buf[pointersEnd:payloadEnd]
	return h, payloadEnd, nil
}

// EncodeHeader is the inverse of DecodeHeader, used only by the
// sender: it serializes h's standard pointers plus extra into one
// packet, followed by payload. extra's ordering is preserved verbatim.
func EncodeHeader(fl flavour.Flavour, h Header, extra []Pointer, payload []byte) ([]byte, error) {
	words := make([]uint64, 0, 4+len(extra))

	w, err := EncodeImmediate(fl, IDHeapCnt, h.HeapCnt)
	if err != nil {
		return nil, err
	}
	words = append(words, w)

	if h.HeapLength != HeapLengthUnknown {
		if w, err = EncodeImmediate(fl, IDHeapLength, uint64(h.HeapLength)); err != nil {
			return nil, err
		}
		words = append(words, w)
	}

	if w, err = EncodeImmediate(fl, IDPayloadOffset, h.PayloadOffset); err != nil {
		return nil, err
	}
	words = append(words, w)

	if w, err = EncodeImmediate(fl, IDPayloadLength, h.PayloadLength); err != nil {
		return nil, err
	}
	words = append(words, w)

	for _, p := range extra {
		var word uint64
		if p.Immediate {
			word, err = EncodeImmediate(fl, p.ID, p.Value)
		} else {
			word, err = EncodeAddress(fl, p.ID, p.Value)
		}
		if err != nil {
			return nil, err
		}
		words = append(words, word)
	}

	pointerBytes := fl.PointerWidthBytes()
	buf := make([]byte, headerSize+len(words)*pointerBytes+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], Magic)
	buf[2] = byte(pointerBytes - fl.HeapAddressBytes())
	buf[3] = byte(fl.HeapAddressBytes())
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(words)))

	for i, word := range words {
		off := headerSize + i*pointerBytes
		writePointerWord(fl, buf[off:off+pointerBytes], word)
	}
	copy(buf[headerSize+len(words)*pointerBytes:], payload)
	return buf, nil
}
