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

package wire

import (
	"encoding/binary"

	"spead/flavour"
)

// Pointer is one decoded item pointer: an id plus either an immediate
// value or a payload byte offset, per spec §3.
type Pointer struct {
	Immediate bool
	ID        ItemID
	Value     uint64
}

// EncodeImmediate packs an immediate item pointer under fl, validating
// 0 < id < 2^item_id_bits and 0 <= value < 2^heap_address_bits, per
// spec §4.2.
func EncodeImmediate(fl flavour.Flavour, id ItemID, value uint64) (uint64, error) {
	return encodePointer(fl, true, id, value)
}

// EncodeAddress packs an address item pointer (immediate flag clear)
// under fl, with the same range validation as EncodeImmediate.
func EncodeAddress(fl flavour.Flavour, id ItemID, offset uint64) (uint64, error) {
	return encodePointer(fl, false, id, offset)
}

func encodePointer(fl flavour.Flavour, immediate bool, id ItemID, value uint64) (uint64, error) {
	if id == 0 || uint64(id) >= fl.MaxItemID() {
		return 0, errOutOfRange("item id")
	}
	if value >= fl.MaxAddress() {
		return 0, errOutOfRange("pointer value")
	}
	word := uint64(id)<<uint(fl.HeapAddressBits) | value
	if immediate {
		word |= uint64(1) << uint(fl.PointerWidthBits-1)
	}
	return word, nil
}

// DecodePointer unpacks a raw item-pointer word under fl into its
// (immediate, id, value) triple, per spec §4.2.
func DecodePointer(fl flavour.Flavour, word uint64) Pointer {
	immMask := uint64(1) << uint(fl.PointerWidthBits-1)
	addrMask := fl.MaxAddress() - 1
	idMask := fl.MaxItemID() - 1

	return Pointer{
		Immediate: word&immMask != 0,
		ID:        ItemID((word >> uint(fl.HeapAddressBits)) & idMask),
		Value:     word & addrMask,
	}
}

// readPointerWord reads one flavour-width big-endian pointer word from
// buf[0:fl.PointerWidthBytes()].
func readPointerWord(fl flavour.Flavour, buf []byte) uint64 {
	switch fl.PointerWidthBytes() {
	case 8:
		return binary.BigEndian.Uint64(buf)
	case 4:
		return uint64(binary.BigEndian.Uint32(buf))
	default:
		var v uint64
		for _, b := range buf[:fl.PointerWidthBytes()] {
			v = v<<8 | uint64(b)
		}
		return v
	}
}

// writePointerWord writes one flavour-width big-endian pointer word to
// buf[0:fl.PointerWidthBytes()].
func writePointerWord(fl flavour.Flavour, buf []byte, word uint64) {
	switch fl.PointerWidthBytes() {
	case 8:
		binary.BigEndian.PutUint64(buf, word)
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(word))
	default:
		n := fl.PointerWidthBytes()
		for i := n - 1; i >= 0; i-- {
			buf[i] = byte(word)
			word >>= 8
		}
	}
}

func errOutOfRange(what string) error {
	return &RangeError{what: what}
}

// RangeError reports an out-of-range item id or pointer value at
// encode time — an invariant violation per spec §7 category 2.
type RangeError struct{ what string }

func (e *RangeError) Error() string { return "spead: " + e.what + " out of range for flavour" }
