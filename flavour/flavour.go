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

// Package flavour holds the three integers that parameterize the SPEAD
// wire format: item-pointer width, heap-address-bit count, and the
// bug-compatibility bitmask. Every heap and every packet header carries
// exactly one flavour.
package flavour

import (
	spdErrors "spead/errors"
)

// BugCompat names interop workarounds for known-faulty SPEAD producers.
// Bit assignments are this implementation's own choice; only stability
// within a build is required by spec §3.
type BugCompat uint32

const (
	// DescriptorWidths forces 4-byte format fields and 8-byte shape
	// fields in descriptor encoding, regardless of flavour.
	DescriptorWidths BugCompat = 1 << 0
	// ShapeBit1 marks a variable-shape dimension with tag bit 1
	// instead of bit 0.
	ShapeBit1 BugCompat = 1 << 1
)

func (b BugCompat) Has(bit BugCompat) bool {
	return b&bit != 0
}

// Flavour is the triple (pointer width, heap-address-bits, bug-compat
// mask) that parameterizes the wire format, per spec §3.
type Flavour struct {
	PointerWidthBits int
	HeapAddressBits  int
	BugCompatMask    BugCompat
}

// Default matches SPEAD's conventional 64-bit item pointer with a
// 40-bit heap address (23-bit item id) and no bug-compat bits set.
func Default() Flavour {
	return Flavour{PointerWidthBits: 64, HeapAddressBits: 40}
}

// Validate enforces the legal range in spec §3: heap_address_bits must
// be a positive multiple of 8 strictly below the pointer width.
func (f Flavour) Validate() error {
	if f.PointerWidthBits <= 0 || f.PointerWidthBits%8 != 0 {
		return spdErrors.ErrInvalidHeapAddressBits
	}
	if f.HeapAddressBits <= 0 || f.HeapAddressBits%8 != 0 || f.HeapAddressBits >= f.PointerWidthBits {
		return spdErrors.ErrInvalidHeapAddressBits
	}
	return nil
}

// PointerWidthBytes returns the item-pointer width in bytes.
func (f Flavour) PointerWidthBytes() int {
	return f.PointerWidthBits / 8
}

// HeapAddressBytes returns the heap-address field width in bytes, the
// value encoded on the wire as the header's heap-address-bytes field.
func (f Flavour) HeapAddressBytes() int {
	return f.HeapAddressBits / 8
}

// ItemIDBits returns the number of bits available to an item id under
// this flavour: pointer_width - 1 - heap_address_bits.
func (f Flavour) ItemIDBits() int {
	return f.PointerWidthBits - 1 - f.HeapAddressBits
}

// MaxItemID returns the largest legal item id (exclusive upper bound)
// for this flavour, used to range-check descriptor ids at encode time.
func (f Flavour) MaxItemID() uint64 {
	return uint64(1) << uint(f.ItemIDBits())
}

// MaxAddress returns the largest representable heap-address value
// (exclusive upper bound) under this flavour.
func (f Flavour) MaxAddress() uint64 {
	return uint64(1) << uint(f.HeapAddressBits)
}

// FieldSize returns the descriptor encoder's bytes-per-format-entry
// width, per spec §4.3.
func (f Flavour) FieldSize() int {
	if f.BugCompatMask.Has(DescriptorWidths) {
		return 4
	}
	return f.PointerWidthBytes() + 1 - f.HeapAddressBytes()
}

// ShapeSize returns the descriptor encoder's bytes-per-shape-entry
// width, per spec §4.3.
func (f Flavour) ShapeSize() int {
	if f.BugCompatMask.Has(DescriptorWidths) {
		return 8
	}
	return 1 + f.HeapAddressBytes()
}
