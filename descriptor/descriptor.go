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

// Package descriptor serializes and parses item descriptors — the
// standalone mini-heaps that describe one item's name, shape, and
// numeric format, per spec §4.3.
package descriptor

import (
	"sort"

	spdErrors "spead/errors"
	"spead/flavour"
	"spead/wire"
)

// FormatEntry is one (type_code, bit_width) pair in a descriptor's
// format list.
type FormatEntry struct {
	TypeCode byte
	BitWidth int
}

// Descriptor describes one item: its name, free-text description, the
// numeric format of each dimension's element, its shape (negative
// entries mean variable-length), and an optional raw numeric-dtype
// header, per spec §3 and §4.3.
type Descriptor struct {
	ID          wire.ItemID
	Name        string
	Description string
	Format      []FormatEntry
	Shape       []int64
	DType       []byte
}

var sectionOrder = []wire.ItemID{
	wire.IDDescriptorName,
	wire.IDDescriptorDescription,
	wire.IDDescriptorFormat,
	wire.IDDescriptorShape,
	wire.IDDescriptorDType,
}

// Encode serializes d into a standalone SPEAD packet under fl, per the
// field-width rules in spec §4.3. It fails with an invariant-violation
// error when d.ID lies outside the legal item-id range for fl.
func Encode(fl flavour.Flavour, d Descriptor) ([]byte, error) {
	if d.ID == 0 || uint64(d.ID) >= fl.MaxItemID() {
		return nil, spdErrors.ErrDescriptorIDOutOfRange
	}

	nameBytes := []byte(d.Name)
	descBytes := []byte(d.Description)
	formatBytes := encodeFormat(fl, d.Format)
	shapeBytes := encodeShape(fl, d.Shape)

	sections := [][]byte{nameBytes, descBytes, formatBytes, shapeBytes}
	if len(d.DType) > 0 {
		sections = append(sections, d.DType)
	}

	payload := make([]byte, 0, sumLen(sections))
	offsets := make([]uint64, len(sections))
	for i, s := range sections {
		offsets[i] = uint64(len(payload))
		payload = append(payload, s...)
	}

	extra := make([]wire.Pointer, 0, 1+len(sections))
	extra = append(extra, wire.Pointer{Immediate: true, ID: wire.IDDescriptorID, Value: uint64(d.ID)})
	for i := range sections {
		extra = append(extra, wire.Pointer{ID: sectionOrder[i], Value: offsets[i]})
	}

	h := wire.Header{
		HeapCnt:       1,
		HeapLength:    int64(len(payload)),
		PayloadOffset: 0,
		PayloadLength: uint64(len(payload)),
	}
	return wire.EncodeHeader(fl, h, extra, payload)
}

func sumLen(sections [][]byte) int {
	n := 0
	for _, s := range sections {
		n += len(s)
	}
	return n
}

func encodeFormat(fl flavour.Flavour, format []FormatEntry) []byte {
	fieldSize := fl.FieldSize()
	buf := make([]byte, len(format)*fieldSize)
	for i, f := range format {
		off := i * fieldSize
		buf[off] = f.TypeCode
		putBigEndianInt(buf[off+1:off+fieldSize], uint64(f.BitWidth))
	}
	return buf
}

func decodeFormat(fl flavour.Flavour, buf []byte) []FormatEntry {
	if len(buf) == 0 {
		return nil
	}
	fieldSize := fl.FieldSize()
	n := len(buf) / fieldSize
	out := make([]FormatEntry, n)
	for i := 0; i < n; i++ {
		off := i * fieldSize
		out[i] = FormatEntry{
			TypeCode: buf[off],
			BitWidth: int(getBigEndianInt(buf[off+1 : off+fieldSize])),
		}
	}
	return out
}

func encodeShape(fl flavour.Flavour, shape []int64) []byte {
	shapeSize := fl.ShapeSize()
	buf := make([]byte, len(shape)*shapeSize)
	variableTag := byte(1)
	if fl.BugCompatMask.Has(flavour.ShapeBit1) {
		variableTag = 2
	}
	for i, dim := range shape {
		off := i * shapeSize
		if dim < 0 {
			buf[off] = variableTag
			putBigEndianInt(buf[off+1:off+shapeSize], 0)
		} else {
			buf[off] = 0
			putBigEndianInt(buf[off+1:off+shapeSize], uint64(dim))
		}
	}
	return buf
}

func decodeShape(fl flavour.Flavour, buf []byte) []int64 {
	if len(buf) == 0 {
		return nil
	}
	shapeSize := fl.ShapeSize()
	n := len(buf) / shapeSize
	out := make([]int64, n)
	variableTag := byte(1)
	if fl.BugCompatMask.Has(flavour.ShapeBit1) {
		variableTag = 2
	}
	for i := 0; i < n; i++ {
		off := i * shapeSize
		if buf[off] == variableTag {
			out[i] = -1
		} else {
			out[i] = int64(getBigEndianInt(buf[off+1 : off+shapeSize]))
		}
	}
	return out
}

func putBigEndianInt(buf []byte, v uint64) {
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

func getBigEndianInt(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// Decode parses a standalone descriptor packet encoded by Encode under
// the same flavour. For any valid d, Decode(Encode(fl, d), fl) is
// structurally equal to d, per spec §8's round-trip law.
func Decode(buf []byte, fl flavour.Flavour) (Descriptor, error) {
	h, _, err := wire.DecodeHeader(buf)
	if err != nil {
		return Descriptor{}, err
	}

	var d Descriptor
	type section struct {
		id     wire.ItemID
		offset uint64
	}
	var sections []section
	for _, p := range h.NonStandard {
		switch p.ID {
		case wire.IDDescriptorID:
			d.ID = wire.ItemID(p.Value)
		case wire.IDDescriptorName, wire.IDDescriptorDescription, wire.IDDescriptorFormat,
			wire.IDDescriptorShape, wire.IDDescriptorDType:
			sections = append(sections, section{id: p.ID, offset: p.Value})
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].offset < sections[j].offset })

	payload := h.Payload
	for i, s := range sections {
		end := uint64(len(payload))
		if i+1 < len(sections) {
			end = sections[i+1].offset
		}
		content := payload[s.offset:end]
		switch s.id {
		case wire.IDDescriptorName:
			d.Name = string(content)
		case wire.IDDescriptorDescription:
			d.Description = string(content)
		case wire.IDDescriptorFormat:
			d.Format = decodeFormat(fl, content)
		case wire.IDDescriptorShape:
			d.Shape = decodeShape(fl, content)
		case wire.IDDescriptorDType:
			d.DType = append([]byte(nil), content...)
		}
	}
	return d, nil
}
