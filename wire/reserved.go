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

// ItemID is the identifier carried by one item pointer.
type ItemID uint64

// Reserved item ids, fixed by SPEAD and preserved byte-for-byte per
// spec §6. The five descriptor sub-item ids (name/description/format/
// shape/dtype) are not given explicit numeric values by spec §6 beyond
// "DESCRIPTOR=0x10 (+ sub-IDs)" — this implementation assigns them the
// values real SPEAD producers use, 0x11-0x15, keeping 0x10 itself for
// the DESCRIPTOR item that embeds an encoded descriptor inside a heap.
const (
	IDHeapCnt       ItemID = 0x01
	IDHeapLength    ItemID = 0x02
	IDPayloadOffset ItemID = 0x03
	IDPayloadLength ItemID = 0x04
	IDDescriptorID  ItemID = 0x05
	IDStreamCtrl    ItemID = 0x06

	IDDescriptor ItemID = 0x10

	IDDescriptorName        ItemID = 0x11
	IDDescriptorDescription ItemID = 0x12
	IDDescriptorFormat      ItemID = 0x13
	IDDescriptorShape       ItemID = 0x14
	IDDescriptorDType       ItemID = 0x15
)

// StreamCtrlStreamStop is the immediate value carried by a STREAM_CTRL item
// that marks the end of a stream.
const StreamCtrlStreamStop uint64 = 0x02

// Magic is the fixed two-byte value every packet header must carry in
// its top 16 bits.
const Magic uint16 = 0x5304
