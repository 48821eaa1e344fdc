package heap

import (
	"bytes"
	"testing"

	"spead/descriptor"
	"spead/flavour"
	"spead/wire"
)

func TestSendHeapSingleSmallPacket(t *testing.T) {
	fl := flavour.Default()
	s, err := NewSendHeap(fl, 5)
	if err != nil {
		t.Fatal(err)
	}
	s.AddItem(wire.ItemID(0x20), []byte{0, 0, 0, 0, 0, 0, 0, 42}, true)
	s.AddItem(wire.ItemID(0x21), []byte("payload-bytes"), false)

	packets, err := s.Serialize(4096)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("len(packets) = %d, want 1", len(packets))
	}

	h, _, err := wire.DecodeHeader(packets[0])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h.HeapCnt != 5 {
		t.Errorf("HeapCnt = %d, want 5", h.HeapCnt)
	}
	if !bytes.Equal(h.Payload, []byte("payload-bytes")) {
		t.Errorf("Payload = %q, want %q", h.Payload, "payload-bytes")
	}

	var sawImmediate, sawAddress bool
	for _, p := range h.NonStandard {
		switch p.ID {
		case wire.ItemID(0x20):
			sawImmediate = p.Immediate && p.Value == 42
		case wire.ItemID(0x21):
			sawAddress = !p.Immediate && p.Value == 0
		}
	}
	if !sawImmediate {
		t.Error("expected immediate item 0x20 with value 42")
	}
	if !sawAddress {
		t.Error("expected address item 0x21 at offset 0")
	}
}

func TestSendHeapSplitsAcrossMultiplePackets(t *testing.T) {
	fl := flavour.Default()
	s, err := NewSendHeap(fl, 9)
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte{0xCD}, 64)
	s.AddItem(wire.ItemID(0x20), payload, false)

	// headerOverhead for one item under the default flavour is
	// 8 + 8*(4+1) = 48, so a maxPacket of 64 leaves a 16-byte budget
	// per packet.
	packets, err := s.Serialize(64)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(packets) != 4 {
		t.Fatalf("len(packets) = %d, want 4", len(packets))
	}

	var reassembled []byte
	var sawAddressPointer int
	for _, buf := range packets {
		h, _, err := wire.DecodeHeader(buf)
		if err != nil {
			t.Fatalf("DecodeHeader: %v", err)
		}
		reassembled = append(reassembled, h.Payload...)
		for _, p := range h.NonStandard {
			if p.ID == wire.ItemID(0x20) {
				sawAddressPointer++
			}
		}
	}
	if !bytes.Equal(reassembled, payload) {
		t.Errorf("reassembled payload mismatch")
	}
	if sawAddressPointer != 1 {
		t.Errorf("address pointer appeared in %d packets, want exactly 1", sawAddressPointer)
	}
}

func TestSendHeapZeroPayloadProducesOnePacket(t *testing.T) {
	fl := flavour.Default()
	s, err := NewSendHeap(fl, 1)
	if err != nil {
		t.Fatal(err)
	}
	packets, err := s.Serialize(4096)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("len(packets) = %d, want 1", len(packets))
	}
}

func TestSendHeapAddDescriptor(t *testing.T) {
	fl := flavour.Default()
	s, err := NewSendHeap(fl, 2)
	if err != nil {
		t.Fatal(err)
	}
	d := descriptor.Descriptor{ID: 1, Name: "x"}
	if err := s.AddDescriptor(d); err != nil {
		t.Fatalf("AddDescriptor: %v", err)
	}

	packets, err := s.Serialize(4096)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	h, _, err := wire.DecodeHeader(packets[0])
	if err != nil {
		t.Fatal(err)
	}
	var sawDescriptor bool
	for _, p := range h.NonStandard {
		if p.ID == wire.IDDescriptor {
			sawDescriptor = true
		}
	}
	if !sawDescriptor {
		t.Error("expected a DESCRIPTOR item pointer")
	}
}
