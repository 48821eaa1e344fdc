package wire

import (
	"bytes"
	"testing"

	"spead/flavour"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fl := flavour.Default()
	payload := []byte("hello heap")

	h := Header{
		Flavour:       fl,
		HeapCnt:       7,
		HeapLength:    HeapLengthUnknown,
		PayloadOffset: 0,
		PayloadLength: uint64(len(payload)),
	}

	buf, err := EncodeHeader(fl, h, nil, payload)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}

	got, consumed, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
	if got.HeapCnt != 7 {
		t.Errorf("HeapCnt = %d, want 7", got.HeapCnt)
	}
	if got.HeapLength != HeapLengthUnknown {
		t.Errorf("HeapLength = %d, want unknown", got.HeapLength)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, payload)
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	buf := make([]byte, 8)
	buf[0], buf[1] = 0x00, 0x00
	_, consumed, err := DecodeHeader(buf)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0 on failure", consumed)
	}
}

func TestDecodeHeaderTruncatedPointers(t *testing.T) {
	fl := flavour.Default()
	h := Header{Flavour: fl, HeapCnt: 1, HeapLength: HeapLengthUnknown}
	buf, err := EncodeHeader(fl, h, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, consumed, err := DecodeHeader(buf[:len(buf)-4])
	if err == nil {
		t.Fatal("expected error for truncated pointers")
	}
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0", consumed)
	}
}

func TestDecodeHeaderPayloadOverflow(t *testing.T) {
	fl := flavour.Default()
	h := Header{
		Flavour:       fl,
		HeapCnt:       1,
		HeapLength:    HeapLengthUnknown,
		PayloadLength: 100,
	}
	buf, err := EncodeHeader(fl, h, nil, make([]byte, 100))
	if err != nil {
		t.Fatal(err)
	}
	_, consumed, err := DecodeHeader(buf[:len(buf)-50])
	if err == nil {
		t.Fatal("expected error for payload exceeding buffer")
	}
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0", consumed)
	}
}

func TestDecodeHeaderNonStandardPointers(t *testing.T) {
	fl := flavour.Default()
	h := Header{Flavour: fl, HeapCnt: 9, HeapLength: HeapLengthUnknown}
	extra := []Pointer{{Immediate: true, ID: IDStreamCtrl, Value: uint64(StreamCtrlStreamStop)}}
	buf, err := EncodeHeader(fl, h, extra, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.NonStandard) != 1 || got.NonStandard[0].ID != IDStreamCtrl {
		t.Fatalf("NonStandard = %+v, want one STREAM_CTRL pointer", got.NonStandard)
	}
	if got.NonStandard[0].Value != uint64(StreamCtrlStreamStop) {
		t.Errorf("STREAM_CTRL value = %d, want %d", got.NonStandard[0].Value, StreamCtrlStreamStop)
	}
}

func TestHeapAddressBitsBoundaries(t *testing.T) {
	for _, bits := range []int{8, 56} {
		fl := flavour.Flavour{PointerWidthBits: 64, HeapAddressBits: bits}
		if err := fl.Validate(); err != nil {
			t.Errorf("Validate(%d) = %v, want nil", bits, err)
		}
	}
	for _, bits := range []int{0, 64, 65, 7} {
		fl := flavour.Flavour{PointerWidthBits: 64, HeapAddressBits: bits}
		if err := fl.Validate(); err == nil {
			t.Errorf("Validate(%d) = nil, want error", bits)
		}
	}
}
