package descriptor

import (
	"reflect"
	"testing"

	"spead/flavour"
	"spead/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fl := flavour.Default()
	d := Descriptor{
		ID:          42,
		Name:        "timestamp",
		Description: "ADC sample count",
		Format:      []FormatEntry{{TypeCode: 'u', BitWidth: 32}},
		Shape:       []int64{-1, 4},
	}

	buf, err := Encode(fl, d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(buf, fl)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, d) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

// TestEncodeNineItemPointers pins the descriptor item-pointer count for a
// single-format, two-dimension descriptor with no numeric-dtype header:
// HEAP_CNT, HEAP_LENGTH, PAYLOAD_OFFSET, PAYLOAD_LENGTH, DESCRIPTOR_ID,
// plus one address pointer per payload section (name, description,
// format, shape).
func TestEncodeNineItemPointers(t *testing.T) {
	fl := flavour.Default()
	d := Descriptor{
		ID:     7,
		Name:   "vis",
		Format: []FormatEntry{{TypeCode: 'u', BitWidth: 32}},
		Shape:  []int64{-1, 4},
	}

	buf, err := Encode(fl, d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h, _, err := wire.DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	// 4 standard pointers (HEAP_CNT, HEAP_LENGTH, PAYLOAD_OFFSET,
	// PAYLOAD_LENGTH) don't land in NonStandard; the other 5 do.
	if len(h.NonStandard) != 5 {
		t.Fatalf("NonStandard pointer count = %d, want 5", len(h.NonStandard))
	}
}

func TestEncodeRejectsOutOfRangeID(t *testing.T) {
	fl := flavour.Default()
	if _, err := Encode(fl, Descriptor{ID: 0}); err == nil {
		t.Fatal("expected error for id == 0")
	}
	if _, err := Encode(fl, Descriptor{ID: wire.ItemID(fl.MaxItemID())}); err == nil {
		t.Fatal("expected error for id at MaxItemID")
	}
}

func TestEncodeDecodeWithDType(t *testing.T) {
	fl := flavour.Default()
	d := Descriptor{
		ID:    3,
		Name:  "x",
		DType: []byte{'>', 'f', '4'},
	}

	buf, err := Encode(fl, d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf, fl)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, d) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestShapeBugCompatVariants(t *testing.T) {
	shape := []int64{-1, 3, -1}

	fl := flavour.Default()
	buf, err := Encode(fl, Descriptor{ID: 1, Shape: shape})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf, fl)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Shape, shape) {
		t.Fatalf("shape = %v, want %v", got.Shape, shape)
	}

	flBug := flavour.Default()
	flBug.BugCompatMask = flavour.ShapeBit1
	buf, err = Encode(flBug, Descriptor{ID: 1, Shape: shape})
	if err != nil {
		t.Fatal(err)
	}
	got, err = Decode(buf, flBug)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Shape, shape) {
		t.Fatalf("shape (bug-compat) = %v, want %v", got.Shape, shape)
	}
}
