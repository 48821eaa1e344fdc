package descriptor

import (
	"testing"

	"spead/wire"
)

func TestRegistryPutGet(t *testing.T) {
	r := NewRegistry(4)
	d := Descriptor{ID: 9, Name: "vis"}
	r.Put(d)

	got, ok := r.Get(9)
	if !ok {
		t.Fatal("expected descriptor to be present")
	}
	if got.Name != "vis" {
		t.Errorf("Name = %q, want %q", got.Name, "vis")
	}

	if _, ok := r.Get(wire.ItemID(123)); ok {
		t.Error("expected absent descriptor to report not found")
	}
}

func TestRegistryOverwriteAndDelete(t *testing.T) {
	r := NewRegistry(4)
	r.Put(Descriptor{ID: 1, Name: "first"})
	r.Put(Descriptor{ID: 1, Name: "second"})

	got, ok := r.Get(1)
	if !ok || got.Name != "second" {
		t.Fatalf("Get(1) = %+v, %v; want name=second", got, ok)
	}

	r.Delete(1)
	if _, ok := r.Get(1); ok {
		t.Error("expected descriptor to be gone after Delete")
	}
}

func TestRegistryLenAcrossShards(t *testing.T) {
	r := NewRegistry(4)
	for i := wire.ItemID(1); i <= 10; i++ {
		r.Put(Descriptor{ID: i})
	}
	if got := r.Len(); got != 10 {
		t.Errorf("Len() = %d, want 10", got)
	}
}
