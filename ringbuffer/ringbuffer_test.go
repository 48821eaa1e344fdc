package ringbuffer

import (
	"testing"
	"time"

	"spead/heap"
)

func TestPushPopFIFO(t *testing.T) {
	rb := New(4)
	a := &heap.FrozenHeap{}
	b := &heap.FrozenHeap{}

	if !rb.Push(a) {
		t.Fatal("expected Push(a) to succeed")
	}
	if !rb.Push(b) {
		t.Fatal("expected Push(b) to succeed")
	}

	got, ok := rb.Pop()
	if !ok || got != a {
		t.Fatalf("Pop() = %p, %v; want a", got, ok)
	}
	got, ok = rb.Pop()
	if !ok || got != b {
		t.Fatalf("Pop() = %p, %v; want b", got, ok)
	}
	if _, ok := rb.Pop(); ok {
		t.Fatal("expected Pop() on empty buffer to report not-ok")
	}
}

func TestPushRejectsWhenFull(t *testing.T) {
	rb := New(2)
	if !rb.Push(&heap.FrozenHeap{}) {
		t.Fatal("expected first push to succeed")
	}
	if !rb.Push(&heap.FrozenHeap{}) {
		t.Fatal("expected second push to succeed")
	}
	if rb.Push(&heap.FrozenHeap{}) {
		t.Fatal("expected third push to a size-2 buffer to fail")
	}
}

func TestPopBlockingWaitsForPush(t *testing.T) {
	rb := New(4)
	done := make(chan *heap.FrozenHeap, 1)
	go func() {
		h, ok := rb.PopBlocking()
		if ok {
			done <- h
		} else {
			done <- nil
		}
	}()

	time.Sleep(10 * time.Millisecond)
	h := &heap.FrozenHeap{}
	rb.Push(h)

	select {
	case got := <-done:
		if got != h {
			t.Fatalf("PopBlocking returned %p, want %p", got, h)
		}
	case <-time.After(time.Second):
		t.Fatal("PopBlocking did not return after Push")
	}
}

func TestStopUnblocksPopBlocking(t *testing.T) {
	rb := New(4)
	done := make(chan bool, 1)
	go func() {
		_, ok := rb.PopBlocking()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Stop()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected PopBlocking to report not-ok after Stop on an empty buffer")
		}
	case <-time.After(time.Second):
		t.Fatal("PopBlocking did not unblock after Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rb := New(4)
	rb.Stop()
	rb.Stop()
	if !rb.Stopped() {
		t.Fatal("expected Stopped() to report true")
	}
}
