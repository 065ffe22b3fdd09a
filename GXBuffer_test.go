package gxbridge

import (
	"math/rand"
	"sync"
	"testing"
)

func mustPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	f()
}

func TestArenaAcquireRelease(t *testing.T) {
	a := NewGXBufferArena(4)
	if a.Capacity() != 4 || a.Available() != 4 || a.InUse() != 0 {
		t.Fatalf("new arena: capacity %d available %d in use %d", a.Capacity(), a.Available(), a.InUse())
	}
	var got []*GXBuffer
	for i := 0; i < 4; i++ {
		b := a.Acquire()
		if b == nil {
			t.Fatalf("Acquire() %d returned nil", i)
		}
		if b.RefCount() != 1 || b.Len() != 0 || b.Cap() != BufferSize {
			t.Errorf("Acquire() refcount %d len %d cap %d", b.RefCount(), b.Len(), b.Cap())
		}
		got = append(got, b)
	}
	if b := a.Acquire(); b != nil {
		t.Errorf("Acquire() on empty arena = %p, want nil", b)
	}
	for _, b := range got {
		a.Release(b)
	}
	if a.Available() != 4 {
		t.Errorf("Available() = %d, want 4", a.Available())
	}
}

func TestArenaRetain(t *testing.T) {
	a := NewGXBufferArena(1)
	b := a.Acquire()
	b.Append([]byte("hello"))
	a.Retain(b)
	a.Retain(b)
	if b.RefCount() != 3 {
		t.Fatalf("RefCount() = %d, want 3", b.RefCount())
	}
	a.Release(b)
	a.Release(b)
	if a.Available() != 0 {
		t.Fatalf("buffer returned with holders left")
	}
	a.Release(b)
	if a.Available() != 1 {
		t.Fatalf("buffer not returned after last release")
	}
	b = a.Acquire()
	if b.Len() != 0 {
		t.Errorf("reacquired buffer has %d bytes", b.Len())
	}
}

func TestArenaShare(t *testing.T) {
	tests := []struct {
		name  string
		peers int
	}{
		{"one peer", 1},
		{"three peers", 3},
		{"many peers", 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewGXBufferArena(2)
			b := a.Acquire()
			a.Share(b, tt.peers)
			for i := 0; i < tt.peers; i++ {
				if a.Available() != 1 {
					t.Fatalf("buffer returned after %d of %d releases", i, tt.peers)
				}
				a.Release(b)
			}
			if a.Available() != 2 {
				t.Errorf("buffer not returned after %d releases", tt.peers)
			}
		})
	}
}

func TestArenaConcurrentRelease(t *testing.T) {
	const holders = 32
	a := NewGXBufferArena(1)
	b := a.Acquire()
	a.Share(b, holders)
	var wg sync.WaitGroup
	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Release(b)
		}()
	}
	wg.Wait()
	if a.Available() != 1 || b.RefCount() != 0 {
		t.Errorf("available %d refcount %d", a.Available(), b.RefCount())
	}
}

func TestArenaMisuse(t *testing.T) {
	a := NewGXBufferArena(1)
	other := NewGXBufferArena(1)
	b := a.Acquire()
	a.Release(b)
	mustPanic(t, "release of a free buffer", func() { a.Release(b) })
	mustPanic(t, "retain of a free buffer", func() { a.Retain(b) })
	mustPanic(t, "nil buffer", func() { a.Release(nil) })
	ob := other.Acquire()
	mustPanic(t, "foreign buffer", func() { a.Release(ob) })
	b = a.Acquire()
	a.Retain(b)
	mustPanic(t, "share of a shared buffer", func() { a.Share(b, 2) })
	mustPanic(t, "share to nobody", func() { a.Share(b, 0) })
	mustPanic(t, "empty arena", func() { NewGXBufferArena(0) })
}

func TestBufferData(t *testing.T) {
	a := NewGXBufferArena(1)
	b := a.Acquire()
	data := make([]byte, BufferSize+10)
	for i := range data {
		data[i] = byte(i)
	}
	if n := b.Append(data); n != BufferSize {
		t.Fatalf("Append() = %d, want %d", n, BufferSize)
	}
	if !b.IsFull() || len(b.Space()) != 0 {
		t.Errorf("buffer not full after Append")
	}
	if b.AppendByte(1) {
		t.Errorf("AppendByte() on full buffer = true")
	}
	b.SetLen(3)
	if got := b.Bytes(); len(got) != 3 || got[2] != 2 {
		t.Errorf("Bytes() = %v", got)
	}
	if len(b.Raw()) != BufferSize {
		t.Errorf("len(Raw()) = %d", len(b.Raw()))
	}
	mustPanic(t, "SetLen past capacity", func() { b.SetLen(BufferSize + 1) })
	mustPanic(t, "negative SetLen", func() { b.SetLen(-1) })
}

func TestArenaConservation(t *testing.T) {
	const count = 16
	a := NewGXBufferArena(count)
	r := rand.New(rand.NewSource(1))
	var held []*GXBuffer
	for i := 0; i < 10000; i++ {
		switch op := r.Intn(3); {
		case op == 0:
			if b := a.Acquire(); b != nil {
				held = append(held, b)
			}
		case op == 1 && len(held) > 0:
			b := held[r.Intn(len(held))]
			a.Retain(b)
			held = append(held, b)
		case op == 2 && len(held) > 0:
			k := r.Intn(len(held))
			a.Release(held[k])
			held = append(held[:k], held[k+1:]...)
		}
		out := map[*GXBuffer]bool{}
		for _, b := range held {
			out[b] = true
		}
		if len(out)+a.Available() != count {
			t.Fatalf("step %d: %d checked out + %d free != %d", i, len(out), a.Available(), count)
		}
	}
}
