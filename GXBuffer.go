package gxbridge

// --------------------------------------------------------------------------
//
//	Gurux Ltd
//
// Filename:        $HeadURL$
//
// Version:         $Revision$,
//
//	$Date$
//	$Author$
//
// # Copyright (c) Gurux Ltd
//
// ---------------------------------------------------------------------------
//
//	DESCRIPTION
//
// This file is a part of Gurux Device Framework.
//
// Gurux Device Framework is Open Source software; you can redistribute it
// and/or modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2 of the License.
// Gurux Device Framework is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU General Public License for more details.
//
// More information of Gurux products: https://www.gurux.org
//
// This code is licensed under the GNU General Public License v2.
// Full text may be retrieved at http://www.gnu.org/licenses/gpl-2.0.txt
// ---------------------------------------------------------------------------

import (
	"fmt"
	"sync/atomic"
)

const (
	// BufferSize is the capacity of every arena buffer in bytes.
	BufferSize = 1024
	// DefaultBufferCount is the number of buffers in the arena when not configured.
	DefaultBufferCount = 2048
)

// GXBuffer is a fixed size byte buffer checked out from a GXBufferArena.
// A buffer exists only inside its arena. Holders get it from Acquire and
// give it back with Release; Retain adds a holder.
type GXBuffer struct {
	refCount atomic.Int32
	length   int
	arena    *GXBufferArena
	data     [BufferSize]byte
}

// Bytes returns the data part of the buffer.
func (b *GXBuffer) Bytes() []byte {
	return b.data[:b.length]
}

// Space returns the unused part of the buffer.
func (b *GXBuffer) Space() []byte {
	return b.data[b.length:]
}

// Raw returns the whole storage of the buffer, regardless of the data length.
// Readers fill it and call SetLen with the number of bytes written.
func (b *GXBuffer) Raw() []byte {
	return b.data[:]
}

// Len returns the data length.
func (b *GXBuffer) Len() int {
	return b.length
}

// Cap returns the buffer capacity.
func (b *GXBuffer) Cap() int {
	return len(b.data)
}

// SetLen sets the data length.
func (b *GXBuffer) SetLen(n int) {
	if n < 0 || n > len(b.data) {
		panic(fmt.Sprintf("gxbridge: buffer length %d out of range [0, %d]", n, len(b.data)))
	}
	b.length = n
}

// Append copies as much of p as fits and returns the number of bytes copied.
func (b *GXBuffer) Append(p []byte) int {
	n := copy(b.data[b.length:], p)
	b.length += n
	return n
}

// AppendByte adds one byte. It returns false if the buffer is full.
func (b *GXBuffer) AppendByte(c byte) bool {
	if b.length == len(b.data) {
		return false
	}
	b.data[b.length] = c
	b.length++
	return true
}

// IsFull returns true when no space is left.
func (b *GXBuffer) IsFull() bool {
	return b.length == len(b.data)
}

// RefCount returns the number of holders.
func (b *GXBuffer) RefCount() int {
	return int(b.refCount.Load())
}

// GXBufferArena is a fixed set of buffers allocated once.
// The free set is a buffered channel, so Acquire and Release may be called
// from any goroutine.
type GXBufferArena struct {
	buffers []GXBuffer
	free    chan *GXBuffer
}

// NewGXBufferArena allocates count buffers.
func NewGXBufferArena(count int) *GXBufferArena {
	if count <= 0 {
		panic("gxbridge: arena needs at least one buffer")
	}
	a := &GXBufferArena{
		buffers: make([]GXBuffer, count),
		free:    make(chan *GXBuffer, count),
	}
	for i := range a.buffers {
		a.buffers[i].arena = a
		a.free <- &a.buffers[i]
	}
	return a
}

// Capacity returns the total number of buffers.
func (a *GXBufferArena) Capacity() int {
	return len(a.buffers)
}

// Available returns the number of free buffers.
func (a *GXBufferArena) Available() int {
	return len(a.free)
}

// InUse returns the number of checked out buffers.
func (a *GXBufferArena) InUse() int {
	return len(a.buffers) - len(a.free)
}

// Acquire returns an empty buffer with one holder, or nil when the arena is
// exhausted. Nil is backpressure, not an error.
func (a *GXBufferArena) Acquire() *GXBuffer {
	select {
	case b := <-a.free:
		b.length = 0
		b.refCount.Store(1)
		return b
	default:
		return nil
	}
}

// Retain adds a holder to a checked out buffer.
func (a *GXBufferArena) Retain(b *GXBuffer) {
	a.check(b)
	for {
		n := b.refCount.Load()
		if n <= 0 {
			panic("gxbridge: retain of a free buffer")
		}
		if b.refCount.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// Share hands a buffer held only by the caller to n holders.
// The caller gives up its own reference. n must be positive.
func (a *GXBufferArena) Share(b *GXBuffer, n int) {
	a.check(b)
	if n <= 0 {
		panic(fmt.Sprintf("gxbridge: invalid share count %d", n))
	}
	if !b.refCount.CompareAndSwap(1, int32(n)) {
		panic(fmt.Sprintf("gxbridge: share of a buffer with %d holders", b.refCount.Load()))
	}
}

// Release drops one holder. The last release returns the buffer to the arena.
func (a *GXBufferArena) Release(b *GXBuffer) {
	a.check(b)
	for {
		n := b.refCount.Load()
		if n <= 0 {
			panic("gxbridge: release of a free buffer")
		}
		if !b.refCount.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			b.length = 0
			a.free <- b
		}
		return
	}
}

func (a *GXBufferArena) check(b *GXBuffer) {
	if b == nil {
		panic("gxbridge: nil buffer")
	}
	if b.arena != a {
		panic("gxbridge: buffer belongs to another arena")
	}
}
