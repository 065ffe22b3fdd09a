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

// IGXFilter is a stream transform placed in front of an endpoint's sender.
// It keeps its parse state between calls.
type IGXFilter interface {
	// Process consumes b, releasing it to the arena, and returns the number
	// of output buffers ready to be fetched with GetResult.
	Process(b *GXBuffer) int

	// GetResult returns one output buffer or nil. The caller owns it.
	GetResult() *GXBuffer
}

// filterBase holds the output queue and the candidate store shared by
// filters that may have to give back data they held on speculation.
type filterBase struct {
	arena *GXBufferArena
	// Buffers ready to be sent.
	passQueue *GXRingQueue[*GXBuffer]
	// Bytes held while deciding whether they belong to a packet.
	candidate []byte
	// Output buffer being filled.
	out *GXBuffer

	droppedBytes uint64
}

func newFilterBase(arena *GXBufferArena, maxPassBuffers, maxCandidate int) filterBase {
	return filterBase{
		arena:     arena,
		passQueue: NewGXRingQueue[*GXBuffer](maxPassBuffers),
		candidate: make([]byte, 0, maxCandidate),
	}
}

// GetResult returns one filtered buffer or nil.
func (f *filterBase) GetResult() *GXBuffer {
	if b, ok := f.passQueue.TryPop(); ok {
		return b
	}
	return nil
}

// DroppedBytes returns the number of output bytes lost to arena or queue exhaustion.
func (f *filterBase) DroppedBytes() uint64 {
	return f.droppedBytes
}

// emit appends c to the current output buffer, queuing it when full.
func (f *filterBase) emit(c byte) {
	if f.out == nil {
		if f.out = f.arena.Acquire(); f.out == nil {
			f.droppedBytes++
			return
		}
	}
	f.out.AppendByte(c)
	if f.out.IsFull() {
		f.flushOut()
	}
}

// flushOut queues the current output buffer if it holds data.
func (f *filterBase) flushOut() {
	b := f.out
	if b == nil {
		return
	}
	f.out = nil
	if b.Len() == 0 {
		f.arena.Release(b)
		return
	}
	f.enqueue(b)
}

func (f *filterBase) enqueue(b *GXBuffer) {
	if !f.passQueue.TryPush(b) {
		f.droppedBytes += uint64(b.Len())
		f.arena.Release(b)
	}
}

// undoCandidate passes the held bytes through in buffers of the standard size
// and clears the candidate store.
func (f *filterBase) undoCandidate() {
	f.flushOut()
	src := f.candidate
	for len(src) > 0 {
		b := f.arena.Acquire()
		if b == nil {
			f.droppedBytes += uint64(len(src))
			break
		}
		src = src[b.Append(src):]
		f.enqueue(b)
	}
	f.candidate = f.candidate[:0]
}
