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
	"sync/atomic"
)

// GXRingQueue is a fixed capacity FIFO of blocks, each holding blockLength
// items of type T. It is safe for one producer goroutine and one consumer
// goroutine without locks: the producer only decrements the free block count
// and the consumer only increments it.
//
// Producer:
//  1. Back returns the block at the write position.
//  2. Push enqueues it.
//
// Consumer:
//  1. Front returns the block at the read position.
//  2. Pop dequeues it.
//
// TryPush and TryPop copy the first item of a block.
type GXRingQueue[T any] struct {
	buf         []T
	blockLength int
	numBlocks   int
	numFree     atomic.Int32
	// Owned by the producer.
	writeIndex int
	// Owned by the consumer.
	readIndex int
}

// NewGXRingQueue allocates a queue of capacity single item blocks.
func NewGXRingQueue[T any](capacity int) *GXRingQueue[T] {
	return NewGXBlockQueue[T](capacity, 1)
}

// NewGXBlockQueue allocates a queue of numBlocks blocks of blockLength items.
func NewGXBlockQueue[T any](numBlocks, blockLength int) *GXRingQueue[T] {
	if numBlocks < 0 {
		panic("gxbridge: negative queue capacity")
	}
	q := NewGXBlockQueueWithBuffer[T](nil, blockLength)
	q.SetBuffer(make([]T, numBlocks*blockLength))
	return q
}

// NewGXBlockQueueWithBuffer uses external storage for the queue.
// The capacity is len(buf)/blockLength blocks.
func NewGXBlockQueueWithBuffer[T any](buf []T, blockLength int) *GXRingQueue[T] {
	if blockLength <= 0 {
		panic("gxbridge: block length must be positive")
	}
	q := &GXRingQueue[T]{blockLength: blockLength}
	q.SetBuffer(buf)
	return q
}

// SetBuffer binds the queue to buf and clears it.
// Neither side may use the queue while this is called.
func (q *GXRingQueue[T]) SetBuffer(buf []T) {
	q.buf = buf
	q.numBlocks = len(buf) / q.blockLength
	q.Clear()
}

// Clear discards all blocks. Neither side may use the queue while this is called.
func (q *GXRingQueue[T]) Clear() {
	q.writeIndex = 0
	q.readIndex = 0
	q.numFree.Store(int32(q.numBlocks))
}

// Cap returns the number of blocks the queue holds.
func (q *GXRingQueue[T]) Cap() int {
	return q.numBlocks
}

// BlockLength returns the number of items in a block.
func (q *GXRingQueue[T]) BlockLength() int {
	return q.blockLength
}

// Free returns the number of free blocks.
func (q *GXRingQueue[T]) Free() int {
	return int(q.numFree.Load())
}

// Len returns the number of queued blocks.
func (q *GXRingQueue[T]) Len() int {
	return q.numBlocks - int(q.numFree.Load())
}

// Back returns the block at the write position, or nil if the queue is full.
// The caller fills it and calls Push.
func (q *GXRingQueue[T]) Back() []T {
	// The consumer can only add free blocks, so the answer cannot go stale.
	if q.numFree.Load() > 0 {
		return q.block(q.writeIndex)
	}
	return nil
}

// Push enqueues the block returned by Back.
func (q *GXRingQueue[T]) Push() {
	if q.numFree.Load() <= 0 {
		panic("gxbridge: push to a full queue")
	}
	q.writeIndex = q.advance(q.writeIndex)
	q.numFree.Add(-1)
}

// TryPush enqueues value. It returns false and leaves the queue unchanged if
// the queue is full.
func (q *GXRingQueue[T]) TryPush(value T) bool {
	b := q.Back()
	if b == nil {
		return false
	}
	b[0] = value
	q.Push()
	return true
}

// Front returns the block at the read position, or nil if the queue is empty.
// The caller reads it and calls Pop.
func (q *GXRingQueue[T]) Front() []T {
	// The producer can only take free blocks, so the answer cannot go stale.
	if int(q.numFree.Load()) < q.numBlocks {
		return q.block(q.readIndex)
	}
	return nil
}

// Pop dequeues the block returned by Front.
func (q *GXRingQueue[T]) Pop() {
	if int(q.numFree.Load()) >= q.numBlocks {
		panic("gxbridge: pop from an empty queue")
	}
	b := q.block(q.readIndex)
	var zero T
	for i := range b {
		b[i] = zero
	}
	q.readIndex = q.advance(q.readIndex)
	q.numFree.Add(1)
}

// TryPop dequeues the first item of the front block.
// ok is false if the queue is empty.
func (q *GXRingQueue[T]) TryPop() (value T, ok bool) {
	b := q.Front()
	if b == nil {
		return value, false
	}
	value = b[0]
	q.Pop()
	return value, true
}

func (q *GXRingQueue[T]) block(index int) []T {
	start := index * q.blockLength
	return q.buf[start : start+q.blockLength : start+q.blockLength]
}

func (q *GXRingQueue[T]) advance(index int) int {
	index++
	if index >= q.numBlocks {
		index = 0
	}
	return index
}
