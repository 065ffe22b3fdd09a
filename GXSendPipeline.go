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

// GXSendPipeline orders the buffers an endpoint transmits. At most one
// buffer is in flight; the rest wait in a bounded backlog. An optional filter
// transforms every buffer before it is queued.
//
// The pipeline is not safe for concurrent use. The goroutine that drives the
// endpoint owns it.
type GXSendPipeline struct {
	arena    *GXBufferArena
	backlog  *GXRingQueue[*GXBuffer]
	filter   IGXFilter
	pending  *GXBuffer
	transmit func(b *GXBuffer) error

	dropped uint64
}

// NewGXSendPipeline creates a pipeline with a backlog of backlogSize buffers.
// filter may be nil. transmit starts sending a buffer and must not block
// until the send completes.
func NewGXSendPipeline(arena *GXBufferArena, backlogSize int, filter IGXFilter, transmit func(b *GXBuffer) error) *GXSendPipeline {
	return &GXSendPipeline{
		arena:    arena,
		backlog:  NewGXRingQueue[*GXBuffer](backlogSize),
		filter:   filter,
		transmit: transmit,
	}
}

// Pending returns the buffer in flight or nil.
func (p *GXSendPipeline) Pending() *GXBuffer {
	return p.pending
}

// Backlog returns the number of buffers waiting for the transport.
func (p *GXSendPipeline) Backlog() int {
	return p.backlog.Len()
}

// Dropped returns the number of buffers lost because the backlog was full.
func (p *GXSendPipeline) Dropped() uint64 {
	return p.dropped
}

// Filter returns the filter or nil.
func (p *GXSendPipeline) Filter() IGXFilter {
	return p.filter
}

// PrepareSend takes ownership of b. It returns true when the caller must
// transmit Pending() now.
func (p *GXSendPipeline) PrepareSend(b *GXBuffer) bool {
	if b == nil {
		panic("gxbridge: nil buffer sent")
	}
	if p.filter == nil {
		return p.prepareDirect(b)
	}
	return p.prepareFiltered(b)
}

func (p *GXSendPipeline) prepareDirect(b *GXBuffer) bool {
	if p.pending == nil {
		p.pending = b
		return true
	}
	p.queue(b)
	return false
}

func (p *GXSendPipeline) prepareFiltered(b *GXBuffer) bool {
	count := p.filter.Process(b)
	sendNow := p.pending == nil && count > 0
	if sendNow {
		p.pending = p.filter.GetResult()
		count--
	}
	for ; count > 0; count-- {
		p.queue(p.filter.GetResult())
	}
	return sendNow
}

func (p *GXSendPipeline) queue(b *GXBuffer) {
	if !p.backlog.TryPush(b) {
		p.dropped++
		p.arena.Release(b)
	}
}

// OnDataSent releases the buffer in flight and starts the next one.
func (p *GXSendPipeline) OnDataSent() error {
	if p.pending == nil {
		panic("gxbridge: send completed with nothing in flight")
	}
	p.arena.Release(p.pending)
	p.pending = nil
	b, ok := p.backlog.TryPop()
	if !ok {
		return nil
	}
	p.pending = b
	return p.transmit(b)
}

// DiscardBacklog releases every queued buffer. The buffer in flight is kept
// until its completion is reported.
func (p *GXSendPipeline) DiscardBacklog() int {
	n := 0
	for {
		b, ok := p.backlog.TryPop()
		if !ok {
			return n
		}
		p.arena.Release(b)
		n++
	}
}
