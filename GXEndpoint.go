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
	"net"
	"sync"
	"sync/atomic"

	"github.com/Gurux/gxcommon-go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// IGXEndpoint is one side of the bridge: the serial port or a network peer.
//
// The bridge calls every method from a single goroutine. Blocking transport
// work runs on goroutines owned by the endpoint, which report completions as
// events on the channel given to Open.
type IGXEndpoint interface {
	fmt.Stringer

	// Open starts the transport. Completions are posted to events.
	Open(events chan<- GXEvent) error

	// OnEvent handles an event posted by this endpoint. A non-nil buffer is
	// received data owned by the caller. An error means the endpoint failed.
	OnEvent(e GXEvent) (*GXBuffer, error)

	// Send takes ownership of b and starts or queues its transmission.
	// It returns false if the transport failed.
	Send(b *GXBuffer) bool

	// Resume re-arms a receive that stalled because the arena was empty.
	Resume() error

	// Close stops the transport and waits for its goroutines.
	Close() error
}

// EventKind tells what completed.
type EventKind int

const (
	// EventConnected reports an accepted connection.
	EventConnected EventKind = iota + 1
	// EventReceived reports a finished read.
	EventReceived
	// EventSent reports a finished write.
	EventSent
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventReceived:
		return "Received"
	case EventSent:
		return "Sent"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// GXEvent is a completion posted by an endpoint goroutine.
type GXEvent struct {
	Source IGXEndpoint
	Kind   EventKind
	// Buffer read into or written from.
	Buffer *GXBuffer
	// Bytes transferred.
	Count int
	Err   error
	// Accepted connection for EventConnected.
	Conn net.Conn
	// Connection the event belongs to.
	Generation uint64
}

// TraceEventHandler receives trace messages.
type TraceEventHandler func(sender string, e gxcommon.TraceEventArgs)

// ErrorEventHandler receives errors.
type ErrorEventHandler func(sender string, err error)

// MediaStateHandler receives state changes.
type MediaStateHandler func(sender string, e gxcommon.MediaStateEventArgs)

// tracer holds the event handlers and the message printer.
type tracer struct {
	name       string
	mu         sync.RWMutex
	traceLevel gxcommon.TraceLevel
	onTrace    TraceEventHandler
	onErr      ErrorEventHandler
	onState    MediaStateHandler
	p          *message.Printer
}

func (t *tracer) initTracer(name string) {
	t.name = name
	t.p = message.NewPrinter(language.AmericanEnglish)
}

// GetTrace returns the trace level.
func (t *tracer) GetTrace() gxcommon.TraceLevel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.traceLevel
}

// SetTrace sets the trace level.
func (t *tracer) SetTrace(traceLevel gxcommon.TraceLevel) error {
	t.mu.Lock()
	t.traceLevel = traceLevel
	t.mu.Unlock()
	return nil
}

// SetOnTrace sets the trace handler.
func (t *tracer) SetOnTrace(value TraceEventHandler) {
	t.mu.Lock()
	t.onTrace = value
	t.mu.Unlock()
}

// SetOnError sets the error handler.
func (t *tracer) SetOnError(value ErrorEventHandler) {
	t.mu.Lock()
	t.onErr = value
	t.mu.Unlock()
}

// SetOnMediaStateChange sets the state handler.
func (t *tracer) SetOnMediaStateChange(value MediaStateHandler) {
	t.mu.Lock()
	t.onState = value
	t.mu.Unlock()
}

// Localize messages for the specified language.
// No errors is returned if language is not supported.
func (t *tracer) Localize(tag language.Tag) {
	t.mu.Lock()
	t.p = message.NewPrinter(tag)
	t.mu.Unlock()
}

func (t *tracer) msg(key string, a ...any) string {
	t.mu.RLock()
	p := t.p
	t.mu.RUnlock()
	return p.Sprintf(key, a...)
}

// tracing returns true if traceType messages are emitted.
func (t *tracer) tracing(traceType gxcommon.TraceTypes) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onTrace != nil && !(int(t.traceLevel) < int(traceType))
}

func (t *tracer) trace(traceType gxcommon.TraceTypes, text string) {
	t.mu.RLock()
	cb := t.onTrace
	trace := !(int(t.traceLevel) < int(traceType))
	t.mu.RUnlock()
	if cb != nil && trace {
		cb(t.name, *gxcommon.NewTraceEventArgs(traceType, text, ""))
	}
}

func (t *tracer) tracef(traceType gxcommon.TraceTypes, format string, a ...any) {
	if t.tracing(traceType) {
		t.trace(traceType, fmt.Sprintf(format, a...))
	}
}

// traceData traces a transferred buffer as "RX: ..." or "TX: ...".
func (t *tracer) traceData(traceType gxcommon.TraceTypes, prefix string, data []byte) {
	if !t.tracing(traceType) {
		return
	}
	str, err := gxcommon.ToString(data)
	if err != nil {
		t.tracef(gxcommon.TraceTypesError, "%s failed: %v", prefix, err)
		return
	}
	t.tracef(traceType, "%s: %s", prefix, str)
}

func (t *tracer) errorf(err error) {
	t.mu.RLock()
	cb := t.onErr
	t.mu.RUnlock()
	if cb != nil {
		cb(t.name, err)
	}
}

func (t *tracer) statef(state gxcommon.MediaState) {
	t.mu.RLock()
	cb := t.onState
	t.mu.RUnlock()
	if cb != nil {
		cb(t.name, *gxcommon.NewMediaStateEventArgs(state))
	}
}

// endpointBase is the transport independent part of an endpoint: the send
// pipeline, the I/O goroutines and the counters.
type endpointBase struct {
	tracer
	arena    *GXBufferArena
	pipeline *GXSendPipeline
	self     IGXEndpoint
	transmit func(b *GXBuffer) error
	events   chan<- GXEvent
	stop     chan struct{}
	wg       sync.WaitGroup

	// Loop owned.
	rxStalled bool

	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

func (e *endpointBase) init(self IGXEndpoint, name string, arena *GXBufferArena, backlog int, filter IGXFilter, transmit func(b *GXBuffer) error) {
	e.initTracer(name)
	e.self = self
	e.arena = arena
	e.transmit = transmit
	e.pipeline = NewGXSendPipeline(arena, backlog, filter, transmit)
	e.stop = make(chan struct{})
}

// String returns the endpoint name.
func (e *endpointBase) String() string {
	return e.name
}

// Pipeline returns the send pipeline.
func (e *endpointBase) Pipeline() *GXSendPipeline {
	return e.pipeline
}

// GetBytesSent returns the number of bytes sent.
func (e *endpointBase) GetBytesSent() uint64 {
	return e.bytesSent.Load()
}

// GetBytesReceived returns the number of bytes received.
func (e *endpointBase) GetBytesReceived() uint64 {
	return e.bytesReceived.Load()
}

// ResetByteCounters resets the sent and received byte counters.
func (e *endpointBase) ResetByteCounters() {
	e.bytesSent.Store(0)
	e.bytesReceived.Store(0)
}

// post delivers ev to the loop. It returns false if the endpoint is closing.
func (e *endpointBase) post(ev GXEvent) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.stop:
		return false
	}
}

// receiver reads into every buffer it is given and reports the result.
func (e *endpointBase) receiver(gen uint64, read func([]byte) (int, error), req <-chan *GXBuffer) {
	defer e.wg.Done()
	for b := range req {
		n, err := read(b.Raw())
		if !e.post(GXEvent{Source: e.self, Kind: EventReceived, Buffer: b, Count: n, Err: err, Generation: gen}) {
			return
		}
		if err != nil {
			return
		}
	}
}

// sender writes every buffer it is given and reports the result.
func (e *endpointBase) sender(gen uint64, write func([]byte) (int, error), req <-chan *GXBuffer) {
	defer e.wg.Done()
	for b := range req {
		data := b.Bytes()
		var (
			n   int
			err error
		)
		for n < len(data) && err == nil {
			var cnt int
			cnt, err = write(data[n:])
			n += cnt
		}
		if !e.post(GXEvent{Source: e.self, Kind: EventSent, Buffer: b, Count: n, Err: err, Generation: gen}) {
			return
		}
	}
}

// startReceiving hands a fresh buffer to the receiver. Without free buffers
// the receive stalls until Resume.
func (e *endpointBase) startReceiving(req chan<- *GXBuffer) {
	b := e.arena.Acquire()
	if b == nil {
		if !e.rxStalled {
			e.trace(gxcommon.TraceTypesError, e.msg("msg.receive_stalled", e.name))
		}
		e.rxStalled = true
		return
	}
	if e.rxStalled {
		e.trace(gxcommon.TraceTypesInfo, e.msg("msg.receive_resumed", e.name))
		e.rxStalled = false
	}
	req <- b
}

// onReceived completes a read. It returns the buffer if it holds data.
func (e *endpointBase) onReceived(ev GXEvent) *GXBuffer {
	b := ev.Buffer
	if ev.Count <= 0 {
		e.arena.Release(b)
		return nil
	}
	b.SetLen(ev.Count)
	e.bytesReceived.Add(uint64(ev.Count))
	e.traceData(gxcommon.TraceTypesReceived, "RX", b.Bytes())
	return b
}

// onSent completes a write and starts the next one.
func (e *endpointBase) onSent(ev GXEvent) error {
	if ev.Err == nil {
		e.bytesSent.Add(uint64(ev.Count))
		e.traceData(gxcommon.TraceTypesSent, "TX", ev.Buffer.Bytes())
	}
	return e.pipeline.OnDataSent()
}

// queueSend passes b to the pipeline and hands it to the sender if idle.
func (e *endpointBase) queueSend(b *GXBuffer) bool {
	dropped := e.pipeline.Dropped()
	ok := true
	if e.pipeline.PrepareSend(b) {
		if err := e.transmit(e.pipeline.Pending()); err != nil {
			e.trace(gxcommon.TraceTypesError, e.msg("msg.send_failed", e.name, err))
			e.errorf(err)
			ok = false
		}
	}
	if d := e.pipeline.Dropped(); d != dropped {
		e.trace(gxcommon.TraceTypesError, e.msg("msg.backlog_full", e.name, d-dropped))
		e.errorf(fmt.Errorf("%s: %w", e.name, ErrBacklogFull))
	}
	return ok
}
