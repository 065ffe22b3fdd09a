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
	"strconv"
	"sync"

	"github.com/Gurux/gxcommon-go"
)

// NetBacklog is the number of buffers queued for a network peer while a
// write is in progress.
const NetBacklog = 128

// netConn is one accepted connection.
type netConn struct {
	conn  net.Conn
	gen   uint64
	rxReq chan *GXBuffer
	txReq chan *GXBuffer
}

// GXNetEndpoint listens on a TCP port and serves one peer at a time.
// The next connection is accepted after the current peer disconnects.
type GXNetEndpoint struct {
	endpointBase
	host string
	port int

	// Guards listener.
	mu        sync.Mutex
	listener  net.Listener
	acceptReq chan struct{}

	// Loop owned.
	gen uint64
	c   *netConn
}

// NewGXNetEndpoint creates an endpoint listening on host:port. filter may be nil.
func NewGXNetEndpoint(name string, host string, port int, arena *GXBufferArena, filter IGXFilter) *GXNetEndpoint {
	e := &GXNetEndpoint{host: host, port: port}
	e.init(e, name, arena, NetBacklog, filter, e.transmitBuffer)
	return e
}

// Addr returns the address the endpoint listens on, or nil if it is not open.
func (e *GXNetEndpoint) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// IsConnected returns true while a peer is connected.
func (e *GXNetEndpoint) IsConnected() bool {
	return e.c != nil
}

// Open implements IGXEndpoint.
func (e *GXNetEndpoint) Open(events chan<- GXEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		return nil
	}
	e.statef(gxcommon.MediaStateOpening)
	l, err := net.Listen("tcp", net.JoinHostPort(e.host, strconv.Itoa(e.port)))
	if err != nil {
		e.trace(gxcommon.TraceTypesError, e.msg("msg.open_failed", e.name, err))
		e.errorf(err)
		e.statef(gxcommon.MediaStateClosed)
		return fmt.Errorf("%s: %w", e.name, err)
	}
	e.listener = l
	e.events = events
	e.stop = make(chan struct{})
	e.acceptReq = make(chan struct{}, 1)
	e.wg.Add(1)
	go e.acceptor(l, e.acceptReq)
	e.acceptReq <- struct{}{}
	e.trace(gxcommon.TraceTypesInfo, e.msg("msg.listening", e.name, l.Addr()))
	e.statef(gxcommon.MediaStateOpen)
	return nil
}

// acceptor accepts one connection per request.
func (e *GXNetEndpoint) acceptor(l net.Listener, req <-chan struct{}) {
	defer e.wg.Done()
	for range req {
		conn, err := l.Accept()
		if !e.post(GXEvent{Source: e, Kind: EventConnected, Conn: conn, Err: err}) {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			return
		}
	}
}

// OnEvent implements IGXEndpoint. A lost peer is not an error.
func (e *GXNetEndpoint) OnEvent(ev GXEvent) (*GXBuffer, error) {
	switch ev.Kind {
	case EventConnected:
		if ev.Err != nil {
			e.errorf(ev.Err)
			return nil, fmt.Errorf("%s: accept failed: %w", e.name, ev.Err)
		}
		e.connect(ev.Conn)
		return nil, nil
	case EventReceived:
		if e.c == nil || ev.Generation != e.c.gen {
			// Completion from a closed connection.
			e.arena.Release(ev.Buffer)
			return nil, nil
		}
		if ev.Err != nil {
			e.arena.Release(ev.Buffer)
			e.disconnect()
			return nil, nil
		}
		b := e.onReceived(ev)
		e.startReceiving(e.c.rxReq)
		return b, nil
	case EventSent:
		if e.c == nil || ev.Generation != e.c.gen {
			// The peer is gone. Drop the buffer and move to the next one.
			return nil, e.pipeline.OnDataSent()
		}
		if ev.Err != nil {
			e.disconnect()
			return nil, e.pipeline.OnDataSent()
		}
		return nil, e.onSent(ev)
	}
	return nil, fmt.Errorf("%s: unexpected %s event", e.name, ev.Kind)
}

func (e *GXNetEndpoint) connect(conn net.Conn) {
	e.gen++
	c := &netConn{
		conn:  conn,
		gen:   e.gen,
		rxReq: make(chan *GXBuffer, 1),
		txReq: make(chan *GXBuffer, 1),
	}
	e.c = c
	e.wg.Add(2)
	go e.receiver(c.gen, conn.Read, c.rxReq)
	go e.sender(c.gen, conn.Write, c.txReq)
	e.trace(gxcommon.TraceTypesInfo, e.msg("msg.connected", e.name, conn.RemoteAddr()))
	e.startReceiving(c.rxReq)
}

// disconnect drops the peer, releases the backlog and accepts the next peer.
// A buffer in flight is released when its completion arrives.
func (e *GXNetEndpoint) disconnect() {
	e.dropConn()
	e.pipeline.DiscardBacklog()
	e.trace(gxcommon.TraceTypesInfo, e.msg("msg.disconnected", e.name))
	e.acceptReq <- struct{}{}
}

func (e *GXNetEndpoint) dropConn() {
	c := e.c
	if c == nil {
		return
	}
	e.c = nil
	e.rxStalled = false
	_ = c.conn.Close()
	close(c.rxReq)
	close(c.txReq)
}

// Send implements IGXEndpoint. Without a peer the data is dropped.
func (e *GXNetEndpoint) Send(b *GXBuffer) bool {
	if e.c == nil {
		e.arena.Release(b)
		return true
	}
	return e.queueSend(b)
}

func (e *GXNetEndpoint) transmitBuffer(b *GXBuffer) error {
	if e.c == nil {
		return ErrNotOpen
	}
	select {
	case e.c.txReq <- b:
		return nil
	default:
		return errSenderBusy
	}
}

// Resume implements IGXEndpoint.
func (e *GXNetEndpoint) Resume() error {
	if e.rxStalled && e.c != nil {
		e.startReceiving(e.c.rxReq)
	}
	return nil
}

// Close implements IGXEndpoint.
func (e *GXNetEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	e.trace(gxcommon.TraceTypesInfo, e.msg("msg.closing_connection", e.name))
	e.statef(gxcommon.MediaStateClosing)
	close(e.stop)
	err := e.listener.Close()
	close(e.acceptReq)
	e.dropConn()
	e.wg.Wait()
	e.listener = nil
	e.trace(gxcommon.TraceTypesInfo, e.msg("msg.connection_closed", e.name))
	e.statef(gxcommon.MediaStateClosed)
	return err
}
