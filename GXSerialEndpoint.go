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
	"errors"
	"fmt"
	"sync"

	"github.com/Gurux/gxcommon-go"
)

// SerialBacklog is the number of buffers queued for the serial port while a
// write is in progress.
const SerialBacklog = 256

// errSenderBusy is returned when a transmission is started while the
// previous one is still in progress.
var errSenderBusy = errors.New("sender busy")

// GXSerialEndpoint is the serial side of the bridge.
type GXSerialEndpoint struct {
	endpointBase
	Port     string
	baudRate gxcommon.BaudRate
	dataBits int
	stopBits gxcommon.StopBits
	parity   gxcommon.Parity

	// Guards open and close.
	mu    sync.Mutex
	s     port
	rxReq chan *GXBuffer
	txReq chan *GXBuffer
}

// NewGXSerialEndpoint creates a serial endpoint for the given port.
func NewGXSerialEndpoint(port string,
	baudRate gxcommon.BaudRate,
	dataBits int,
	parity gxcommon.Parity,
	stopBits gxcommon.StopBits,
	arena *GXBufferArena) *GXSerialEndpoint {
	g := &GXSerialEndpoint{Port: port, baudRate: baudRate, dataBits: dataBits, stopBits: stopBits, parity: parity}
	g.init(g, port, arena, SerialBacklog, nil, g.transmitBuffer)
	return g
}

// NewGXSerialEndpointFromSettings creates a serial endpoint from the bridge settings.
func NewGXSerialEndpointFromSettings(settings *GXSettings, arena *GXBufferArena) *GXSerialEndpoint {
	return NewGXSerialEndpoint(settings.Port, settings.BaudRate, settings.DataBits, settings.Parity, settings.StopBits, arena)
}

// GetPortNames retrurns list of available serial ports.
func GetPortNames() ([]string, error) {
	return getPortNames()
}

// BaudRate returns the used baud rate.
func (g *GXSerialEndpoint) BaudRate() gxcommon.BaudRate {
	return g.baudRate
}

// DataBits returns the amount of the data bits.
func (g *GXSerialEndpoint) DataBits() int {
	return g.dataBits
}

// StopBits returns used stop bits.
func (g *GXSerialEndpoint) StopBits() gxcommon.StopBits {
	return g.stopBits
}

// Parity returns used parity.
func (g *GXSerialEndpoint) Parity() gxcommon.Parity {
	return g.parity
}

// Description returns the port and its line settings.
func (g *GXSerialEndpoint) Description() string {
	return fmt.Sprintf("%s %s %d %s %s", g.Port, g.baudRate, g.dataBits, g.stopBits, g.parity)
}

// IsOpen returns true if the port is open.
func (g *GXSerialEndpoint) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.isOpen()
}

// Validate checks that a port is selected.
func (g *GXSerialEndpoint) Validate() error {
	if g.Port == "" {
		return errors.New(g.msg("msg.no_serial_port_selected"))
	}
	return nil
}

// Open implements IGXEndpoint.
func (g *GXSerialEndpoint) Open(events chan<- GXEvent) error {
	if err := g.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.s.isOpen() {
		return nil
	}
	g.statef(gxcommon.MediaStateOpening)
	if err := openPort(g); err != nil {
		g.trace(gxcommon.TraceTypesError, g.msg("msg.open_failed", g.Port, err))
		g.errorf(err)
		g.statef(gxcommon.MediaStateClosed)
		return fmt.Errorf("open %s: %w", g.Port, err)
	}
	g.events = events
	g.stop = make(chan struct{})
	g.rxReq = make(chan *GXBuffer, 1)
	g.txReq = make(chan *GXBuffer, 1)
	g.wg.Add(2)
	go g.receiver(0, g.s.read, g.rxReq)
	go g.sender(0, g.s.write, g.txReq)
	g.trace(gxcommon.TraceTypesInfo, g.msg("msg.port_open", g.Description()))
	g.statef(gxcommon.MediaStateOpen)
	g.startReceiving(g.rxReq)
	return nil
}

// OnEvent implements IGXEndpoint. Any transfer error is fatal.
func (g *GXSerialEndpoint) OnEvent(e GXEvent) (*GXBuffer, error) {
	switch e.Kind {
	case EventReceived:
		if e.Err != nil {
			g.arena.Release(e.Buffer)
			g.errorf(e.Err)
			return nil, fmt.Errorf("%s: read failed: %w", g.Port, e.Err)
		}
		b := g.onReceived(e)
		g.startReceiving(g.rxReq)
		return b, nil
	case EventSent:
		if e.Err != nil {
			g.errorf(e.Err)
			err := fmt.Errorf("%s: write failed: %w", g.Port, e.Err)
			return nil, errors.Join(err, g.pipeline.OnDataSent())
		}
		return nil, g.onSent(e)
	}
	return nil, fmt.Errorf("%s: unexpected %s event", g.Port, e.Kind)
}

// Send implements IGXEndpoint.
func (g *GXSerialEndpoint) Send(b *GXBuffer) bool {
	if g.txReq == nil {
		g.arena.Release(b)
		return false
	}
	return g.queueSend(b)
}

func (g *GXSerialEndpoint) transmitBuffer(b *GXBuffer) error {
	select {
	case g.txReq <- b:
		return nil
	default:
		return errSenderBusy
	}
}

// Resume implements IGXEndpoint.
func (g *GXSerialEndpoint) Resume() error {
	if g.rxStalled && g.rxReq != nil {
		g.startReceiving(g.rxReq)
	}
	return nil
}

// Close implements IGXEndpoint. Buffers still held by the endpoint stay
// checked out; the arena is discarded with the bridge.
func (g *GXSerialEndpoint) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.s.isOpen() {
		return nil
	}
	g.trace(gxcommon.TraceTypesInfo, g.msg("msg.closing_connection", g.Port))
	g.statef(gxcommon.MediaStateClosing)
	close(g.stop)
	g.s.interrupt()
	close(g.rxReq)
	close(g.txReq)
	g.wg.Wait()
	err := g.s.close()
	g.rxReq = nil
	g.txReq = nil
	g.trace(gxcommon.TraceTypesInfo, g.msg("msg.connection_closed", g.Port))
	g.statef(gxcommon.MediaStateClosed)
	return err
}
