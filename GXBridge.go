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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gurux/gxcommon-go"
)

const (
	// DefaultIdleInterval is how often a stalled receive is retried when no
	// event arrives.
	DefaultIdleInterval = time.Second

	eventQueueSize = 64
)

// GXBridge connects one serial endpoint to the network peers. Data read
// from the serial port is shared with every peer; data read from a peer is
// written to the serial port.
type GXBridge struct {
	tracer
	arena  *GXBufferArena
	serial IGXEndpoint
	peers  []IGXEndpoint

	// IdleInterval is the longest time the loop waits for an event.
	IdleInterval time.Duration
}

// NewGXBridge creates a bridge. Endpoints must use arena.
func NewGXBridge(arena *GXBufferArena, serial IGXEndpoint, peers ...IGXEndpoint) *GXBridge {
	g := &GXBridge{arena: arena, serial: serial, peers: peers, IdleInterval: DefaultIdleInterval}
	g.initTracer("Bridge")
	return g
}

// NewGXBridgeFromSettings creates the arena, the serial endpoint and a peer
// for every configured network port. The console peer filters GDB packets.
func NewGXBridgeFromSettings(settings *GXSettings) (*GXBridge, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	arena := NewGXBufferArena(settings.Buffers)
	serial := NewGXSerialEndpointFromSettings(settings, arena)
	var peers []IGXEndpoint
	if settings.ConsolePort != 0 {
		peers = append(peers, NewGXNetEndpoint("Console", settings.Host, settings.ConsolePort, arena, NewGXGdbOutputFilter(arena)))
	}
	if settings.GdbPort != 0 {
		peers = append(peers, NewGXNetEndpoint("GDB", settings.Host, settings.GdbPort, arena, nil))
	}
	if settings.RawPort != 0 {
		peers = append(peers, NewGXNetEndpoint("Raw console", settings.Host, settings.RawPort, arena, nil))
	}
	g := NewGXBridge(arena, serial, peers...)
	_ = g.SetTrace(settings.Trace)
	return g, nil
}

// Arena returns the buffer arena.
func (g *GXBridge) Arena() *GXBufferArena {
	return g.arena
}

// Serial returns the serial endpoint.
func (g *GXBridge) Serial() IGXEndpoint {
	return g.serial
}

// Peers returns the network endpoints.
func (g *GXBridge) Peers() []IGXEndpoint {
	return g.peers
}

// Run opens the endpoints and moves data between them until ctx is done or
// an endpoint fails. The endpoints are closed before Run returns.
func (g *GXBridge) Run(ctx context.Context) (err error) {
	events := make(chan GXEvent, eventQueueSize)
	var opened []IGXEndpoint
	defer func() {
		for i := len(opened) - 1; i >= 0; i-- {
			if cerr := opened[i].Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		g.statef(gxcommon.MediaStateClosed)
	}()
	g.statef(gxcommon.MediaStateOpening)
	for _, ep := range g.endpoints() {
		if err := ep.Open(events); err != nil {
			return err
		}
		opened = append(opened, ep)
	}
	g.statef(gxcommon.MediaStateOpen)
	g.trace(gxcommon.TraceTypesInfo, g.msg("msg.bridge_running", len(g.peers)))

	idle := time.NewTicker(g.IdleInterval)
	defer idle.Stop()
	for {
		select {
		case <-ctx.Done():
			g.trace(gxcommon.TraceTypesInfo, g.msg("msg.bridge_stopping"))
			g.statef(gxcommon.MediaStateClosing)
			return nil
		case ev := <-events:
			if err := g.dispatch(ev); err != nil {
				g.errorf(err)
				return err
			}
		case <-idle.C:
		}
		for _, ep := range opened {
			if err := ep.Resume(); err != nil {
				return err
			}
		}
	}
}

func (g *GXBridge) endpoints() []IGXEndpoint {
	ret := make([]IGXEndpoint, 0, 1+len(g.peers))
	ret = append(ret, g.serial)
	return append(ret, g.peers...)
}

// dispatch hands ev to its endpoint and forwards received data.
func (g *GXBridge) dispatch(ev GXEvent) error {
	b, err := ev.Source.OnEvent(ev)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	if ev.Source == g.serial {
		return g.Broadcast(b)
	}
	if !g.serial.Send(b) {
		return fmt.Errorf("%s: send failed", g.serial)
	}
	return nil
}

// Broadcast shares b with every peer. b must be held only by the caller.
// Without peers b is released.
func (g *GXBridge) Broadcast(b *GXBuffer) error {
	if len(g.peers) == 0 {
		g.arena.Release(b)
		return nil
	}
	g.arena.Share(b, len(g.peers))
	var errs []error
	for _, p := range g.peers {
		if !p.Send(b) {
			errs = append(errs, fmt.Errorf("%s: send failed", p))
		}
	}
	return errors.Join(errs...)
}
