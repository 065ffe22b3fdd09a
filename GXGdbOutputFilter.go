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

// GXGdbOutputFilter removes GDB remote protocol packets from the traffic a
// debug stub (gdbserver, kgdb) sends over the serial line, so that a console
// sharing the line is not cluttered by them.
//
// A packet is $packet-data#xx, where xx is a two digit checksum and the data
// holds no '$' or '#'. The stub acknowledges every gdb packet with '+' before
// it answers, so a packet is recognized only when it follows a '+'.
//
// The filter sees one direction only and cannot follow the conversation.
// Checksums are not verified, and stop replies or notifications that are not
// preceded by an acknowledgement pass through unchanged.
//
// See https://sourceware.org/gdb/current/onlinedocs/gdb.html/Remote-Protocol.html
type GXGdbOutputFilter struct {
	filterBase
	state       gdbState
	pendingPlus bool

	packets uint64
	flushes uint64
}

type gdbState int

const (
	gdbStatePass gdbState = iota
	gdbStateBody
	gdbStateChecksumHi
	gdbStateChecksumLo
)

const (
	// Largest GDB packet including '$', '#' and the checksum.
	gdbMaxPacketSize  = 4096
	gdbMaxPassBuffers = 128
)

// NewGXGdbOutputFilter creates a filter that takes its output buffers from arena.
func NewGXGdbOutputFilter(arena *GXBufferArena) *GXGdbOutputFilter {
	return &GXGdbOutputFilter{
		filterBase: newFilterBase(arena, gdbMaxPassBuffers, gdbMaxPacketSize),
	}
}

// Process implements IGXFilter.
func (f *GXGdbOutputFilter) Process(b *GXBuffer) int {
	src := b.Bytes()
	for len(src) != 0 {
		var n int
		if f.state == gdbStatePass {
			n = f.passThrough(src)
		} else {
			n = f.parsePacket(src)
		}
		src = src[n:]
	}
	f.arena.Release(b)
	return f.passQueue.Len()
}

// Packets returns the number of packets removed.
func (f *GXGdbOutputFilter) Packets() uint64 {
	return f.packets
}

// Flushes returns the number of packet candidates given back as plain data.
func (f *GXGdbOutputFilter) Flushes() uint64 {
	return f.flushes
}

// passThrough copies plain data to the output and returns the number of bytes read.
// It stops after a "+$" sequence, leaving the filter in packet state.
func (f *GXGdbOutputFilter) passThrough(src []byte) int {
	defer f.flushOut()
	pos := 0
	for pos < len(src) {
		c := src[pos]
		if !f.pendingPlus {
			pos++
			if c == '+' {
				f.pendingPlus = true
			} else {
				f.emit(c)
			}
			continue
		}
		switch c {
		case '+':
			// Keep the newest '+' on hold.
			pos++
			f.emit('+')
		case '$':
			// The '+' acknowledged a packet that starts here.
			pos++
			f.pendingPlus = false
			f.candidate = append(f.candidate[:0], '$')
			f.state = gdbStateBody
			return pos
		default:
			// Not an acknowledgement. Read c again as plain data.
			f.emit('+')
			f.pendingPlus = false
		}
	}
	return pos
}

// parsePacket collects packet bytes and returns the number of bytes read.
func (f *GXGdbOutputFilter) parsePacket(src []byte) int {
	if cap(f.candidate)-len(f.candidate) < len(src) {
		// Too long for a packet, so it was not one.
		f.flush()
		return 0
	}
	pos := 0
	for pos < len(src) && f.state != gdbStatePass {
		c := src[pos]
		pos++
		f.candidate = append(f.candidate, c)
		switch f.state {
		case gdbStateBody:
			switch c {
			case '#':
				f.state = gdbStateChecksumHi
			case '$':
				f.flush()
			}
		case gdbStateChecksumHi:
			f.state = gdbStateChecksumLo
		case gdbStateChecksumLo:
			f.candidate = f.candidate[:0]
			f.state = gdbStatePass
			f.packets++
		}
	}
	return pos
}

func (f *GXGdbOutputFilter) flush() {
	f.undoCandidate()
	f.state = gdbStatePass
	f.flushes++
}
