package gxbridge

import (
	"errors"
	"io"
	"testing"

	"github.com/Gurux/gxcommon-go"
)

func TestSerialEndpointWriteError(t *testing.T) {
	a := NewGXBufferArena(4)
	g := NewGXSerialEndpoint("ttyTest", DefaultBaudRate, 8, gxcommon.ParityNone, gxcommon.StopBitsOne, a)
	var reported []error
	g.SetOnError(func(sender string, err error) {
		reported = append(reported, err)
	})
	// The sender never drains, so only the first buffer fits.
	g.txReq = make(chan *GXBuffer, 1)
	first := newBuffer(t, a, "1")
	if !g.Send(first) {
		t.Fatalf("Send() of the first buffer failed")
	}
	if !g.Send(newBuffer(t, a, "2")) {
		t.Fatalf("Send() of the second buffer failed")
	}
	if g.Pipeline().Backlog() != 1 {
		t.Fatalf("Backlog() = %d, want 1", g.Pipeline().Backlog())
	}
	_, err := g.OnEvent(GXEvent{Source: g, Kind: EventSent, Buffer: first, Err: io.ErrClosedPipe})
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("OnEvent() = %v, want the write error", err)
	}
	if !errors.Is(err, errSenderBusy) {
		t.Errorf("OnEvent() = %v, want the follow-on transmit error", err)
	}
	if len(reported) != 1 || !errors.Is(reported[0], io.ErrClosedPipe) {
		t.Errorf("reported errors = %v", reported)
	}
	if got := string(g.Pipeline().Pending().Bytes()); got != "2" {
		t.Errorf("Pending() = %q, want %q", got, "2")
	}
}

func TestSerialEndpointBacklogFull(t *testing.T) {
	a := NewGXBufferArena(SerialBacklog + 2)
	g := NewGXSerialEndpoint("ttyTest", DefaultBaudRate, 8, gxcommon.ParityNone, gxcommon.StopBitsOne, a)
	var reported []error
	g.SetOnError(func(sender string, err error) {
		reported = append(reported, err)
	})
	g.txReq = make(chan *GXBuffer, 1)
	// One in flight and a full backlog.
	for i := 0; i < SerialBacklog+1; i++ {
		if !g.Send(newBuffer(t, a, "x")) {
			t.Fatalf("Send() %d = false", i)
		}
	}
	if len(reported) != 0 {
		t.Fatalf("reported errors = %v", reported)
	}
	if !g.Send(newBuffer(t, a, "dropped")) {
		t.Errorf("Send() with a full backlog = false")
	}
	if g.Pipeline().Dropped() != 1 || a.Available() != 1 {
		t.Errorf("Dropped() = %d, Available() = %d", g.Pipeline().Dropped(), a.Available())
	}
	if len(reported) != 1 || !errors.Is(reported[0], ErrBacklogFull) {
		t.Errorf("reported errors = %v, want ErrBacklogFull", reported)
	}
}
