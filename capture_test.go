package gxbridge

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// capture collects everything read from r and lets a test wait for it.
type capture struct {
	mu   sync.Mutex
	buf  []byte
	wait chan struct{}
}

func newCapture(r io.Reader) *capture {
	c := &capture{wait: make(chan struct{})}
	go c.readFrom(r)
	return c
}

func (c *capture) readFrom(r io.Reader) {
	tmp := make([]byte, 4096)
	for {
		n, err := r.Read(tmp)
		c.append(tmp[:n])
		if err != nil {
			return
		}
	}
}

func (c *capture) append(p []byte) {
	if len(p) == 0 {
		return
	}
	c.mu.Lock()
	c.buf = append(c.buf, p...)
	old := c.wait
	c.wait = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// bytes returns a copy of the captured data.
func (c *capture) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf...)
}

// waitFor waits until the captured data contains pattern.
func (c *capture) waitFor(pattern []byte, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for {
		c.mu.Lock()
		found := bytes.Contains(c.buf, pattern)
		ch := c.wait
		c.mu.Unlock()
		if found {
			return true
		}
		rem := time.Until(deadline)
		if rem <= 0 {
			return false
		}
		timer := time.NewTimer(rem)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return false
		}
	}
}

func (c *capture) expect(t *testing.T, want string) {
	t.Helper()
	if !c.waitFor([]byte(want), 5*time.Second) {
		t.Fatalf("got %q, want %q", c.bytes(), want)
	}
}

// loopHarness drives an endpoint the way GXBridge.Run does.
type loopHarness struct {
	t        *testing.T
	a        *GXBufferArena
	e        IGXEndpoint
	events   chan GXEvent
	received []byte
	// Keep received buffers instead of releasing them.
	hold bool
	held []*GXBuffer
}

func newLoopHarness(t *testing.T, a *GXBufferArena, e IGXEndpoint) *loopHarness {
	h := &loopHarness{t: t, a: a, e: e, events: make(chan GXEvent, 16)}
	if err := e.Open(h.events); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() {
		_ = e.Close()
	})
	return h
}

// pump handles events until done returns true.
func (h *loopHarness) pump(what string, done func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for !done() {
		if time.Now().After(deadline) {
			h.t.Fatalf("timeout waiting for %s", what)
		}
		select {
		case ev := <-h.events:
			b, err := h.e.OnEvent(ev)
			if err != nil {
				h.t.Fatalf("OnEvent(%s) = %v", ev.Kind, err)
			}
			if b != nil {
				h.received = append(h.received, b.Bytes()...)
				if h.hold {
					h.held = append(h.held, b)
				} else {
					h.a.Release(b)
				}
			}
		case <-tick.C:
		}
		if err := h.e.Resume(); err != nil {
			h.t.Fatalf("Resume() = %v", err)
		}
	}
}

// receive pumps until want has been received.
func (h *loopHarness) receive(want string) {
	h.t.Helper()
	h.pump(want, func() bool {
		return bytes.Contains(h.received, []byte(want))
	})
}
