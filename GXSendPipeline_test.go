package gxbridge

import (
	"errors"
	"testing"
)

// transmitRecorder stands in for a transport.
type transmitRecorder struct {
	sent []string
	err  error
}

func (r *transmitRecorder) transmit(b *GXBuffer) error {
	r.sent = append(r.sent, string(b.Bytes()))
	return r.err
}

func newBuffer(t *testing.T, a *GXBufferArena, data string) *GXBuffer {
	t.Helper()
	b := a.Acquire()
	if b == nil {
		t.Fatalf("arena exhausted")
	}
	b.Append([]byte(data))
	return b
}

func TestSendPipelineOrder(t *testing.T) {
	a := NewGXBufferArena(8)
	r := &transmitRecorder{}
	p := NewGXSendPipeline(a, 4, nil, r.transmit)
	if !p.PrepareSend(newBuffer(t, a, "1")) {
		t.Fatalf("PrepareSend() on idle pipeline = false")
	}
	if err := r.transmit(p.Pending()); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"2", "3", "4"} {
		if p.PrepareSend(newBuffer(t, a, s)) {
			t.Fatalf("PrepareSend(%q) while busy = true", s)
		}
	}
	if p.Backlog() != 3 {
		t.Fatalf("Backlog() = %d, want 3", p.Backlog())
	}
	for p.Pending() != nil {
		if err := p.OnDataSent(); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"1", "2", "3", "4"}
	if len(r.sent) != len(want) {
		t.Fatalf("sent %v, want %v", r.sent, want)
	}
	for i := range want {
		if r.sent[i] != want[i] {
			t.Errorf("sent %v, want %v", r.sent, want)
			break
		}
	}
	if a.InUse() != 0 {
		t.Errorf("%d buffers leaked", a.InUse())
	}
}

func TestSendPipelineBacklogFull(t *testing.T) {
	a := NewGXBufferArena(8)
	r := &transmitRecorder{}
	p := NewGXSendPipeline(a, 2, nil, r.transmit)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		p.PrepareSend(newBuffer(t, a, s))
	}
	if p.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", p.Dropped())
	}
	if a.InUse() != 3 {
		t.Errorf("InUse() = %d, want 3", a.InUse())
	}
	if n := p.DiscardBacklog(); n != 2 {
		t.Errorf("DiscardBacklog() = %d, want 2", n)
	}
	if err := p.OnDataSent(); err != nil {
		t.Fatal(err)
	}
	if a.InUse() != 0 || p.Pending() != nil {
		t.Errorf("InUse() = %d, pending %v", a.InUse(), p.Pending())
	}
	if len(r.sent) != 0 {
		t.Errorf("discarded buffers were sent: %v", r.sent)
	}
}

func TestSendPipelineFiltered(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantNow     bool
		wantPending string
		wantBacklog []string
	}{
		{"plain", "text", true, "text", nil},
		{"packet removed", "+$g#67", false, "", nil},
		{"text around packet", "hi+$x#00yo", true, "hi", []string{"yo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewGXBufferArena(8)
			r := &transmitRecorder{}
			f := NewGXGdbOutputFilter(a)
			p := NewGXSendPipeline(a, 4, f, r.transmit)
			if p.Filter() != f {
				t.Fatalf("Filter() is not the given filter")
			}
			now := p.PrepareSend(newBuffer(t, a, tt.data))
			if now != tt.wantNow {
				t.Fatalf("PrepareSend() = %v, want %v", now, tt.wantNow)
			}
			if !now {
				if p.Pending() != nil || a.InUse() != 0 {
					t.Errorf("pending %v, %d buffers in use", p.Pending(), a.InUse())
				}
				return
			}
			if got := string(p.Pending().Bytes()); got != tt.wantPending {
				t.Errorf("Pending() = %q, want %q", got, tt.wantPending)
			}
			if p.Backlog() != len(tt.wantBacklog) {
				t.Fatalf("Backlog() = %d, want %d", p.Backlog(), len(tt.wantBacklog))
			}
			for _, want := range tt.wantBacklog {
				if err := p.OnDataSent(); err != nil {
					t.Fatal(err)
				}
				if got := r.sent[len(r.sent)-1]; got != want {
					t.Errorf("sent %q, want %q", got, want)
				}
			}
			if err := p.OnDataSent(); err != nil {
				t.Fatal(err)
			}
			if a.InUse() != 0 {
				t.Errorf("%d buffers leaked", a.InUse())
			}
		})
	}
}

func TestSendPipelineTransmitError(t *testing.T) {
	a := NewGXBufferArena(4)
	r := &transmitRecorder{err: errors.New("broken")}
	p := NewGXSendPipeline(a, 4, nil, r.transmit)
	p.PrepareSend(newBuffer(t, a, "1"))
	p.PrepareSend(newBuffer(t, a, "2"))
	if err := p.OnDataSent(); err == nil {
		t.Errorf("OnDataSent() did not return the transmit error")
	}
	if got := string(p.Pending().Bytes()); got != "2" {
		t.Errorf("Pending() = %q, want %q", got, "2")
	}
}

func TestSendPipelineMisuse(t *testing.T) {
	a := NewGXBufferArena(1)
	p := NewGXSendPipeline(a, 1, nil, (&transmitRecorder{}).transmit)
	mustPanic(t, "OnDataSent with nothing in flight", func() { _ = p.OnDataSent() })
	mustPanic(t, "PrepareSend(nil)", func() { p.PrepareSend(nil) })
}
