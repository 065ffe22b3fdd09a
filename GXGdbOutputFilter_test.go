package gxbridge

import (
	"math/rand"
	"strings"
	"testing"
)

// process copies data into an arena buffer and passes it to the filter.
func process(t *testing.T, a *GXBufferArena, f IGXFilter, data string) int {
	t.Helper()
	b := a.Acquire()
	if b == nil {
		t.Fatalf("arena exhausted")
	}
	if n := b.Append([]byte(data)); n != len(data) {
		t.Fatalf("chunk of %d bytes does not fit a buffer", len(data))
	}
	return f.Process(b)
}

// drain returns the filter output as one string.
func drain(a *GXBufferArena, f IGXFilter) string {
	var sb strings.Builder
	for {
		b := f.GetResult()
		if b == nil {
			return sb.String()
		}
		sb.Write(b.Bytes())
		a.Release(b)
	}
}

func filterString(t *testing.T, chunks ...string) (string, *GXGdbOutputFilter) {
	t.Helper()
	a := NewGXBufferArena(16)
	f := NewGXGdbOutputFilter(a)
	var sb strings.Builder
	for _, c := range chunks {
		process(t, a, f, c)
		sb.WriteString(drain(a, f))
	}
	if a.InUse() != 0 {
		t.Errorf("%d buffers leaked", a.InUse())
	}
	return sb.String(), f
}

func TestGdbOutputFilterSplitPackets(t *testing.T) {
	tests := []struct {
		name  string
		data1 string
		data2 string
	}{
		{"two packets in first buffer", "Legia+++\n++$blabla#aa+$hehe#bbWarszawa", "+$to nasza dupa i chala#aa chyba"},
		{"packet starts with next buffer", "Legia+++\n++$blabla#aaWarszawa", "+$to nasza dupa i chala#aa chyba"},
		{"split after plus", "Legia+++\n++$blabla#aaWarszawa+", "$to nasza dupa i chala#aa chyba"},
		{"split after dollar", "Legia+++\n++$blabla#aaWarszawa+$", "to nasza dupa i chala#aa chyba"},
		{"split at body start", "Legia+++\n++$blabla#aaWarszawa+$t", "o nasza dupa i chala#aa chyba"},
		{"split near body end", "Legia+++\n++$blabla#aaWarszawa+$to nasza dupa i chal", "a#aa chyba"},
		{"split before hash", "Legia+++\n++$blabla#aaWarszawa+$to nasza dupa i chala", "#aa chyba"},
		{"split after hash", "Legia+++\n++$blabla#aaWarszawa+$to nasza dupa i chala#", "aa chyba"},
		{"split in checksum", "Legia+++\n++$blabla#aaWarszawa+$to nasza dupa i chala#a", "a chyba"},
		{"split after checksum", "Legia+++\n++$blabla#aaWarszawa+$to nasza dupa i chala#aa", " chyba"},
	}
	// One filter for all cases: every case leaves it in the pass state.
	a := NewGXBufferArena(2048)
	f := NewGXGdbOutputFilter(a)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := process(t, a, f, tt.data1); got != 2 {
				t.Fatalf("Process() = %d, want 2", got)
			}
			for _, want := range []string{"Legia+++\n+", "Warszawa"} {
				b := f.GetResult()
				if b == nil {
					t.Fatalf("GetResult() = nil, want %q", want)
				}
				if got := string(b.Bytes()); got != want {
					t.Errorf("GetResult() = %q, want %q", got, want)
				}
				a.Release(b)
			}
			if got := process(t, a, f, tt.data2); got != 1 {
				t.Fatalf("Process() = %d, want 1", got)
			}
			b := f.GetResult()
			if got := string(b.Bytes()); got != " chyba" {
				t.Errorf("GetResult() = %q, want %q", got, " chyba")
			}
			a.Release(b)
			if f.GetResult() != nil {
				t.Errorf("unexpected extra output")
			}
		})
	}
	if f.Packets() != 21 {
		t.Errorf("Packets() = %d, want 21", f.Packets())
	}
	if a.InUse() != 0 {
		t.Errorf("%d buffers leaked", a.InUse())
	}
}

func TestGdbOutputFilter(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		want        string
		wantPackets uint64
		wantFlushes uint64
	}{
		{"plain text", []string{"hello world\r\n"}, "hello world\r\n", 0, 0},
		{"acknowledged packet", []string{"+$qSupported:multiprocess+#c6"}, "", 1, 0},
		{"packet inside text", []string{"ok+$T05#b9rest"}, "okrest", 1, 0},
		{"plus before text", []string{"a+b"}, "a+b", 0, 0},
		{"repeated plus", []string{"+++$p#00"}, "++", 1, 0},
		{"held plus released by next buffer", []string{"x+", "y"}, "x+y", 0, 0},
		{"held plus starts packet in next buffer", []string{"x+", "$m#00y"}, "xy", 1, 0},
		{"packet without acknowledgement", []string{"$abc#00"}, "$abc#00", 0, 0},
		{"second dollar flushes candidate", []string{"+$abc$def#xxG"}, "$abc$def#xxG", 0, 1},
		{"empty packet", []string{"+$#00"}, "", 1, 0},
		{"packets back to back", []string{"+$a#00+$b#11", "+$c#22end"}, "end", 3, 0},
		{"minus is text", []string{"-$a#00"}, "-$a#00", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, f := filterString(t, tt.chunks...)
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
			if f.Packets() != tt.wantPackets {
				t.Errorf("Packets() = %d, want %d", f.Packets(), tt.wantPackets)
			}
			if f.Flushes() != tt.wantFlushes {
				t.Errorf("Flushes() = %d, want %d", f.Flushes(), tt.wantFlushes)
			}
		})
	}
}

func TestGdbOutputFilterEverySplit(t *testing.T) {
	const input = "Legia+++\n++$blabla#aa+$hehe#bbWarszawa+$to nasza#aa chyba+$x$y#zz!"
	want, _ := filterString(t, input)
	if want != "Legia+++\n+Warszawa chyba$x$y#zz!" {
		t.Fatalf("unsplit output = %q", want)
	}
	for i := 0; i <= len(input); i++ {
		got, _ := filterString(t, input[:i], input[i:])
		if got != want {
			t.Errorf("split at %d: output = %q, want %q", i, got, want)
		}
	}
	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			got, _ := filterString(t, input[:i], input[i:j], input[j:])
			if got != want {
				t.Fatalf("split at %d and %d: output = %q, want %q", i, j, got, want)
			}
		}
	}
	chunks := strings.Split(input, "")
	if got, _ := filterString(t, chunks...); got != want {
		t.Errorf("byte by byte: output = %q, want %q", got, want)
	}
}

func TestGdbOutputFilterLongCandidate(t *testing.T) {
	first := "+$" + strings.Repeat("a", BufferSize-2)
	block := strings.Repeat("b", BufferSize)
	chunks := []string{first, block, block, block, block}
	got, f := filterString(t, append(chunks, "+$qC#b4", "tail")...)
	want := "$" + strings.Repeat("a", BufferSize-2) + strings.Repeat(block, 4) + "tail"
	if got != want {
		t.Errorf("output of %d bytes, want %d bytes", len(got), len(want))
	}
	if f.Flushes() != 1 {
		t.Errorf("Flushes() = %d, want 1", f.Flushes())
	}
	if f.Packets() != 1 {
		t.Errorf("Packets() = %d, want 1", f.Packets())
	}
}

func TestGdbOutputFilterFullBufferWithHeldPlus(t *testing.T) {
	// The held '+' makes the output one byte longer than a buffer.
	full := strings.Repeat("z", BufferSize)
	a := NewGXBufferArena(8)
	f := NewGXGdbOutputFilter(a)
	process(t, a, f, "+")
	if n := process(t, a, f, full); n != 2 {
		t.Fatalf("Process() = %d, want 2", n)
	}
	if got := drain(a, f); got != "+"+full {
		t.Errorf("output of %d bytes, want %d bytes", len(got), BufferSize+1)
	}
	if a.InUse() != 0 {
		t.Errorf("%d buffers leaked", a.InUse())
	}
}

func TestGdbOutputFilterArenaExhausted(t *testing.T) {
	a := NewGXBufferArena(2)
	f := NewGXGdbOutputFilter(a)
	held := a.Acquire()
	if n := process(t, a, f, "lost"); n != 0 {
		t.Errorf("Process() = %d, want 0", n)
	}
	if f.DroppedBytes() != 4 {
		t.Errorf("DroppedBytes() = %d, want 4", f.DroppedBytes())
	}
	if a.Available() != 1 {
		t.Errorf("input buffer not released")
	}
	a.Release(held)
	process(t, a, f, "ok")
	if got := drain(a, f); got != "ok" {
		t.Errorf("output = %q, want %q", got, "ok")
	}
}

func TestGdbOutputFilterPassQueueFull(t *testing.T) {
	a := NewGXBufferArena(256)
	f := NewGXGdbOutputFilter(a)
	var n int
	for i := 0; i < gdbMaxPassBuffers+2; i++ {
		n = process(t, a, f, "line\n")
	}
	if n != gdbMaxPassBuffers {
		t.Errorf("Process() = %d, want %d", n, gdbMaxPassBuffers)
	}
	if f.DroppedBytes() != 10 {
		t.Errorf("DroppedBytes() = %d, want 10", f.DroppedBytes())
	}
	drain(a, f)
	if a.InUse() != 0 {
		t.Errorf("%d buffers leaked", a.InUse())
	}
}

func TestGdbOutputFilterPassThroughRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	var input strings.Builder
	var chunks []string
	for i := 0; i < 200; i++ {
		chunk := make([]byte, r.Intn(BufferSize)+1)
		for j := range chunk {
			c := byte(r.Intn(256))
			if c == '+' {
				c = '-'
			}
			chunk[j] = c
		}
		chunks = append(chunks, string(chunk))
		input.Write(chunk)
	}
	got, f := filterString(t, chunks...)
	if got != input.String() {
		t.Errorf("output differs from input")
	}
	if f.Packets() != 0 || f.DroppedBytes() != 0 {
		t.Errorf("Packets() = %d, DroppedBytes() = %d", f.Packets(), f.DroppedBytes())
	}
}
