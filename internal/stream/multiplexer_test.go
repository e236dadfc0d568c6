package stream

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
)

// collect runs a multiplexer and returns the dispatched lines per stream.
func collect(t *testing.T, m *Multiplexer) map[parser.Stream][]string {
	t.Helper()
	got := make(map[parser.Stream][]string)
	err := m.Run(context.Background(), func(_ context.Context, line parser.Line) error {
		got[line.Stream] = append(got[line.Stream], line.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return got
}

func TestMultiplexer_ModesAreEquivalent(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		stderr  string
		maxLine int
	}{
		{"simple", "a\nb\nc", "e1\ne2\n", 0},
		{"crlf and cr", "one\r\ntwo\rthree\n", "x\r\n", 0},
		{"empty lines", "\n\nlast", "", 0},
		{"nothing", "", "", 0},
		{"long", strings.Repeat("0123456789", 1000) + "\nend", "err", 0},
		{"capped", strings.Repeat("ab\u00e9", 300) + "\r\nend\r", strings.Repeat("x", 130) + "\n", 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, le := NewSources(ModeLines, strings.NewReader(tt.stdout), strings.NewReader(tt.stderr), 0, tt.maxLine)
			lines := collect(t, NewMultiplexer(lo, le))

			ro, re := NewSources(ModeRealtime,
				iotest.OneByteReader(strings.NewReader(tt.stdout)),
				iotest.HalfReader(strings.NewReader(tt.stderr)), 7, tt.maxLine)
			realtime := collect(t, NewMultiplexer(ro, re))

			if !reflect.DeepEqual(lines, realtime) {
				t.Errorf("lines mode = %q\nrealtime  = %q", lines, realtime)
			}
		})
	}
}

func TestMultiplexer_PerStreamOrder(t *testing.T) {
	var stdout, stderr strings.Builder
	var wantOut, wantErr []string
	for i := 0; i < 200; i++ {
		o := "out" + strings.Repeat("o", i%7)
		e := "err" + strings.Repeat("e", i%5)
		stdout.WriteString(o + "\n")
		stderr.WriteString(e + "\n")
		wantOut = append(wantOut, o)
		wantErr = append(wantErr, e)
	}

	so, se := NewSources(ModeRealtime, strings.NewReader(stdout.String()), strings.NewReader(stderr.String()), 16, 0)
	got := collect(t, NewMultiplexer(so, se))

	if !reflect.DeepEqual(got[parser.Stdout], wantOut) {
		t.Error("stdout lines out of order")
	}
	if !reflect.DeepEqual(got[parser.Stderr], wantErr) {
		t.Error("stderr lines out of order")
	}
}

func TestMultiplexer_ReadErrorDoesNotStopOtherStream(t *testing.T) {
	failing := io.MultiReader(strings.NewReader("partial\n"), iotest.ErrReader(errors.New("device gone")))
	so, se := NewSources(ModeLines, strings.NewReader("a\nb\n"), failing, 0, 0)

	var readErrs int
	got := make(map[parser.Stream][]string)
	err := NewMultiplexer(so, se).Run(context.Background(), func(_ context.Context, line parser.Line) error {
		if line.IsReadError() {
			readErrs++
			return nil
		}
		got[line.Stream] = append(got[line.Stream], line.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if readErrs != 1 {
		t.Errorf("read errors = %d, want 1", readErrs)
	}
	if !reflect.DeepEqual(got[parser.Stdout], []string{"a", "b"}) {
		t.Errorf("stdout = %q", got[parser.Stdout])
	}
	if !reflect.DeepEqual(got[parser.Stderr], []string{"partial"}) {
		t.Errorf("stderr = %q", got[parser.Stderr])
	}
}

func TestMultiplexer_DispatchErrorStops(t *testing.T) {
	so, se := NewSources(ModeLines, strings.NewReader("1\n2\n3\n4\n5\n"), strings.NewReader(""), 0, 0)

	calls := 0
	err := NewMultiplexer(so, se).Run(context.Background(), func(context.Context, parser.Line) error {
		calls++
		if calls == 3 {
			return errBoom
		}
		return nil
	})

	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want errBoom", err)
	}
	if calls != 3 {
		t.Errorf("dispatch called %d times, want 3", calls)
	}
}

func TestMultiplexer_Cancel(t *testing.T) {
	// Pipes that never produce data keep both sources blocked in Read.
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	defer outW.Close()
	defer errW.Close()

	so, se := NewSources(ModeRealtime, outR, errR, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- NewMultiplexer(so, se).Run(ctx, func(context.Context, parser.Line) error { return nil })
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"lines", ModeLines, true},
		{"realtime", ModeRealtime, true},
		{"chunks", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, ok)
		}
		if ok && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}
