// Package parser turns a child process's output pipes into complete,
// decoded text lines.
//
// Two line sources exist and produce identical line sequences for the
// same bytes; they differ only in read granularity:
//
//	PipeReader  (line-buffered): bufio.Scanner with ScanLines, whole lines only
//	ChunkReader (raw chunks):    fixed-size reads split by a LineAssembler
//
// Lifecycle (MUST be followed by the multiplexer):
//
//  1. out := make(chan Line)
//  2. go source.Run(ctx, out)   // source closes out on exit
//  3. range over out until closed
package parser

import "context"

// Stream identifies one of the child's output pipes.
type Stream int

const (
	// Stdout is the child's standard output.
	Stdout Stream = iota

	// Stderr is the child's standard error.
	Stderr
)

// String returns "stdout" or "stderr".
func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Line is one unit surfaced by a LineSource.
//
// Exactly one of these holds:
//   - Err == nil: Text is a valid UTF-8 line
//   - Err is *DecodeError: Text is the line with U+FFFD placeholders
//   - Err is *ReadError: the stream failed; Text is empty and no more lines follow
type Line struct {
	Stream Stream
	Text   string
	Err    error
}

// NewLine decodes raw bytes (terminator already removed) into a Line.
func NewLine(stream Stream, raw []byte) Line {
	text, ok := Decode(raw)
	if ok {
		return Line{Stream: stream, Text: text}
	}
	return Line{Stream: stream, Text: text, Err: &DecodeError{Stream: stream, Text: text}}
}

// IsReadError reports whether the line carries a stream failure.
func (l Line) IsReadError() bool {
	_, ok := l.Err.(*ReadError)
	return ok
}

// IsDecodeError reports whether the line failed UTF-8 validation.
func (l Line) IsDecodeError() bool {
	_, ok := l.Err.(*DecodeError)
	return ok
}

// LineSource reads one pipe and delivers its lines in order.
type LineSource interface {
	// Run reads until EOF, a read error, or ctx cancellation.
	// Every line is sent on out in stream order; a read failure is sent as a
	// final Line carrying a *ReadError. Run MUST close out on exit.
	Run(ctx context.Context, out chan<- Line)

	// Stats returns (bytesRead, linesRead, healthy).
	// healthy is false once the source has hit a read error.
	Stats() (bytesRead int64, linesRead int64, healthy bool)
}

// send delivers a line unless ctx is done first.
func send(ctx context.Context, out chan<- Line, line Line) bool {
	select {
	case out <- line:
		return true
	case <-ctx.Done():
		return false
	}
}
