package parser

import (
	"bufio"
	"context"
	"io"
	"sync/atomic"
)

const (
	// initialLineBuffer is the scanner's starting buffer.
	initialLineBuffer = 64 * 1024

	// DefaultMaxLineSize caps one line in line-buffered mode.
	DefaultMaxLineSize = 1024 * 1024
)

// PipeReader is the line-buffered source: a bufio.Scanner does the
// splitting, so only complete lines ever leave it.
type PipeReader struct {
	stream      Stream
	reader      io.Reader
	maxLineSize int

	// Stats (atomic for thread-safety)
	bytesRead atomic.Int64
	linesRead atomic.Int64
	failed    atomic.Bool
}

// NewPipeReader creates a line-buffered source over r.
//
// The reader is typically the Stdout or Stderr pipe of a spawned process.
// maxLineSize <= 0 selects DefaultMaxLineSize.
func NewPipeReader(stream Stream, r io.Reader, maxLineSize int) *PipeReader {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	return &PipeReader{
		stream:      stream,
		reader:      r,
		maxLineSize: maxLineSize,
	}
}

// Run reads lines until EOF. Implements LineSource.
//
// A line longer than maxLineSize is delivered as consecutive segments. After
// a read error the rest of the pipe is discarded so the child never blocks
// on a full pipe.
func (p *PipeReader) Run(ctx context.Context, out chan<- Line) {
	defer close(out)

	scanner := bufio.NewScanner(p.reader)
	initial := initialLineBuffer
	if initial > p.maxLineSize {
		initial = p.maxLineSize
	}
	scanner.Buffer(make([]byte, initial), p.maxLineSize)
	split := CappedLines(p.maxLineSize)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := split(data, atEOF)
		p.bytesRead.Add(int64(advance))
		return advance, token, err
	})

	for scanner.Scan() {
		p.linesRead.Add(1)
		if !send(ctx, out, NewLine(p.stream, scanner.Bytes())) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		p.failed.Store(true)
		send(ctx, out, Line{Stream: p.stream, Err: &ReadError{Stream: p.stream, Err: err}})
		_, _ = io.Copy(io.Discard, p.reader)
	}
}

// Stats returns (bytesRead, linesRead, healthy). Implements LineSource.
func (p *PipeReader) Stats() (bytesRead int64, linesRead int64, healthy bool) {
	return p.bytesRead.Load(),
		p.linesRead.Load(),
		!p.failed.Load()
}

// Ensure PipeReader implements LineSource interface
var _ LineSource = (*PipeReader)(nil)
