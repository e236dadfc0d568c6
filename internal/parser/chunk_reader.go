package parser

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
)

// DefaultChunkSize is the read size used by ChunkReader.
const DefaultChunkSize = 4096

// ChunkReader is the raw source: it performs one bounded read per wake and
// splits lines itself, so a line is surfaced as soon as its terminator
// arrives even when the producer never fills a buffer.
type ChunkReader struct {
	stream    Stream
	reader    io.Reader
	chunkSize int
	assembler *LineAssembler

	bytesRead atomic.Int64
	linesRead atomic.Int64
	failed    atomic.Bool
}

// NewChunkReader creates a raw-chunk source over r.
// chunkSize <= 0 selects DefaultChunkSize. Lines longer than maxLineSize
// are delivered in segments, exactly as PipeReader delivers them.
// maxLineSize <= 0 selects DefaultMaxLineSize.
func NewChunkReader(stream Stream, r io.Reader, chunkSize, maxLineSize int) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	return &ChunkReader{
		stream:    stream,
		reader:    r,
		chunkSize: chunkSize,
		assembler: NewCappedLineAssembler(maxLineSize),
	}
}

// Run reads chunks until EOF. Implements LineSource.
func (c *ChunkReader) Run(ctx context.Context, out chan<- Line) {
	defer close(out)

	buf := make([]byte, c.chunkSize)
	for {
		n, err := c.reader.Read(buf)
		if n > 0 {
			c.bytesRead.Add(int64(n))
			for _, raw := range c.assembler.Feed(buf[:n]) {
				c.linesRead.Add(1)
				if !send(ctx, out, NewLine(c.stream, raw)) {
					return
				}
			}
		}

		if errors.Is(err, io.EOF) {
			if raw, ok := c.assembler.Flush(); ok {
				c.linesRead.Add(1)
				send(ctx, out, NewLine(c.stream, raw))
			}
			return
		}
		if err != nil {
			c.failed.Store(true)
			send(ctx, out, Line{Stream: c.stream, Err: &ReadError{Stream: c.stream, Err: err}})
			return
		}
	}
}

// Stats returns (bytesRead, linesRead, healthy). Implements LineSource.
func (c *ChunkReader) Stats() (bytesRead int64, linesRead int64, healthy bool) {
	return c.bytesRead.Load(),
		c.linesRead.Load(),
		!c.failed.Load()
}

var _ LineSource = (*ChunkReader)(nil)
