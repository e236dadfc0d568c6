package parser

import "bytes"

// terminators are the bytes that end a line. "\r\n" counts as one terminator.
const terminators = "\r\n"

// LineAssembler turns arbitrary read chunks into complete lines.
//
// It holds only the bytes of the current unterminated line between calls,
// so a line (or a "\r\n" pair) may be split across any number of reads.
// Not safe for concurrent use; each stream owns its own assembler.
type LineAssembler struct {
	buf []byte
	max int

	// skipLF is set when a chunk ended on '\r': a '\n' opening the next
	// chunk belongs to the same terminator.
	skipLF bool

	// afterCut is set when a capped segment used up the whole pending
	// line: a terminator opening the next chunk ends that line.
	afterCut bool
}

// NewLineAssembler creates an empty assembler with no line cap.
func NewLineAssembler() *LineAssembler {
	return &LineAssembler{}
}

// NewCappedLineAssembler creates an assembler that delivers lines longer
// than max bytes as consecutive segments, cut as CappedLines cuts them.
// max <= 0 means no cap.
func NewCappedLineAssembler(max int) *LineAssembler {
	return &LineAssembler{max: max}
}

// Feed appends a chunk and returns every line it completed, in order.
// Returned lines exclude their terminator and do not alias p or the
// assembler's internal buffer.
func (a *LineAssembler) Feed(p []byte) [][]byte {
	if len(p) == 0 {
		return nil
	}
	p = a.skipTerminator(p)

	var lines [][]byte
	for len(p) > 0 {
		i := bytes.IndexAny(p, terminators)
		if i < 0 {
			a.buf = append(a.buf, p...)
			lines = a.cutPending(lines)
			break
		}

		line := make([]byte, 0, len(a.buf)+i)
		line = append(line, a.buf...)
		line = append(line, p[:i]...)
		lines = a.appendLine(lines, line)
		a.buf = a.buf[:0]

		if p[i] == '\r' {
			if i+1 < len(p) {
				if p[i+1] == '\n' {
					i++
				}
			} else {
				a.skipLF = true
			}
		}
		p = p[i+1:]
	}
	return lines
}

// skipTerminator drops the bytes of a terminator begun or owed by the
// previous chunk.
func (a *LineAssembler) skipTerminator(p []byte) []byte {
	if a.skipLF {
		a.skipLF = false
		if p[0] == '\n' {
			return p[1:]
		}
	}
	if a.afterCut {
		a.afterCut = false
		switch p[0] {
		case '\n':
			return p[1:]
		case '\r':
			if len(p) > 1 && p[1] == '\n' {
				return p[2:]
			}
			a.skipLF = len(p) == 1
			return p[1:]
		}
	}
	return p
}

// appendLine adds a terminated line, split into segments when capped.
func (a *LineAssembler) appendLine(lines [][]byte, line []byte) [][]byte {
	for a.max > 0 && len(line) >= a.max {
		cut := cutPoint(line[:a.max])
		lines = append(lines, line[:cut:cut])
		line = line[cut:]
		if len(line) == 0 {
			return lines
		}
	}
	return append(lines, line)
}

// cutPending emits full segments of the unterminated line.
func (a *LineAssembler) cutPending(lines [][]byte) [][]byte {
	for a.max > 0 && len(a.buf) >= a.max {
		cut := cutPoint(a.buf[:a.max])
		seg := make([]byte, cut)
		copy(seg, a.buf)
		lines = append(lines, seg)
		a.buf = append(a.buf[:0], a.buf[cut:]...)
		a.afterCut = len(a.buf) == 0
	}
	return lines
}

// Flush returns the unterminated remainder, if any, and resets the assembler.
// Call it once the stream has reached EOF.
func (a *LineAssembler) Flush() ([]byte, bool) {
	a.skipLF = false
	a.afterCut = false
	if len(a.buf) == 0 {
		return nil, false
	}
	line := make([]byte, len(a.buf))
	copy(line, a.buf)
	a.buf = a.buf[:0]
	return line, true
}

// Pending returns the number of buffered bytes not yet terminated.
func (a *LineAssembler) Pending() int {
	return len(a.buf)
}
