package parser

import (
	"bufio"
	"bytes"
	"unicode/utf8"
)

// ScanLines is a bufio.SplitFunc with the same line rules as LineAssembler:
// '\n', '\r' and "\r\n" each end a line, and a trailing unterminated line is
// returned at EOF.
//
// A '\r' at the end of the buffered data is held back until more data (or EOF)
// shows whether a '\n' follows, so both modes produce identical lines.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, terminators); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// '\r'
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// CappedLines wraps ScanLines so no token exceeds max bytes. A longer line
// is returned as consecutive segments, cut exactly where a LineAssembler
// with the same cap cuts it. max <= 0 means no cap.
func CappedLines(max int) bufio.SplitFunc {
	var skipLF, afterCut bool
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if len(data) == 0 {
			return 0, nil, nil
		}
		if skipLF {
			skipLF = false
			if data[0] == '\n' {
				return 1, nil, nil
			}
		}
		if afterCut {
			afterCut = false
			switch data[0] {
			case '\n':
				return 1, nil, nil
			case '\r':
				if len(data) > 1 && data[1] == '\n' {
					return 2, nil, nil
				}
				skipLF = len(data) == 1
				return 1, nil, nil
			}
		}

		advance, token, err := ScanLines(data, atEOF)
		if advance > 0 || token != nil || err != nil || max <= 0 || len(data) < max {
			return advance, token, err
		}

		// The buffer is full and holds no complete line.
		window := data[:max]
		if window[max-1] == '\r' {
			skipLF = true
			return max, window[:max-1], nil
		}
		cut := cutPoint(window)
		afterCut = true
		return cut, window[:cut], nil
	}
}

// cutPoint returns where a full segment ends. An incomplete UTF-8 sequence
// at the end of window is pushed to the next segment.
func cutPoint(window []byte) int {
	n := len(window)
	for i := n - 1; i > 0 && i >= n-utf8.UTFMax; i-- {
		if utf8.RuneStart(window[i]) {
			if !utf8.FullRune(window[i:]) {
				return i
			}
			return n
		}
	}
	return n
}
