package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Placeholder is substituted for every invalid byte sequence.
const Placeholder = "\uFFFD"

// Decode converts raw bytes to text without ever failing.
//
// Valid UTF-8 is returned as-is with ok=true. Anything else is run through
// the x/text UTF-8 decoder, which replaces invalid sequences with U+FFFD,
// and ok=false is returned so the caller can tag the line.
func Decode(raw []byte) (text string, ok bool) {
	if utf8.Valid(raw) {
		return string(raw), true
	}

	// Decoders carry state, so a fresh one per call keeps this goroutine-safe.
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), Placeholder), false
	}
	return string(out), false
}
