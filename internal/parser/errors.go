package parser

import "fmt"

// ReadError is reported when reading a child's output stream fails after spawn.
// The stream it names is finished; the other stream keeps going.
type ReadError struct {
	// Stream is the pipe that failed.
	Stream Stream

	// Err is the underlying read error.
	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("%s read error: %v", e.Stream, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// DecodeError marks a line whose bytes were not valid UTF-8.
// Text holds the leniently decoded line with U+FFFD placeholders.
type DecodeError struct {
	Stream Stream
	Text   string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 on %s", e.Stream)
}

// Marker returns the tag prepended to decode-failed lines when they are
// surfaced to a consumer, e.g. "[stdout:invalid-utf8]".
func (e *DecodeError) Marker() string {
	return "[" + e.Stream.String() + ":invalid-utf8]"
}
