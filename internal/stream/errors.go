package stream

import (
	"errors"
	"fmt"
)

// ErrNoCallback is returned when Run is called without a callback.
var ErrNoCallback = errors.New("stream: callback is nil")

// CallbackError wraps a failure returned by the consumer callback.
// It aborts the run: no further events are delivered.
type CallbackError struct {
	// Kind is the event the callback was handling.
	Kind Kind

	// Err is what the callback returned.
	Err error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback failed on %s event: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallbackError) Unwrap() error {
	return e.Err
}
