package queue

import "errors"

// Enqueue failures. ErrFull is backpressure: the caller decides whether to
// drop the task or report busy.
var (
	ErrClosed = errors.New("queue: closed")
	ErrFull   = errors.New("queue: full")
)
