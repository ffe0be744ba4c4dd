package source

import "errors"

// Sentinel errors for the polling source.
var (
	// ErrShapeMismatch means the body matched none of the known response shapes.
	ErrShapeMismatch = errors.New("source: unrecognised response shape")
	// ErrSourceRejected means an envelope reported success=false.
	ErrSourceRejected = errors.New("source: request rejected")
	// ErrHTTPStatus means the server answered with a non-2xx status.
	ErrHTTPStatus = errors.New("source: unexpected http status")
)
