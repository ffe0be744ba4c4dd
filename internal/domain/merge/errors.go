package merge

import "errors"

// ErrMalformedReading is returned for a stream item with no usable value.
var ErrMalformedReading = errors.New("merge: malformed vital reading")
