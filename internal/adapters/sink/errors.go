package sink

import "errors"

// ErrSinkWrite wraps every failed append.
var ErrSinkWrite = errors.New("sink: write failed")
