package focus

import "errors"

// ErrUnknownDevice is returned when selecting a device absent from the roster.
var ErrUnknownDevice = errors.New("focus: unknown device")
