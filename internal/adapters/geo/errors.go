package geo

import "errors"

// Typed geolocation failures.
var (
	ErrPermissionDenied    = errors.New("geo: permission denied")
	ErrPositionUnavailable = errors.New("geo: position unavailable")
	ErrTimeout             = errors.New("geo: timeout")
	ErrUnsupported         = errors.New("geo: unsupported")
)

// Kind names the failure class of err for notices and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrPositionUnavailable):
		return "position_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return "unknown"
	}
}

// errorFromKind is the inverse of Kind for failures reported by a device.
func errorFromKind(kind string) error {
	switch kind {
	case "permission_denied":
		return ErrPermissionDenied
	case "timeout":
		return ErrTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return ErrPositionUnavailable
	}
}
