package focus

// State is the arbiter's mode.
type State int

// Arbiter states.
const (
	Idle State = iota
	ManualFocus
	SelfTracking
	CriticalAutoFocus
)

var stateNames = [...]string{"idle", "manual_focus", "self_tracking", "critical_auto_focus"}

func (s State) String() string {
	if s < Idle || s > CriticalAutoFocus {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
