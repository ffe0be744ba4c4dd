// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// SeverityTier is the clinical urgency of a value, record, alert or device.
// Tiers are totally ordered; merging two tiers keeps the maximum.
type SeverityTier int

// Severity tiers, lowest first.
const (
	Normal SeverityTier = iota
	Caution
	Warning
	Critical
)

var tierNames = [...]string{"normal", "caution", "warning", "critical"}

func (t SeverityTier) String() string {
	if t < Normal || t > Critical {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText renders the tier by name so JSON views stay readable.
func (t SeverityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (t *SeverityTier) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range tierNames {
		if name == s {
			*t = SeverityTier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown severity tier %q", string(b))
}

// MaxTier returns the highest of the given tiers, Normal when none are given.
func MaxTier(tiers ...SeverityTier) SeverityTier {
	out := Normal
	for _, t := range tiers {
		if t > out {
			out = t
		}
	}
	return out
}
