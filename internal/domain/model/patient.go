package model

import "time"

// PatientID is the canonical long-form patient identifier. The zero value
// means "unresolved", which is a valid result and not an error.
type PatientID string

// IsZero reports whether the identifier is unresolved.
func (id PatientID) IsZero() bool { return id == "" }

func (id PatientID) String() string { return string(id) }

// Record is a loosely typed payload item as delivered by the monitoring API.
// Field presence and nesting vary across API versions.
type Record map[string]any

// SignalKind names a vital-sign stream.
type SignalKind int

// Supported vital signals.
const (
	HeartRate SignalKind = iota
	RespiratoryRate
)

func (k SignalKind) String() string {
	switch k {
	case HeartRate:
		return "heart_rate"
	case RespiratoryRate:
		return "respiratory_rate"
	default:
		return "unknown"
	}
}

// NameCandidates holds every display-name source a reading may carry.
type NameCandidates struct {
	Localized map[string]string // locale -> name, e.g. {"en": "Jane Doe"}
	FullName  string
	FirstName string
	LastName  string
}

// VitalReading is one immutable sample from a polled vital stream.
type VitalReading struct {
	Ref         Record // the raw item, used for identity resolution
	Signal      SignalKind
	Value       float64
	ObservedAt  time.Time
	PatientCode string
	Names       NameCandidates
}

// PatientRecord is the reconciled per-patient view for one poll cycle.
// A nil vital means no reading arrived this cycle; it is never zero-filled.
type PatientRecord struct {
	ID                        PatientID    `json:"id"`
	Code                      string       `json:"code,omitempty"`
	DisplayName               string       `json:"displayName,omitempty"`
	HeartRate                 *float64     `json:"heartRate,omitempty"`
	RespiratoryRate           *float64     `json:"respiratoryRate,omitempty"`
	HeartRateObservedAt       time.Time    `json:"heartRateObservedAt,omitzero"`
	RespiratoryRateObservedAt time.Time    `json:"respiratoryRateObservedAt,omitzero"`
	Severity                  SeverityTier `json:"severity"`
}

// Vital returns the current value for a signal and whether one is set.
func (r PatientRecord) Vital(kind SignalKind) (float64, bool) {
	var v *float64
	switch kind {
	case HeartRate:
		v = r.HeartRate
	case RespiratoryRate:
		v = r.RespiratoryRate
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
