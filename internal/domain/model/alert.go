package model

import (
	"strings"
	"time"
)

// AlertStatus is the lifecycle state of an alert event.
type AlertStatus string

// Alert lifecycle states. New is a legacy synonym of Active and is folded
// into Active during normalisation.
const (
	AlertNew          AlertStatus = "new"
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// ParseAlertStatus maps a source status string onto the lifecycle.
// Empty input is treated as Active.
func ParseAlertStatus(s string) (AlertStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "new", "active", "open", "triggered":
		return AlertActive, true
	case "acknowledged", "ack", "acked":
		return AlertAcknowledged, true
	case "resolved", "closed":
		return AlertResolved, true
	default:
		return "", false
	}
}

// rank orders statuses along the lifecycle so the furthest one wins when a
// local transition and a source snapshot disagree.
func (s AlertStatus) rank() int {
	switch s {
	case AlertAcknowledged:
		return 1
	case AlertResolved:
		return 2
	default:
		return 0
	}
}

// Further reports whether s is strictly later in the lifecycle than other.
func (s AlertStatus) Further(other AlertStatus) bool { return s.rank() > other.rank() }

// AlertCategory is the structured classification of an alert.
type AlertCategory string

// Alert categories carried by current-format source events.
const (
	CategoryUnknown           AlertCategory = "unknown"
	CategoryFall              AlertCategory = "fall"
	CategoryHeartRate         AlertCategory = "heart_rate"
	CategoryRespiratoryRate   AlertCategory = "respiratory_rate"
	CategoryThresholdExceeded AlertCategory = "threshold_exceeded"
	CategoryDeviceOffline     AlertCategory = "device_offline"
)

// AlertEvent is a normalised alert.
type AlertEvent struct {
	ID             string        `json:"id"`
	PatientRef     Record        `json:"-"`
	PatientID      PatientID     `json:"patientId,omitempty"`
	PatientCode    string        `json:"patientCode,omitempty"`
	PatientName    string        `json:"patientName,omitempty"`
	RawMessage     string        `json:"message,omitempty"`
	Category       AlertCategory `json:"category"`
	Severity       SeverityTier  `json:"severity"`
	CreatedAt      time.Time     `json:"createdAt,omitzero"`
	Status         AlertStatus   `json:"status"`
	CurrentValue   *float64      `json:"currentValue,omitempty"`
	ThresholdValue *float64      `json:"thresholdValue,omitempty"`

	AcknowledgedBy string    `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledgedAt,omitzero"`
	Note           string    `json:"note,omitempty"`
	ResolvedBy     string    `json:"resolvedBy,omitempty"`
	ResolvedAt     time.Time `json:"resolvedAt,omitzero"`
}

// IsActive reports whether the alert takes part in active ranking.
func (a AlertEvent) IsActive() bool {
	return a.Status == AlertActive || a.Status == AlertNew
}
