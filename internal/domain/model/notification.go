package model

import "time"

// Notification log categories.
const (
	LogCategoryTriage      = "triage"
	LogCategoryAcknowledge = "acknowledge"
	LogCategoryResolve     = "resolve"
	LogCategoryAnalysis    = "analysis_complete"
)

// NotificationEntry is one append-only audit record.
type NotificationEntry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	ActorSystem string            `json:"actorSystem"`
	PatientID   PatientID         `json:"patientId,omitempty"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	Details     map[string]string `json:"details,omitempty"`
}
