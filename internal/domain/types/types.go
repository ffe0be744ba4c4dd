// Package types contains the read models shared by the monitor and its API.
package types

import (
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/focus"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/scoring"
)

// View is an immutable snapshot of everything the presentation layer shows.
// A new View is published after every state change; readers must not
// modify it.
type View struct {
	UpdatedAt time.Time `json:"updatedAt"`
	// Freshness is the newest vital observation of the last good poll.
	Freshness time.Time `json:"freshness,omitzero"`

	Summary         model.Record          `json:"summary,omitempty"`
	Patients        []model.PatientRecord `json:"patients"`
	HeartRate       []scoring.PatientRank `json:"heartRate"`
	RespiratoryRate []scoring.PatientRank `json:"respiratoryRate"`
	Unresolved      int                   `json:"unresolved"`

	Alerts     []model.AlertEvent `json:"alerts"`
	AlertTotal int                `json:"alertTotal"`

	TrackingView bool                   `json:"trackingView"`
	Devices      []model.DeviceLocation `json:"devices"`
	Focus        focus.Snapshot         `json:"focus"`

	Search SearchView `json:"search"`

	Notice *Notice `json:"notice,omitempty"`
	// Errors holds the last failure per poll kind until that kind succeeds.
	Errors map[string]string `json:"errors,omitempty"`
}

// Ranked returns the patients ranked by one vital.
func (v *View) Ranked(kind model.SignalKind) []scoring.PatientRank {
	if v == nil {
		return nil
	}
	switch kind {
	case model.HeartRate:
		return v.HeartRate
	case model.RespiratoryRate:
		return v.RespiratoryRate
	default:
		return nil
	}
}

// Stale reports whether any poll kind is failing.
func (v *View) Stale() bool {
	return v != nil && len(v.Errors) > 0
}

// SearchView is the latest alert search.
type SearchView struct {
	Search     string             `json:"search,omitempty"`
	Start      time.Time          `json:"start,omitzero"`
	End        time.Time          `json:"end,omitzero"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	Total      int                `json:"total"`
	TotalPages int                `json:"totalPages"`
	Alerts     []model.AlertEvent `json:"alerts"`
	Pending    bool               `json:"pending"`
	Err        string             `json:"error,omitempty"`
}

// Notice is a transient user-facing message.
type Notice struct {
	ID        uint64    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}
