// Package severity classifies raw vital values into severity tiers.
//
// Each signal has three nested bands. A value is tested against the widest
// band first, so it always lands in the most severe tier it qualifies for.
// Upper limits are inclusive and lower limits exclusive.
package severity

import (
	"math"
	"strings"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

// Band flags values at or above High, or strictly below Low.
type Band struct {
	High float64
	Low  float64
}

func (b Band) contains(v float64) bool { return v >= b.High || v < b.Low }

// Bands groups the three alerting bands of one signal.
type Bands struct {
	Critical Band
	Warning  Band
	Caution  Band
}

// Fixed clinical bands.
var (
	HeartRateBands = Bands{
		Critical: Band{High: 100, Low: 50},
		Warning:  Band{High: 90, Low: 60},
		Caution:  Band{High: 85, Low: 65},
	}
	RespiratoryRateBands = Bands{
		Critical: Band{High: 25, Low: 10},
		Warning:  Band{High: 22, Low: 12},
		Caution:  Band{High: 20, Low: 14},
	}
)

// Classify maps v onto a tier. NaN classifies as Normal.
func (b Bands) Classify(v float64) model.SeverityTier {
	if math.IsNaN(v) {
		return model.Normal
	}
	switch {
	case b.Critical.contains(v):
		return model.Critical
	case b.Warning.contains(v):
		return model.Warning
	case b.Caution.contains(v):
		return model.Caution
	default:
		return model.Normal
	}
}

// BandsFor returns the bands of a signal.
func BandsFor(kind model.SignalKind) Bands {
	if kind == model.RespiratoryRate {
		return RespiratoryRateBands
	}
	return HeartRateBands
}

// HeartRate classifies beats per minute.
func HeartRate(bpm float64) model.SeverityTier { return HeartRateBands.Classify(bpm) }

// RespiratoryRate classifies breaths per minute.
func RespiratoryRate(bpm float64) model.SeverityTier { return RespiratoryRateBands.Classify(bpm) }

// Classify dispatches on the signal kind.
func Classify(kind model.SignalKind, v float64) model.SeverityTier {
	return BandsFor(kind).Classify(v)
}

// Composite combines per-signal tiers with an externally supplied baseline.
// The result is never below the baseline.
func Composite(baseline model.SeverityTier, tiers ...model.SeverityTier) model.SeverityTier {
	return model.MaxTier(append(tiers, baseline)...)
}

// Record returns the composite tier of a patient record's current vitals.
func Record(r model.PatientRecord, baseline model.SeverityTier) model.SeverityTier {
	tiers := make([]model.SeverityTier, 0, 2)
	if v, ok := r.Vital(model.HeartRate); ok {
		tiers = append(tiers, HeartRate(v))
	}
	if v, ok := r.Vital(model.RespiratoryRate); ok {
		tiers = append(tiers, RespiratoryRate(v))
	}
	return Composite(baseline, tiers...)
}

// Parse maps severity vocabulary onto a tier. It accepts the domain names
// (critical, warning, caution, normal) and the legacy uppercase vocabulary
// (HIGH, MEDIUM, LOW), case-insensitively.
func Parse(s string) (model.SeverityTier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "high", "emergency", "danger":
		return model.Critical, true
	case "warning", "medium", "warn":
		return model.Warning, true
	case "caution", "low", "attention":
		return model.Caution, true
	case "normal", "info", "ok", "stable":
		return model.Normal, true
	default:
		return model.Normal, false
	}
}
