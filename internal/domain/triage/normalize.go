package triage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/identity"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/severity"
)

var (
	idKeys        = []string{"_id", "id", "alertId"}
	severityKeys  = []string{"severity", "level", "priority"}
	categoryKeys  = []string{"category", "alertType", "type"}
	messageKeys   = []string{"message", "description", "title"}
	createdKeys   = []string{"createdAt", "timestamp", "triggeredAt"}
	currentKeys   = []string{"currentValue", "value"}
	thresholdKeys = []string{"thresholdValue", "threshold"}
)

// Normalize converts a raw source alert into an AlertEvent. The patient id
// is left zero when the record does not carry a canonical one.
func Normalize(rec model.Record, locale string) (model.AlertEvent, error) {
	if rec == nil {
		return model.AlertEvent{}, fmt.Errorf("%w: empty record", ErrMalformedAlert)
	}
	id := rec.FirstString(idKeys...)
	if id == "" {
		return model.AlertEvent{}, fmt.Errorf("%w: missing id", ErrMalformedAlert)
	}
	status, ok := model.ParseAlertStatus(rec.String("status"))
	if !ok {
		return model.AlertEvent{}, fmt.Errorf("%w: alert %s has unknown status %q", ErrMalformedAlert, id, rec.String("status"))
	}

	a := model.AlertEvent{
		ID:             id,
		PatientRef:     rec,
		PatientID:      identity.Resolve(rec),
		PatientCode:    identity.Code(rec),
		PatientName:    patientName(rec, locale),
		RawMessage:     message(rec, locale),
		Status:         status,
		AcknowledgedBy: rec.String("acknowledgedBy"),
		Note:           rec.String("note"),
		ResolvedBy:     rec.String("resolvedBy"),
	}
	a.Severity, _ = severity.Parse(rec.FirstString(severityKeys...))
	a.Category = ParseCategory(rec.FirstString(categoryKeys...))
	if a.Category == model.CategoryUnknown {
		a.Category = LegacyCategory(a.RawMessage)
	}
	a.CreatedAt, _ = rec.FirstTime(createdKeys...)
	a.AcknowledgedAt, _ = rec.Time("acknowledgedAt")
	a.ResolvedAt, _ = rec.Time("resolvedAt")
	if v, ok := rec.FirstFloat(currentKeys...); ok {
		a.CurrentValue = &v
	}
	if v, ok := rec.FirstFloat(thresholdKeys...); ok {
		a.ThresholdValue = &v
	}
	return a, nil
}

// ParseCategory maps the structured category field onto AlertCategory.
func ParseCategory(s string) model.AlertCategory {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "fall", "fall_detected", "fall_detection":
		return model.CategoryFall
	case "heart_rate", "heartrate", "hr":
		return model.CategoryHeartRate
	case "respiratory_rate", "respiratoryrate", "rr", "breathing":
		return model.CategoryRespiratoryRate
	case "threshold_exceeded", "threshold", "vital_threshold":
		return model.CategoryThresholdExceeded
	case "device_offline", "offline", "disconnected":
		return model.CategoryDeviceOffline
	default:
		return model.CategoryUnknown
	}
}

// localized reads key as either a plain string or a locale-keyed object.
func localized(rec model.Record, key, locale string) string {
	if s := rec.String(key); s != "" {
		return s
	}
	m := rec.Strings(key)
	if len(m) == 0 {
		return ""
	}
	if s, ok := m[locale]; ok {
		return s
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return m[keys[0]]
}

func message(rec model.Record, locale string) string {
	for _, k := range messageKeys {
		if s := localized(rec, k, locale); s != "" {
			return s
		}
	}
	return ""
}

func patientName(rec model.Record, locale string) string {
	if s := localized(rec, "patientName", locale); s != "" {
		return s
	}
	for _, k := range []string{"patient", "patientInfo", identity.KeyPatientRef} {
		sub, ok := rec.Sub(k)
		if !ok {
			continue
		}
		if s := localized(sub, "name", locale); s != "" {
			return s
		}
		if s := sub.String("fullName"); s != "" {
			return s
		}
	}
	return ""
}
