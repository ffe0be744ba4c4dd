package merge

import (
	"fmt"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/identity"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

var (
	valueKeys = map[model.SignalKind][]string{
		model.HeartRate:       {"value", "heartRate", "bpm"},
		model.RespiratoryRate: {"value", "respiratoryRate", "rate", "bpm"},
	}
	timeKeys = []string{"timestamp", "observedAt", "recordedAt", "createdAt"}
	nameKeys = []string{"patientName", "name"}
)

// ParseReading converts one raw stream item into a VitalReading.
func ParseReading(kind model.SignalKind, rec model.Record) (model.VitalReading, error) {
	if rec == nil {
		return model.VitalReading{}, fmt.Errorf("%w: empty item", ErrMalformedReading)
	}
	v, ok := rec.FirstFloat(valueKeys[kind]...)
	if !ok {
		return model.VitalReading{}, fmt.Errorf("%w: no %s value", ErrMalformedReading, kind)
	}
	at, _ := rec.FirstTime(timeKeys...)
	return model.VitalReading{
		Ref:         rec,
		Signal:      kind,
		Value:       v,
		ObservedAt:  at,
		PatientCode: identity.Code(rec),
		Names:       nameCandidates(rec),
	}, nil
}

// nameCandidates collects names from the item and its nested patient
// sub-record. The localized form is an object keyed by locale.
func nameCandidates(rec model.Record) model.NameCandidates {
	var n model.NameCandidates
	scan := func(r model.Record) {
		for _, k := range nameKeys {
			if loc := r.Strings(k); len(loc) > 0 && n.Localized == nil {
				n.Localized = loc
			}
			if s := r.String(k); s != "" && n.FullName == "" {
				n.FullName = s
			}
		}
		if n.FullName == "" {
			n.FullName = r.String("fullName")
		}
		if n.FirstName == "" {
			n.FirstName = r.String("firstName")
		}
		if n.LastName == "" {
			n.LastName = r.String("lastName")
		}
	}
	scan(rec)
	for _, k := range []string{"patient", "patientInfo"} {
		if sub, ok := rec.Sub(k); ok {
			scan(sub)
		}
	}
	return n
}
