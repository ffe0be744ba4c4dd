// Package identity resolves canonical patient identifiers from records whose
// shape differs between API versions.
//
// Candidates are tried in a fixed order: a direct id field, an id inside a
// nested patient sub-record, an id inside an object-typed reference, and
// finally a string-typed reference used as-is. The first candidate that is
// a string longer than minCanonicalLen and different from the record's
// human-readable code wins.
package identity

import (
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

// minCanonicalLen is exclusive: canonical ids are strictly longer.
const minCanonicalLen = 20

// Record keys understood by the resolver.
const (
	KeyPatientID   = "patientId"
	KeyPatientRef  = "patientRef"
	KeyPatientCode = "patientCode"
)

var (
	nestedKeys = [...]string{"patient", "patientInfo"}
	idKeys     = [...]string{"_id", "id"}
	codeKeys   = [...]string{"patientCode", "code"}
)

// Resolve returns the best canonical id in rec, or the zero PatientID.
func Resolve(rec model.Record) model.PatientID {
	if rec == nil {
		return ""
	}
	code := Code(rec)
	for _, c := range candidates(rec) {
		if s, ok := c.(string); ok && IsCanonical(s, code) {
			return model.PatientID(s)
		}
	}
	return ""
}

// IsCanonical reports whether s qualifies as a canonical id for a record
// whose human-readable code is code.
func IsCanonical(s, code string) bool {
	return len(s) > minCanonicalLen && s != code
}

// Code returns the human-readable patient code carried by rec, looking at
// the record itself first and then at its nested patient sub-records.
func Code(rec model.Record) string {
	if s := rec.String(KeyPatientCode); s != "" {
		return s
	}
	for _, k := range nestedKeys {
		if sub, ok := rec.Sub(k); ok {
			for _, ck := range codeKeys {
				if s := sub.String(ck); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func candidates(rec model.Record) []any {
	out := make([]any, 0, 8)
	out = append(out, rec[KeyPatientID])
	for _, k := range nestedKeys {
		if sub, ok := rec.Sub(k); ok {
			for _, ik := range idKeys {
				out = append(out, sub[ik])
			}
		}
	}
	if ref, ok := rec.Sub(KeyPatientRef); ok {
		for _, ik := range idKeys {
			out = append(out, ref[ik])
		}
	} else {
		out = append(out, rec[KeyPatientRef])
	}
	return out
}

// CodeIndex maps human-readable patient codes to canonical ids seen in one
// poll cycle. It backs the alert identity fallback.
type CodeIndex map[string]model.PatientID

// Lookup returns the canonical id recorded for code.
func (ix CodeIndex) Lookup(code string) (model.PatientID, bool) {
	if code == "" || ix == nil {
		return "", false
	}
	id, ok := ix[code]
	return id, ok && !id.IsZero()
}
