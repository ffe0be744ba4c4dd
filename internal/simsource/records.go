package simsource

import (
	"strings"
	"time"
)

// Query selects a page of alert history.
type Query struct {
	Search string
	Page   int
	Limit  int
	Start  time.Time
	End    time.Time
}

// Page is one page of alert history.
type Page struct {
	Alerts     []map[string]any
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

func (p *patient) name() map[string]any {
	return map[string]any{
		"en": p.first + " " + p.last,
		"ko": koNames[p.last] + p.first,
	}
}

// ref identifies the patient inside an embedded record.
func (p *patient) ref(rec map[string]any) {
	rec["patientCode"] = p.code
	if !p.codeOnly {
		rec["patientId"] = p.id
	}
}

func (a *alert) record() map[string]any {
	rec := map[string]any{
		"_id":       a.id,
		"severity":  a.severity,
		"status":    a.status,
		"message":   map[string]any{"en": a.messageEN, "ko": a.messageKO},
		"createdAt": a.createdAt.UTC().Format(time.RFC3339),
	}
	nested := map[string]any{"code": a.patient.code, "name": a.patient.name()}
	if !a.patient.codeOnly {
		nested["_id"] = a.patient.id
	}
	rec["patient"] = nested
	if a.category != "" {
		rec["category"] = a.category
	}
	if a.value != 0 {
		rec["value"] = a.value
	}
	a.patient.ref(rec)
	return rec
}

func (a *alert) matches(q Query) bool {
	if !q.Start.IsZero() && a.createdAt.Before(q.Start) {
		return false
	}
	// End is a calendar day and includes all of it.
	if !q.End.IsZero() && !a.createdAt.Before(q.End.AddDate(0, 0, 1)) {
		return false
	}
	if q.Search == "" {
		return true
	}
	s := strings.ToLower(q.Search)
	for _, f := range []string{a.messageEN, a.messageKO, a.patient.code, a.patient.first + " " + a.patient.last} {
		if strings.Contains(strings.ToLower(f), s) {
			return true
		}
	}
	return false
}

// Overview renders the dashboard overview payload.
func (w *Ward) Overview() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now().UTC().Format(time.RFC3339)
	critical, online := 0, 0
	hr := make([]any, 0, len(w.patients))
	rr := make([]any, 0, len(w.patients))
	for _, p := range w.patients {
		if tierOf(p) == "critical" {
			critical++
		}
		if p.online {
			online++
		}
		h := map[string]any{"value": p.hr, "timestamp": now, "patientName": p.name(), "patientId": p.id, "patientCode": p.code}
		hr = append(hr, h)
		r := map[string]any{"rate": p.rr, "observedAt": now, "patient": map[string]any{"firstName": p.first, "lastName": p.last}}
		p.ref(r)
		rr = append(rr, r)
	}

	alerts := make([]any, 0, overviewAlerts)
	active := 0
	for i := len(w.alerts) - 1; i >= 0; i-- {
		a := w.alerts[i]
		if a.status == "resolved" {
			continue
		}
		active++
		if len(alerts) < overviewAlerts {
			alerts = append(alerts, a.record())
		}
	}

	return map[string]any{
		"summary": map[string]any{
			"totalPatients":    len(w.patients),
			"criticalPatients": critical,
			"activeAlerts":     active,
			"onlineDevices":    online,
			"updatedAt":        now,
		},
		"alerts": alerts,
		"vitals": map[string]any{"heartRate": hr, "respiratoryRate": rr},
	}
}

// Roster renders the patient list with device assignments.
func (w *Ward) Roster() []any {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]any, 0, len(w.patients))
	for _, p := range w.patients {
		status := "offline"
		if p.online {
			status = "online"
		}
		out = append(out, map[string]any{
			"_id":         p.id,
			"patientCode": p.code,
			"fullName":    p.first + " " + p.last,
			"status":      tierOf(p),
			"vitals":      map[string]any{"heartRate": p.hr, "respiratoryRate": p.rr},
			"device": map[string]any{
				"deviceId":         p.deviceID,
				"location":         map[string]any{"lat": p.lat, "lng": p.lng},
				"connectionStatus": status,
				"signalStrength":   p.signal,
			},
		})
	}
	return out
}

// Alerts returns one page of alert history, newest first.
func (w *Ward) Alerts(q Query) Page {
	w.mu.Lock()
	defer w.mu.Unlock()

	q.Page = max(q.Page, 1)
	if q.Limit <= 0 {
		q.Limit = 20
	}
	var hits []*alert
	for i := len(w.alerts) - 1; i >= 0; i-- {
		if w.alerts[i].matches(q) {
			hits = append(hits, w.alerts[i])
		}
	}
	pg := Page{
		Total:      len(hits),
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: (len(hits) + q.Limit - 1) / q.Limit,
		Alerts:     []map[string]any{},
	}
	from := (q.Page - 1) * q.Limit
	if from >= len(hits) {
		return pg
	}
	for _, a := range hits[from:min(from+q.Limit, len(hits))] {
		pg.Alerts = append(pg.Alerts, a.record())
	}
	return pg
}
