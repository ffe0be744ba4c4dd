package source

import (
	"fmt"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

// Overview is the dashboard overview snapshot.
type Overview struct {
	Shape           ShapeKind
	Summary         model.Record
	Alerts          []model.Record
	HeartRate       []model.Record
	RespiratoryRate []model.Record
	Dropped         int
}

// Roster is the patient roster snapshot.
type Roster struct {
	Shape    ShapeKind
	Patients []model.Record
	Dropped  int
}

// AlertPage is one page of an alert query. Total is normalised from the
// legacy totalCount field when needed.
type AlertPage struct {
	Shape      ShapeKind
	Alerts     []model.Record
	Total      int
	Limit      int
	Page       int
	TotalPages int
	Dropped    int
}

// DecodeOverview parses an overview response in any known shape.
func DecodeOverview(body []byte) (Overview, error) {
	s, err := DetectShape(body)
	if err != nil {
		return Overview{}, err
	}
	p, ok := s.Object()
	if !ok {
		return Overview{}, fmt.Errorf("%w: overview payload is not an object", ErrShapeMismatch)
	}
	_, hasSummary := p["summary"]
	_, hasAlerts := p["alerts"]
	_, hasVitals := p["vitals"]
	_, hasHeart := p["heartRate"]
	_, hasResp := p["respiratoryRate"]
	if !hasSummary && !hasAlerts && !hasVitals && !hasHeart && !hasResp {
		return Overview{}, fmt.Errorf("%w: overview has no summary, alerts or vitals", ErrShapeMismatch)
	}

	o := Overview{Shape: s.Kind}
	o.Summary, _ = p.Sub("summary")
	var n int
	o.Alerts, n = records(p["alerts"])
	o.Dropped += n
	vitals := p
	if sub, ok := p.Sub("vitals"); ok {
		vitals = sub
	}
	o.HeartRate, n = records(vitals["heartRate"])
	o.Dropped += n
	o.RespiratoryRate, n = records(vitals["respiratoryRate"])
	o.Dropped += n
	return o, nil
}

// DecodeRoster parses a roster response in any known shape.
func DecodeRoster(body []byte) (Roster, error) {
	s, err := DetectShape(body)
	if err != nil {
		return Roster{}, err
	}
	list := s.Payload
	if p, ok := s.Object(); ok {
		var found bool
		list, found = firstList(p, "patients", "data", "items")
		if !found {
			return Roster{}, fmt.Errorf("%w: roster has no patients list", ErrShapeMismatch)
		}
	}
	r := Roster{Shape: s.Kind}
	r.Patients, r.Dropped = records(list)
	return r, nil
}

// DecodeAlertPage parses an alert query response in any known shape.
func DecodeAlertPage(body []byte) (AlertPage, error) {
	s, err := DetectShape(body)
	if err != nil {
		return AlertPage{}, err
	}
	pg := AlertPage{Shape: s.Kind}
	p, ok := s.Object()
	if !ok {
		pg.Alerts, pg.Dropped = records(s.Payload)
		pg.Total = len(pg.Alerts)
		return pg, nil
	}
	list, found := firstList(p, "alerts", "data", "items")
	if !found {
		return AlertPage{}, fmt.Errorf("%w: alert page has no alerts list", ErrShapeMismatch)
	}
	pg.Alerts, pg.Dropped = records(list)

	meta := p
	if sub, ok := p.Sub("pagination"); ok {
		meta = sub
	}
	if v, ok := meta.FirstFloat("total", "totalCount"); ok {
		pg.Total = int(v)
	} else {
		pg.Total = len(pg.Alerts)
	}
	if v, ok := meta.Float("limit"); ok {
		pg.Limit = int(v)
	}
	if v, ok := meta.Float("page"); ok {
		pg.Page = int(v)
	}
	if v, ok := meta.Float("totalPages"); ok {
		pg.TotalPages = int(v)
	} else if pg.Limit > 0 {
		pg.TotalPages = (pg.Total + pg.Limit - 1) / pg.Limit
	}
	return pg, nil
}

func firstList(p model.Record, keys ...string) (any, bool) {
	for _, k := range keys {
		if l, ok := p[k].([]any); ok {
			return l, true
		}
	}
	return nil, false
}
