// Package merge reconciles the heart-rate and respiratory-rate streams of a
// poll cycle into one record per patient.
//
// A Builder is scoped to a single cycle. Build hands back an immutable Result
// and nothing survives into the next cycle.
package merge

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/identity"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/severity"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// PreferredLocale is tried first when a localized name object is present.
const PreferredLocale = "en"

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for skipped readings.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithLocale overrides the preferred display-name locale.
func WithLocale(locale string) Option {
	return func(b *Builder) {
		if locale != "" {
			b.locale = locale
		}
	}
}

// Builder accumulates readings for one cycle. It is not safe for concurrent use.
type Builder struct {
	log    logger.Logger
	locale string

	records    map[model.PatientID]*model.PatientRecord
	order      []model.PatientID
	codeNamed  map[model.PatientID]bool
	codes      identity.CodeIndex
	freshness  time.Time
	unresolved int
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		log:       logger.NewNop(),
		locale:    PreferredLocale,
		records:   make(map[model.PatientID]*model.PatientRecord),
		codeNamed: make(map[model.PatientID]bool),
		codes:     make(identity.CodeIndex),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add folds one reading into the cycle. It returns false when the reading's
// patient could not be resolved; such readings are counted, not merged.
func (b *Builder) Add(r model.VitalReading) bool {
	id := identity.Resolve(r.Ref)
	if id.IsZero() {
		b.unresolved++
		return false
	}

	rec, ok := b.records[id]
	if !ok {
		rec = &model.PatientRecord{ID: id}
		b.records[id] = rec
		b.order = append(b.order, id)
	}
	if rec.Code == "" && r.PatientCode != "" {
		rec.Code = r.PatientCode
		b.codes[r.PatientCode] = id
	}
	b.applyName(rec, r)

	v := r.Value
	switch r.Signal {
	case model.HeartRate:
		rec.HeartRate = &v
		rec.HeartRateObservedAt = r.ObservedAt
	case model.RespiratoryRate:
		rec.RespiratoryRate = &v
		rec.RespiratoryRateObservedAt = r.ObservedAt
	}
	rec.Severity = severity.Record(*rec, model.Normal)

	if r.ObservedAt.After(b.freshness) {
		b.freshness = r.ObservedAt
	}
	return true
}

// applyName seeds the display name. A name derived from the patient code is
// replaced once a real name shows up.
func (b *Builder) applyName(rec *model.PatientRecord, r model.VitalReading) {
	if rec.DisplayName != "" && !b.codeNamed[rec.ID] {
		return
	}
	if name := displayName(r.Names, b.locale); name != "" {
		rec.DisplayName = name
		delete(b.codeNamed, rec.ID)
		return
	}
	if rec.DisplayName == "" {
		code := r.PatientCode
		if code == "" {
			code = rec.Code
		}
		if code != "" {
			rec.DisplayName = code
			b.codeNamed[rec.ID] = true
		}
	}
}

func displayName(n model.NameCandidates, locale string) string {
	if len(n.Localized) > 0 {
		if s := strings.TrimSpace(n.Localized[locale]); s != "" {
			return s
		}
		locales := make([]string, 0, len(n.Localized))
		for l := range n.Localized {
			locales = append(locales, l)
		}
		sort.Strings(locales)
		for _, l := range locales {
			if s := strings.TrimSpace(n.Localized[l]); s != "" {
				return s
			}
		}
	}
	if n.FullName != "" {
		return n.FullName
	}
	return strings.TrimSpace(strings.TrimSpace(n.FirstName) + " " + strings.TrimSpace(n.LastName))
}

// Build freezes the cycle into a Result. The Builder must not be reused.
func (b *Builder) Build() *Result {
	out := &Result{
		records:    make([]model.PatientRecord, 0, len(b.order)),
		index:      make(map[model.PatientID]int, len(b.order)),
		codes:      b.codes,
		freshness:  b.freshness,
		unresolved: b.unresolved,
	}
	for i, id := range b.order {
		out.records = append(out.records, *b.records[id])
		out.index[id] = i
	}
	b.records = nil
	return out
}

// Merge parses both raw streams and reconciles them. Heart-rate items are
// applied before respiratory-rate items. Malformed items are logged and
// skipped; the rest of the batch continues.
func Merge(ctx context.Context, heartRate, respRate []model.Record, opts ...Option) *Result {
	b := NewBuilder(opts...)
	skipped := 0
	for _, stream := range []struct {
		kind  model.SignalKind
		items []model.Record
	}{{model.HeartRate, heartRate}, {model.RespiratoryRate, respRate}} {
		for i, item := range stream.items {
			r, err := ParseReading(stream.kind, item)
			if err != nil {
				skipped++
				b.log.Warn(ctx, "skipping vital reading",
					logger.String("signal", stream.kind.String()),
					logger.Int("index", i),
					logger.Error(err))
				continue
			}
			b.Add(r)
		}
	}
	res := b.Build()
	res.skipped = skipped
	if res.unresolved > 0 {
		b.log.Debug(ctx, "unresolved vital readings", logger.Int("count", res.unresolved))
	}
	return res
}

// Result is the immutable outcome of one merge cycle.
type Result struct {
	records    []model.PatientRecord
	index      map[model.PatientID]int
	codes      identity.CodeIndex
	freshness  time.Time
	unresolved int
	skipped    int
}

// Records returns a copy of the merged records in first-seen order.
func (r *Result) Records() []model.PatientRecord {
	if r == nil {
		return nil
	}
	out := make([]model.PatientRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Get returns the record for id.
func (r *Result) Get(id model.PatientID) (model.PatientRecord, bool) {
	if r == nil {
		return model.PatientRecord{}, false
	}
	i, ok := r.index[id]
	if !ok {
		return model.PatientRecord{}, false
	}
	return r.records[i], true
}

// Len returns the number of merged patients.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Freshness is the newest observation time seen in the cycle.
func (r *Result) Freshness() time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.freshness
}

// Unresolved counts readings whose patient id could not be resolved.
func (r *Result) Unresolved() int {
	if r == nil {
		return 0
	}
	return r.unresolved
}

// Skipped counts malformed readings.
func (r *Result) Skipped() int {
	if r == nil {
		return 0
	}
	return r.skipped
}

// Codes returns a copy of the patient-code index built from this cycle.
func (r *Result) Codes() identity.CodeIndex {
	out := make(identity.CodeIndex)
	if r == nil {
		return out
	}
	for k, v := range r.codes {
		out[k] = v
	}
	return out
}

// Critical returns the ids of Critical patients in first-seen order.
func (r *Result) Critical() []model.PatientID {
	if r == nil {
		return nil
	}
	var out []model.PatientID
	for _, rec := range r.records {
		if rec.Severity == model.Critical {
			out = append(out, rec.ID)
		}
	}
	return out
}
