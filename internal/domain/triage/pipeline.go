// Package triage turns raw alert snapshots into a ranked active list and
// applies operator acknowledge and resolve commands.
package triage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/dedupe"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/identity"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/scoring"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// Defaults.
const (
	DefaultDisplayLimit = 50
	DefaultActorSystem  = "wardwatch"
	defaultLocale       = "en"
)

// LogSink receives notification log entries. Implementations assign the
// entry id when it is empty.
type LogSink interface {
	Append(ctx context.Context, e model.NotificationEntry) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithScorer sets the urgency scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.scorer = s
		}
	}
}

// WithDisplayLimit caps the number of alerts returned for display.
func WithDisplayLimit(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.displayLimit = n
		}
	}
}

// WithActorSystem sets the actor-system stamped on log entries.
func WithActorSystem(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.actorSystem = name
		}
	}
}

// WithSeen sets the deduper that tracks which active alerts were announced.
func WithSeen(d dedupe.Deduper) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.seen = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLocale sets the preferred locale for localized messages.
func WithLocale(locale string) Option {
	return func(p *Pipeline) {
		if locale != "" {
			p.locale = locale
		}
	}
}

// Result is the outcome of one triage pass.
type Result struct {
	Active     []model.AlertEvent // ranked, capped at the display limit
	Total      int                // active alerts before the cap
	Skipped    int                // malformed records
	Duplicates int                // repeated ids within the snapshot
	Announced  int                // newly seen active alerts written to the log
}

// Pipeline holds the latest alert snapshot and the local lifecycle
// overrides. It is not safe for concurrent use; callers serialise access.
type Pipeline struct {
	log          logger.Logger
	sink         LogSink
	scorer       *scoring.Scorer
	seen         dedupe.Deduper
	displayLimit int
	actorSystem  string
	locale       string
	now          func() time.Time

	alerts    map[string]model.AlertEvent
	order     []string // snapshot ids in source order
	overrides map[string]model.AlertEvent
}

// New creates a Pipeline writing to sink.
func New(sink LogSink, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:          logger.NewNop(),
		sink:         sink,
		scorer:       scoring.New(),
		displayLimit: DefaultDisplayLimit,
		actorSystem:  DefaultActorSystem,
		locale:       defaultLocale,
		now:          time.Now,
		alerts:       make(map[string]model.AlertEvent),
		overrides:    make(map[string]model.AlertEvent),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.seen == nil {
		p.seen = dedupe.NewInMemoryDeduper()
	}
	return p
}

// Triage replaces the alert snapshot with records and returns the ranked
// active set. codes maps patient codes seen in this cycle's vital readings
// to canonical ids and backs the identity fallback.
func (p *Pipeline) Triage(ctx context.Context, records []model.Record, codes identity.CodeIndex) Result {
	var res Result
	next := make(map[string]model.AlertEvent, len(records))
	order := make([]string, 0, len(records))

	for i, rec := range records {
		a, err := Normalize(rec, p.locale)
		if err != nil {
			res.Skipped++
			p.log.Warn(ctx, "skipping alert record", logger.Int("index", i), logger.Error(err))
			continue
		}
		if _, dup := next[a.ID]; dup {
			res.Duplicates++
			continue
		}
		if a.PatientID.IsZero() {
			if id, ok := codes.Lookup(a.PatientCode); ok {
				a.PatientID = id
			}
		}
		if o, ok := p.overrides[a.ID]; ok && !o.Status.Further(a.Status) {
			delete(p.overrides, a.ID)
		}
		a = p.applyOverride(a)
		next[a.ID] = a
		order = append(order, a.ID)
	}
	p.alerts = next
	p.order = order
	for id := range p.overrides {
		if _, ok := next[id]; !ok {
			delete(p.overrides, id)
		}
	}

	ranked := p.ranked()
	res.Total = len(ranked)
	keep := make(map[string]struct{}, len(ranked))
	for _, a := range ranked {
		keep[a.ID] = struct{}{}
	}

	p.seen.Retain(ctx, keep)
	for _, a := range ranked {
		if p.seen.SeenAndRecord(ctx, a.ID) {
			continue
		}
		if err := p.sink.Append(ctx, p.entry(a, model.LogCategoryTriage, "", nil)); err != nil {
			p.seen.Unrecord(ctx, a.ID)
			p.log.Error(ctx, "announcing alert", logger.String("alert_id", a.ID), logger.Error(err))
			continue
		}
		res.Announced++
	}

	if len(ranked) > p.displayLimit {
		ranked = ranked[:p.displayLimit]
	}
	res.Active = ranked
	return res
}

// ranked returns every active alert of the snapshot in urgency order.
func (p *Pipeline) ranked() []model.AlertEvent {
	active := make([]model.AlertEvent, 0, len(p.order))
	for _, id := range p.order {
		if a := p.alerts[id]; a.IsActive() {
			active = append(active, a)
		}
	}
	return p.scorer.RankAlerts(active)
}

// Active returns the ranked active alerts capped at the display limit, and
// the total before the cap. It reflects local acknowledgements immediately.
func (p *Pipeline) Active() ([]model.AlertEvent, int) {
	ranked := p.ranked()
	total := len(ranked)
	if total > p.displayLimit {
		ranked = ranked[:p.displayLimit]
	}
	return ranked, total
}

// applyOverride folds a local transition into a source alert when the local
// status is further along the lifecycle than what the source reports.
func (p *Pipeline) applyOverride(a model.AlertEvent) model.AlertEvent {
	o, ok := p.overrides[a.ID]
	if !ok || !o.Status.Further(a.Status) {
		return a
	}
	a.Status = o.Status
	a.AcknowledgedBy, a.AcknowledgedAt, a.Note = o.AcknowledgedBy, o.AcknowledgedAt, o.Note
	a.ResolvedBy, a.ResolvedAt = o.ResolvedBy, o.ResolvedAt
	return a
}

// Get returns the current view of alert id.
func (p *Pipeline) Get(id string) (model.AlertEvent, bool) {
	a, ok := p.alerts[id]
	return a, ok
}

// Acknowledge moves an active alert to Acknowledged and writes one log entry.
// Acknowledging an alert that is already acknowledged or resolved is a no-op.
// The returned bool reports whether a transition happened.
func (p *Pipeline) Acknowledge(ctx context.Context, id, actor, note string) (model.AlertEvent, bool, error) {
	a, err := p.lookup(id, actor)
	if err != nil {
		return model.AlertEvent{}, false, err
	}
	if a.Status == model.AlertAcknowledged || a.Status == model.AlertResolved {
		return a, false, nil
	}

	next := a
	next.Status = model.AlertAcknowledged
	next.AcknowledgedBy = actor
	next.AcknowledgedAt = p.now().UTC()
	next.Note = strings.TrimSpace(note)

	details := map[string]string{"actor": actor}
	if next.Note != "" {
		details["note"] = next.Note
	}
	if err := p.sink.Append(ctx, p.entry(next, model.LogCategoryAcknowledge, next.AcknowledgedAt.Format(time.RFC3339), details)); err != nil {
		return a, false, fmt.Errorf("acknowledge %s: %w", id, err)
	}
	p.commit(next)
	p.log.Info(ctx, "alert acknowledged", logger.String("alert_id", id), logger.String("actor", actor))
	return next, true, nil
}

// Resolve moves any non-resolved alert to Resolved and writes one log entry.
// Resolving an already resolved alert is a no-op.
func (p *Pipeline) Resolve(ctx context.Context, id, actor string) (model.AlertEvent, bool, error) {
	a, err := p.lookup(id, actor)
	if err != nil {
		return model.AlertEvent{}, false, err
	}
	if a.Status == model.AlertResolved {
		return a, false, nil
	}

	next := a
	next.Status = model.AlertResolved
	next.ResolvedBy = actor
	next.ResolvedAt = p.now().UTC()

	if err := p.sink.Append(ctx, p.entry(next, model.LogCategoryResolve, next.ResolvedAt.Format(time.RFC3339), map[string]string{"actor": actor})); err != nil {
		return a, false, fmt.Errorf("resolve %s: %w", id, err)
	}
	p.commit(next)
	p.log.Info(ctx, "alert resolved", logger.String("alert_id", id), logger.String("actor", actor))
	return next, true, nil
}

func (p *Pipeline) lookup(id, actor string) (model.AlertEvent, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(actor) == "" {
		return model.AlertEvent{}, fmt.Errorf("%w: alert id and actor are required", ErrInvalidCommand)
	}
	a, ok := p.alerts[id]
	if !ok {
		return model.AlertEvent{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return a, nil
}

func (p *Pipeline) commit(a model.AlertEvent) {
	p.alerts[a.ID] = a
	p.overrides[a.ID] = a
}

func (p *Pipeline) entry(a model.AlertEvent, category, at string, extra map[string]string) model.NotificationEntry {
	details := map[string]string{
		"alertId":  a.ID,
		"severity": a.Severity.String(),
	}
	if a.RawMessage != "" {
		details["message"] = a.RawMessage
	}
	if a.PatientCode != "" {
		details["patientCode"] = a.PatientCode
	}
	if a.CurrentValue != nil {
		details["currentValue"] = strconv.FormatFloat(*a.CurrentValue, 'f', -1, 64)
	}
	if a.ThresholdValue != nil {
		details["thresholdValue"] = strconv.FormatFloat(*a.ThresholdValue, 'f', -1, 64)
	}
	if at != "" {
		details["at"] = at
	}
	for k, v := range extra {
		details[k] = v
	}
	return model.NotificationEntry{
		Timestamp:   p.now().UTC(),
		ActorSystem: p.actorSystem,
		PatientID:   a.PatientID,
		Category:    category,
		Type:        string(a.Category),
		Status:      string(a.Status),
		Details:     details,
	}
}
