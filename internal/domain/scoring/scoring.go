// Package scoring orders alerts and patients by clinical urgency.
package scoring

import (
	"sort"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/severity"
)

// Default alert weights.
const (
	defaultCriticalWeight = 1000
	defaultWarningWeight  = 500
	defaultCautionWeight  = 100
	defaultNormalWeight   = 0
	defaultFallBonus      = 100
)

// SafeBand is the inclusive range a vital is expected to stay within.
type SafeBand struct {
	Low  float64
	High float64
}

// Distance returns how far v lies outside the band, or 0 inside it.
func (b SafeBand) Distance(v float64) float64 {
	switch {
	case v > b.High:
		return v - b.High
	case v < b.Low:
		return b.Low - v
	default:
		return 0
	}
}

// Safe bands per signal.
var (
	HeartRateSafeBand       = SafeBand{Low: 65, High: 85}
	RespiratoryRateSafeBand = SafeBand{Low: 14, High: 20}
)

// SafeBandFor returns the safe band for kind.
func SafeBandFor(kind model.SignalKind) SafeBand {
	if kind == model.RespiratoryRate {
		return RespiratoryRateSafeBand
	}
	return HeartRateSafeBand
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithSeverityWeights overrides the per-tier alert weights. Missing tiers
// keep their defaults.
func WithSeverityWeights(weights map[model.SeverityTier]int) Option {
	return func(s *Scorer) {
		for tier, w := range weights {
			if tier >= model.Normal && tier <= model.Critical && w >= 0 {
				s.weights[tier] = w
			}
		}
	}
}

// WithFallBonus sets the flat bonus for fall-detection alerts.
func WithFallBonus(bonus int) Option {
	return func(s *Scorer) {
		if bonus >= 0 {
			s.fallBonus = bonus
		}
	}
}

// Scorer computes urgency scores. The zero value is not usable; use New.
type Scorer struct {
	weights   [4]int
	fallBonus int
}

// New creates a Scorer with the default weights.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		weights: [4]int{
			model.Normal:   defaultNormalWeight,
			model.Caution:  defaultCautionWeight,
			model.Warning:  defaultWarningWeight,
			model.Critical: defaultCriticalWeight,
		},
		fallBonus: defaultFallBonus,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AlertScore returns the urgency score of a.
func (s *Scorer) AlertScore(a model.AlertEvent) int {
	score := 0
	if a.Severity >= model.Normal && a.Severity <= model.Critical {
		score = s.weights[a.Severity]
	}
	if a.Category == model.CategoryFall {
		score += s.fallBonus
	}
	return score
}

// RankAlerts returns a copy of alerts sorted by descending score. Equal
// scores keep arrival order.
func (s *Scorer) RankAlerts(alerts []model.AlertEvent) []model.AlertEvent {
	out := make([]model.AlertEvent, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return s.AlertScore(out[i]) > s.AlertScore(out[j])
	})
	return out
}

// PatientRank is a patient record annotated with its ranking keys for one
// signal.
type PatientRank struct {
	Record   model.PatientRecord `json:"record"`
	Signal   model.SignalKind    `json:"-"`
	Value    float64             `json:"value"`
	Tier     model.SeverityTier  `json:"tier"`
	Distance float64             `json:"distance"`
}

// RankPatients orders records by one vital: signal tier descending, then
// distance outside the safe band descending. Records without a value for
// kind are left out. The sort is stable.
func RankPatients(records []model.PatientRecord, kind model.SignalKind) []PatientRank {
	band := SafeBandFor(kind)
	out := make([]PatientRank, 0, len(records))
	for _, r := range records {
		v, ok := r.Vital(kind)
		if !ok {
			continue
		}
		out = append(out, PatientRank{
			Record:   r,
			Signal:   kind,
			Value:    v,
			Tier:     severity.Classify(kind, v),
			Distance: band.Distance(v),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier > out[j].Tier
		}
		return out[i].Distance > out[j].Distance
	})
	return out
}
