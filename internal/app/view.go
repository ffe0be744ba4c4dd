package service

import (
	"maps"
	"slices"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/scoring"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/types"
)

func searchFor(q source.AlertQuery) types.SearchView {
	return types.SearchView{
		Search: q.Search,
		Start:  q.Start,
		End:    q.End,
		Page:   q.Page,
		Limit:  q.Limit,
	}
}

// publish builds a View from loop-owned state and swaps it in. Only the
// loop calls it, and Start before the loop runs.
func (s *Service) publish() {
	records := s.vitals.Records()
	v := &types.View{
		UpdatedAt:       s.now().UTC(),
		Freshness:       s.vitals.Freshness(),
		Summary:         maps.Clone(s.summary),
		Patients:        records,
		HeartRate:       scoring.RankPatients(records, model.HeartRate),
		RespiratoryRate: scoring.RankPatients(records, model.RespiratoryRate),
		Unresolved:      s.vitals.Unresolved(),
		Alerts:          slices.Clone(s.alerts),
		AlertTotal:      s.alertTotal,
		TrackingView:    s.trackingView,
		Devices:         slices.Clone(s.devices),
		Focus:           s.arbiter.Snapshot(),
		Search:          s.search,
		Errors:          maps.Clone(s.errs),
	}
	v.Search.Alerts = slices.Clone(s.search.Alerts)
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}
	s.view.Store(v)
}

// View returns the latest snapshot.
func (s *Service) View() *types.View {
	if v := s.view.Load(); v != nil {
		return v
	}
	return &types.View{}
}
