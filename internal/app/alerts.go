package service

import (
	"context"
	"errors"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/triage"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// Acknowledge acknowledges an active alert on behalf of actor.
func (s *Service) Acknowledge(ctx context.Context, id, actor, note string) (model.AlertEvent, error) {
	var out model.AlertEvent
	err := s.do(ctx, "alert.acknowledge", func(ctx context.Context) error {
		a, changed, err := s.pipeline.Acknowledge(ctx, id, actor, note)
		s.transitioned(ctx, "acknowledge", changed, err)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return model.AlertEvent{}, err
	}
	return out, nil
}

// Resolve resolves an alert on behalf of actor.
func (s *Service) Resolve(ctx context.Context, id, actor string) (model.AlertEvent, error) {
	var out model.AlertEvent
	err := s.do(ctx, "alert.resolve", func(ctx context.Context) error {
		a, changed, err := s.pipeline.Resolve(ctx, id, actor)
		s.transitioned(ctx, "resolve", changed, err)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return model.AlertEvent{}, err
	}
	return out, nil
}

func (s *Service) transitioned(ctx context.Context, action string, changed bool, err error) {
	switch {
	case errors.Is(err, triage.ErrAlertNotFound):
		metrics.RecordAlertTransition(action, "not_found")
	case errors.Is(err, triage.ErrInvalidCommand):
		metrics.RecordAlertTransition(action, "invalid")
	case err != nil:
		metrics.RecordAlertTransition(action, "error")
		s.log.Error(ctx, "alert transition failed", logger.String("action", action), logger.Error(err))
	case !changed:
		metrics.RecordAlertTransition(action, "noop")
	default:
		metrics.RecordAlertTransition(action, "changed")
		s.alerts, s.alertTotal = s.pipeline.Active()
		metrics.UpdateActiveAlerts(s.alertTotal)
		s.publish()
	}
}

// Search schedules an alert history query. Calls arriving within the
// debounce window replace each other; only the last one is sent.
func (s *Service) Search(ctx context.Context, q source.AlertQuery) error {
	if q.Page < 1 {
		q.Page = 1
	}
	return s.do(ctx, "search.schedule", func(ctx context.Context) error {
		if s.searchTimer != nil {
			s.searchTimer.Stop()
		}
		// Results for an earlier query must not land on top of this one.
		s.invalidate(pollSearch)
		prev := s.search
		s.search = searchFor(q)
		s.search.Alerts, s.search.Total, s.search.TotalPages = prev.Alerts, prev.Total, prev.TotalPages
		s.search.Pending = true
		s.searchTimer = time.AfterFunc(s.debounce, func() { s.fetchSearch(q) })
		s.publish()
		return nil
	})
}

func (s *Service) fetchSearch(q source.AlertQuery) {
	seq := s.issued[pollSearch].Add(1)
	s.spawn(func(ctx context.Context) {
		pg, err := s.src.QueryAlerts(ctx, q)
		s.post(ctx, "search.apply", func(ctx context.Context) {
			s.applySearch(ctx, seq, q, pg, err)
		})
	})
}

func (s *Service) applySearch(ctx context.Context, seq uint64, q source.AlertQuery, pg source.AlertPage, err error) {
	if !s.accept(ctx, pollSearch, seq) {
		return
	}
	next := searchFor(q)
	if err != nil {
		metrics.RecordPollCycle(pollSearch.String(), "error")
		next.Alerts = s.search.Alerts
		next.Total, next.TotalPages = s.search.Total, s.search.TotalPages
		next.Err = err.Error()
		s.search = next
		s.log.Warn(ctx, "alert search failed", logger.Error(err))
		s.publish()
		return
	}

	codes := s.vitals.Codes()
	next.Alerts = make([]model.AlertEvent, 0, len(pg.Alerts))
	skipped := 0
	for _, rec := range pg.Alerts {
		a, err := triage.Normalize(rec, s.locale)
		if err != nil {
			skipped++
			continue
		}
		if a.PatientID.IsZero() {
			if id, ok := codes.Lookup(a.PatientCode); ok {
				a.PatientID = id
			}
		}
		next.Alerts = append(next.Alerts, a)
	}
	metrics.RecordSkipped("search", skipped+pg.Dropped)
	metrics.RecordPollCycle(pollSearch.String(), "ok")

	next.Total, next.TotalPages = pg.Total, pg.TotalPages
	if pg.Page > 0 {
		next.Page = pg.Page
	}
	if pg.Limit > 0 {
		next.Limit = pg.Limit
	}
	s.search = next
	s.publish()
}

// Refresh polls immediately. The roster is included while the tracking view
// is open.
func (s *Service) Refresh(ctx context.Context) error {
	return s.do(ctx, "refresh", func(context.Context) error {
		s.fetchOverview()
		if s.trackingView {
			s.fetchRoster()
		}
		return nil
	})
}
