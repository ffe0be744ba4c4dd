package service

import (
	"context"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/merge"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/roster"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/severity"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

type pollKind int

const (
	pollOverview pollKind = iota
	pollRoster
	pollSearch
	numPolls
)

var pollNames = [numPolls]string{"overview", "roster", "search"}

func (k pollKind) String() string { return pollNames[k] }

// accept reports whether a completion with sequence seq is newer than the
// last applied one of its kind, and marks it applied.
func (s *Service) accept(ctx context.Context, kind pollKind, seq uint64) bool {
	if seq <= s.applied[kind] {
		metrics.RecordStaleResponse(kind.String())
		s.log.Debug(ctx, "discarding stale response",
			logger.String("kind", kind.String()),
			logger.Uint64("seq", seq),
			logger.Uint64("applied", s.applied[kind]),
		)
		return false
	}
	s.applied[kind] = seq
	return true
}

// invalidate makes every in-flight completion of kind stale.
func (s *Service) invalidate(kind pollKind) {
	s.applied[kind] = s.issued[kind].Load()
}

func (s *Service) failed(ctx context.Context, kind pollKind, err error) {
	metrics.RecordPollCycle(kind.String(), "error")
	s.errs[kind.String()] = err.Error()
	s.log.Warn(ctx, "poll failed, keeping last good state",
		logger.String("kind", kind.String()), logger.Error(err))
	s.publish()
}

func (s *Service) fetchOverview() {
	seq := s.issued[pollOverview].Add(1)
	s.spawn(func(ctx context.Context) {
		ov, err := s.src.FetchOverview(ctx)
		s.post(ctx, "overview.apply", func(ctx context.Context) {
			s.applyOverview(ctx, seq, ov, err)
		})
	})
}

func (s *Service) fetchRoster() {
	seq := s.issued[pollRoster].Add(1)
	s.spawn(func(ctx context.Context) {
		r, err := s.src.FetchRoster(ctx)
		s.post(ctx, "roster.apply", func(ctx context.Context) {
			s.applyRoster(ctx, seq, r, err)
		})
	})
}

func (s *Service) applyOverview(ctx context.Context, seq uint64, ov source.Overview, err error) {
	if !s.accept(ctx, pollOverview, seq) {
		return
	}
	if err != nil {
		s.failed(ctx, pollOverview, err)
		return
	}
	delete(s.errs, pollOverview.String())
	metrics.RecordSkipped("overview", ov.Dropped)

	s.vitals = merge.Merge(ctx, ov.HeartRate, ov.RespiratoryRate,
		merge.WithLogger(s.log.Named("merge")),
		merge.WithLocale(s.locale),
	)
	metrics.RecordSkipped("vitals", s.vitals.Skipped())
	metrics.RecordUnresolved(s.vitals.Unresolved())
	metrics.UpdateCriticalPatients(len(s.vitals.Critical()))
	if t := s.vitals.Freshness(); !t.IsZero() {
		metrics.UpdateDataFreshness(t)
	}
	s.summary = ov.Summary

	res := s.pipeline.Triage(ctx, ov.Alerts, s.vitals.Codes())
	s.alerts, s.alertTotal = res.Active, res.Total
	metrics.UpdateActiveAlerts(res.Total)
	metrics.RecordSkipped("alerts", res.Skipped)
	for range res.Announced {
		metrics.RecordAlertAnnounced()
	}

	// Device health leans on the merged vitals.
	if s.rosterLoaded {
		s.reconcileDevices(ctx)
	}

	metrics.RecordPollCycle(pollOverview.String(), "ok")
	s.log.Debug(ctx, "overview applied",
		logger.Uint64("seq", seq),
		logger.Int("patients", s.vitals.Len()),
		logger.Int("active_alerts", res.Total),
		logger.Int("announced", res.Announced),
	)
	s.publish()
}

func (s *Service) applyRoster(ctx context.Context, seq uint64, r source.Roster, err error) {
	if !s.accept(ctx, pollRoster, seq) {
		return
	}
	if err != nil {
		s.failed(ctx, pollRoster, err)
		return
	}
	delete(s.errs, pollRoster.String())
	metrics.RecordSkipped("roster", r.Dropped)

	s.rosterItems = r.Patients
	s.rosterLoaded = true
	s.reconcileDevices(ctx)

	metrics.RecordPollCycle(pollRoster.String(), "ok")
	s.publish()
}

// reconcileDevices rebuilds device locations from the last roster and
// current vitals, then feeds the arbiter.
func (s *Service) reconcileDevices(ctx context.Context) {
	res := roster.Build(ctx, s.rosterItems, s.vitals, s.log.Named("roster"))
	metrics.RecordSkipped("devices", res.Skipped)
	s.devices = res.Devices

	before := s.arbiter.Snapshot()
	s.observeFocus(before, s.arbiter.UpdateDevices(ctx, res.Devices))
	s.announceCritical(ctx)
}

// announceCritical writes one analysis entry per patient that became
// critical since the previous reconciliation.
func (s *Service) announceCritical(ctx context.Context) {
	next := make(map[model.PatientID]struct{})
	for _, d := range s.devices {
		id := d.AssignedPatientID
		if d.Health != model.Critical || id.IsZero() {
			continue
		}
		if _, dup := next[id]; dup {
			continue
		}
		next[id] = struct{}{}
		if _, known := s.critical[id]; known {
			continue
		}

		details := map[string]string{
			"deviceId": d.DeviceID,
			"severity": d.Health.String(),
		}
		if d.PatientCode != "" {
			details["patientCode"] = d.PatientCode
		}
		if rec, ok := s.vitals.Get(id); ok {
			details["vitalSeverity"] = severity.Record(rec, model.Normal).String()
		}
		e := model.NotificationEntry{
			Timestamp:   s.now().UTC(),
			ActorSystem: s.actorSystem,
			PatientID:   id,
			Category:    model.LogCategoryAnalysis,
			Type:        "critical_patient",
			Status:      model.Critical.String(),
			Details:     details,
		}
		if err := s.sink.Append(ctx, e); err != nil {
			// Forget it so the next reconciliation retries.
			delete(next, id)
			s.log.Error(ctx, "writing analysis entry",
				logger.String("patient_id", id.String()), logger.Error(err))
		}
	}
	for id := range s.critical {
		if _, still := next[id]; !still {
			s.log.Info(ctx, "patient left critical", logger.String("patient_id", id.String()))
		}
	}
	s.critical = next
}
