package service

import (
	"context"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/focus"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/types"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

var geoMessages = map[string]string{
	"permission_denied":    "Location permission was denied.",
	"position_unavailable": "Your position is currently unavailable.",
	"timeout":              "Timed out waiting for a position fix.",
	"unsupported":          "Location tracking is not available on this station.",
}

// SelectDevice focuses one device. It overrides every other focus source
// and turns self-tracking off.
func (s *Service) SelectDevice(ctx context.Context, deviceID string) (focus.Snapshot, error) {
	var out focus.Snapshot
	err := s.do(ctx, "focus.select", func(ctx context.Context) error {
		before := s.arbiter.Snapshot()
		snap, err := s.arbiter.SelectDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		s.releaseGeo()
		s.observeFocus(before, snap)
		s.publish()
		out = snap
		return nil
	})
	if err != nil {
		return focus.Snapshot{}, err
	}
	return out, nil
}

// ClearSelection drops a manual focus.
func (s *Service) ClearSelection(ctx context.Context) (focus.Snapshot, error) {
	var out focus.Snapshot
	err := s.do(ctx, "focus.clear", func(ctx context.Context) error {
		out = s.arbiter.ClearSelection(ctx)
		s.publish()
		return nil
	})
	if err != nil {
		return focus.Snapshot{}, err
	}
	return out, nil
}

// SetSelfTracking turns self-tracking on or off. Turning it on subscribes to
// the position provider; the first fix from the stream centres the map.
// A provider failure disables tracking and raises a notice.
func (s *Service) SetSelfTracking(ctx context.Context, on bool) (focus.Snapshot, error) {
	var out focus.Snapshot
	err := s.do(ctx, "focus.tracking", func(ctx context.Context) error {
		before := s.arbiter.Snapshot()
		if on == before.Tracking {
			out = before
			return nil
		}
		if !on {
			s.releaseGeo()
			s.observeFocus(before, s.arbiter.ToggleSelfTracking(ctx, false))
			s.publish()
			out = s.arbiter.Snapshot()
			return nil
		}

		sub, err := s.geo.Watch(ctx)
		if err != nil {
			s.geoFailed(ctx, err)
			return err
		}
		s.releaseGeo()
		s.geoSub = sub
		gen := s.geoGen
		s.spawn(func(ctx context.Context) { s.pump(ctx, gen, sub) })

		s.observeFocus(before, s.arbiter.ToggleSelfTracking(ctx, true))
		s.publish()
		out = s.arbiter.Snapshot()
		return nil
	})
	if err != nil {
		return focus.Snapshot{}, err
	}
	return out, nil
}

// LocateSelf takes one position fix without entering self-tracking. While
// tracking, the latest streamed fix is returned instead.
func (s *Service) LocateSelf(ctx context.Context) (model.Position, error) {
	if f := s.View().Focus; f.Tracking && f.SelfPosition != nil {
		return *f.SelfPosition, nil
	}
	p, err := s.geo.Current(ctx)
	if err != nil {
		_ = s.do(ctx, "geo.failure", func(ctx context.Context) error {
			s.geoFailed(ctx, err)
			return nil
		})
		return model.Position{}, err
	}
	err = s.do(ctx, "geo.fix", func(ctx context.Context) error {
		s.observeFocus(s.arbiter.Snapshot(), s.arbiter.UpdateSelfPosition(ctx, p))
		s.publish()
		return nil
	})
	if err != nil {
		return model.Position{}, err
	}
	return p, nil
}

// OpenTrackingView starts roster polling.
func (s *Service) OpenTrackingView(ctx context.Context) error {
	return s.do(ctx, "tracking_view.open", func(context.Context) error {
		if s.trackingView {
			return nil
		}
		s.trackingView = true
		s.rosterStop = make(chan struct{})
		s.every(s.rosterEvery, s.fetchRoster, s.rosterStop)
		s.fetchRoster()
		s.publish()
		return nil
	})
}

// CloseTrackingView stops roster polling and self-tracking.
func (s *Service) CloseTrackingView(ctx context.Context) error {
	return s.do(ctx, "tracking_view.close", func(ctx context.Context) error {
		if !s.trackingView {
			return nil
		}
		s.trackingView = false
		close(s.rosterStop)
		s.rosterStop = nil
		s.invalidate(pollRoster)

		if before := s.arbiter.Snapshot(); before.Tracking {
			s.releaseGeo()
			s.observeFocus(before, s.arbiter.ToggleSelfTracking(ctx, false))
		}
		s.publish()
		return nil
	})
}

// DismissNotice clears the current notice.
func (s *Service) DismissNotice(ctx context.Context) error {
	return s.do(ctx, "notice.dismiss", func(context.Context) error {
		if s.notice != nil {
			s.notice = nil
			s.publish()
		}
		return nil
	})
}

// pump forwards stream updates of generation gen to the loop.
func (s *Service) pump(ctx context.Context, gen uint64, sub *geo.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sub.C:
			if !ok {
				s.post(ctx, "geo.closed", func(ctx context.Context) {
					s.applyGeo(ctx, gen, geo.Update{Err: geo.ErrPositionUnavailable})
				})
				return
			}
			s.post(ctx, "geo.update", func(ctx context.Context) {
				s.applyGeo(ctx, gen, u)
			})
		}
	}
}

func (s *Service) applyGeo(ctx context.Context, gen uint64, u geo.Update) {
	if s.geoSub == nil || gen != s.geoGen {
		return
	}
	if u.Err != nil {
		s.geoFailed(ctx, u.Err)
		return
	}
	s.observeFocus(s.arbiter.Snapshot(), s.arbiter.UpdateSelfPosition(ctx, u.Position))
	s.publish()
}

// releaseGeo closes the live subscription and retires its generation.
func (s *Service) releaseGeo() {
	s.geoSub.Close()
	s.geoSub = nil
	s.geoGen++
}

// geoFailed force-disables tracking and raises a transient notice.
func (s *Service) geoFailed(ctx context.Context, err error) {
	kind := geo.Kind(err)
	metrics.RecordGeoFailure(kind)
	s.log.Warn(ctx, "geolocation failed", logger.String("kind", kind), logger.Error(err))

	s.releaseGeo()
	before := s.arbiter.Snapshot()
	if before.Tracking {
		s.observeFocus(before, s.arbiter.ToggleSelfTracking(ctx, false))
	}

	msg, ok := geoMessages[kind]
	if !ok {
		msg = "Location tracking failed."
	}
	s.raise(ctx, "geo."+kind, msg)
	s.publish()
}

// raise replaces the current notice and schedules its removal.
func (s *Service) raise(ctx context.Context, kind, msg string) {
	s.noticeSeq++
	n := &types.Notice{ID: s.noticeSeq, Kind: kind, Message: msg, At: s.now().UTC()}
	s.notice = n
	if s.noticeTTL <= 0 {
		return
	}
	n.ExpiresAt = n.At.Add(s.noticeTTL)
	id := n.ID
	time.AfterFunc(s.noticeTTL, func() {
		s.post(ctx, "notice.expire", func(context.Context) {
			if s.notice != nil && s.notice.ID == id {
				s.notice = nil
				s.publish()
			}
		})
	})
}

// observeFocus records focus metrics for one arbiter step.
func (s *Service) observeFocus(before, after focus.Snapshot) {
	if after.Trigger > before.Trigger {
		metrics.RecordFocusTrigger(string(after.Target.Kind))
	}
	for range after.SuppressedTotal - before.SuppressedTotal {
		metrics.RecordFocusSuppressed()
	}
}
