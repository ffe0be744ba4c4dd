package service

import (
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSink sets the notification log.
func WithSink(k sink.Sink) Option {
	return func(s *Service) {
		if k != nil {
			s.sink = k
		}
	}
}

// WithGeo sets the position provider used for self-tracking.
func WithGeo(p geo.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.geo = p
		}
	}
}

// WithQueueSize bounds the reconciliation task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSeenCacheSize bounds the cache of announced alert ids.
func WithSeenCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.seenSize = size
		}
	}
}

// WithDisplayLimit caps the displayed active alerts.
func WithDisplayLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.displayLimit = n
		}
	}
}

// WithActorSystem names the system on automatic log entries.
func WithActorSystem(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.actorSystem = name
		}
	}
}

// WithLocale sets the preferred locale for names and messages.
func WithLocale(locale string) Option {
	return func(s *Service) {
		if locale != "" {
			s.locale = locale
		}
	}
}

// WithIntervals sets the overview and roster poll cadences.
func WithIntervals(overview, roster time.Duration) Option {
	return func(s *Service) {
		if overview > 0 {
			s.overviewEvery = overview
		}
		if roster > 0 {
			s.rosterEvery = roster
		}
	}
}

// WithSearchDebounce sets the quiet period before an alert search is sent.
func WithSearchDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithNoticeTTL sets how long a notice stays up. Zero keeps it until
// dismissed.
func WithNoticeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.noticeTTL = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
