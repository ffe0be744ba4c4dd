// Package service runs the monitor: it polls the source, reconciles vitals,
// alerts and devices on a single loop, and publishes immutable views.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/mq/queue"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/mq/worker"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/dedupe"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/focus"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/merge"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/triage"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/types"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// Source is the polled monitoring API.
type Source interface {
	FetchOverview(ctx context.Context) (source.Overview, error)
	FetchRoster(ctx context.Context) (source.Roster, error)
	QueryAlerts(ctx context.Context, q source.AlertQuery) (source.AlertPage, error)
}

// Defaults used when no option overrides them.
const (
	DefaultOverviewInterval = 10 * time.Second
	DefaultRosterInterval   = 15 * time.Second
	DefaultSearchDebounce   = 500 * time.Millisecond
	DefaultNoticeTTL        = 5 * time.Second
	defaultQueueSize        = 1024
	defaultSeenSize         = 10_000
	defaultSinkLimit        = 1000
)

// Service owns every piece of mutable monitor state. State fields below the
// lifecycle block are touched only by tasks running on the loop.
type Service struct {
	src  Source
	sink sink.Sink
	geo  geo.Provider
	log  logger.Logger
	now  func() time.Time

	queueSize     int
	seenSize      int
	displayLimit  int
	actorSystem   string
	locale        string
	overviewEvery time.Duration
	rosterEvery   time.Duration
	debounce      time.Duration
	noticeTTL     time.Duration

	// Lifecycle.
	mu      sync.Mutex
	started bool
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	queue   *queue.InMemoryQueue
	loop    *worker.Loop
	wg      sync.WaitGroup

	issued [numPolls]atomic.Uint64
	view   atomic.Pointer[types.View]

	// Loop-owned.
	applied      [numPolls]uint64
	pipeline     *triage.Pipeline
	arbiter      *focus.Arbiter
	vitals       *merge.Result
	summary      model.Record
	alerts       []model.AlertEvent
	alertTotal   int
	rosterItems  []model.Record
	rosterLoaded bool
	devices      []model.DeviceLocation
	critical     map[model.PatientID]struct{}
	errs         map[string]string
	trackingView bool
	rosterStop   chan struct{}
	geoSub       *geo.Subscription
	geoGen       uint64
	notice       *types.Notice
	noticeSeq    uint64
	search       types.SearchView
	searchTimer  *time.Timer
}

// New constructs a Service polling src.
func New(src Source, opts ...Option) *Service {
	s := &Service{
		src:           src,
		geo:           geo.Unsupported{},
		log:           logger.Get().Named("monitor"),
		now:           time.Now,
		queueSize:     defaultQueueSize,
		seenSize:      defaultSeenSize,
		displayLimit:  triage.DefaultDisplayLimit,
		actorSystem:   triage.DefaultActorSystem,
		locale:        merge.PreferredLocale,
		overviewEvery: DefaultOverviewInterval,
		rosterEvery:   DefaultRosterInterval,
		debounce:      DefaultSearchDebounce,
		noticeTTL:     DefaultNoticeTTL,
		critical:      make(map[model.PatientID]struct{}),
		errs:          make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = sink.NewMemory(defaultSinkLimit)
	}

	s.pipeline = triage.New(s.sink,
		triage.WithLogger(s.log.Named("triage")),
		triage.WithDisplayLimit(s.displayLimit),
		triage.WithActorSystem(s.actorSystem),
		triage.WithLocale(s.locale),
		triage.WithClock(s.now),
		triage.WithSeen(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.seenSize))),
	)
	s.arbiter = focus.New(
		focus.WithLogger(s.log.Named("focus")),
		focus.WithClock(s.now),
	)
	s.publish()
	return s
}

// Start launches the loop and the overview poll. The loop outlives ctx's
// deadline; it stops on Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.loop = worker.NewLoop(s.queue, worker.WithName("reconcile"), worker.WithLogger(s.log))
	s.started = true
	s.mu.Unlock()

	go s.loop.Run(s.runCtx)

	s.log.Info(ctx, "monitor started",
		logger.Duration("overview_interval", s.overviewEvery),
		logger.Duration("roster_interval", s.rosterEvery),
		logger.Int("queue_size", s.queueSize),
		logger.Int("display_limit", s.displayLimit),
	)

	s.every(s.overviewEvery, s.fetchOverview, nil)
	s.fetchOverview()
	return nil
}

// Stop shuts the loop down, cancels in-flight fetches and releases the
// geolocation subscription. It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.log.Info(ctx, "stopping monitor...")

	err := s.loop.Shutdown(ctx)
	s.cancel()
	_ = s.queue.Close()
	s.wg.Wait()

	// The loop is gone; nothing else touches loop-owned state now.
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}
	s.geoSub.Close()
	s.geoSub = nil

	s.log.Info(ctx, "monitor stopped")
	return err
}

func (s *Service) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// spawn runs fn on a tracked goroutine bound to the service lifetime.
func (s *Service) spawn(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.wg.Add(1)
	ctx := s.runCtx
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// every calls fn on a ticker until the service stops or stop is closed.
func (s *Service) every(d time.Duration, fn func(), stop <-chan struct{}) {
	s.spawn(func(ctx context.Context) {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				fn()
			}
		}
	})
}

// post hands fn to the loop without waiting.
func (s *Service) post(ctx context.Context, name string, fn func(ctx context.Context)) {
	err := s.queue.Enqueue(ctx, queue.Task{Name: name, Run: fn})
	if err == nil || errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
		return
	}
	s.log.Warn(ctx, "dropping task", logger.String("task", name), logger.Error(err))
}

// do runs fn on the loop and waits for its result.
func (s *Service) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if !s.running() {
		return ErrNotStarted
	}
	reply := make(chan error, 1)
	err := s.queue.Enqueue(ctx, queue.Task{Name: name, Run: func(ctx context.Context) { reply <- fn(ctx) }})
	switch {
	case errors.Is(err, queue.ErrClosed):
		return ErrStopped
	case errors.Is(err, queue.ErrFull):
		return ErrBusy
	case err != nil:
		return fmt.Errorf("%s: %w", name, err)
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loop.Done():
		return ErrStopped
	}
}

// Entries returns the in-process notification log when the sink keeps one.
func (s *Service) Entries() ([]model.NotificationEntry, bool) {
	type lister interface {
		Entries() []model.NotificationEntry
	}
	switch k := s.sink.(type) {
	case lister:
		return k.Entries(), true
	case sink.Tee:
		for _, inner := range k {
			if l, ok := inner.(lister); ok {
				return l.Entries(), true
			}
		}
	}
	return nil, false
}

// Stats reports lifecycle and queue figures.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.Lock()
	started, stopped, q := s.started, s.stopped, s.queue
	s.mu.Unlock()

	v := s.View()
	stats := map[string]any{
		"started":      started && !stopped,
		"queueSize":    s.queueSize,
		"patients":     len(v.Patients),
		"activeAlerts": v.AlertTotal,
		"devices":      len(v.Devices),
		"focusState":   v.Focus.State.String(),
		"updatedAt":    v.UpdatedAt,
	}
	if q != nil {
		stats["queueLength"] = q.Len(ctx)
	}
	return stats
}
