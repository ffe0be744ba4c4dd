package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/bezboss20/Dashboard-sub001/internal/app"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/focus"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/triage"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

const (
	patientA = "65f0c1d2e3a4b5c6d7e8f901"
	patientB = "65f0c1d2e3a4b5c6d7e8f902"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeSource struct {
	mu          sync.Mutex
	overview    source.Overview
	overviewErr error
	roster      source.Roster
	page        source.AlertPage
	queries     []source.AlertQuery
	rosterCalls int
}

func (f *fakeSource) FetchOverview(context.Context) (source.Overview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overview, f.overviewErr
}

func (f *fakeSource) FetchRoster(context.Context) (source.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	return f.roster, nil
}

func (f *fakeSource) QueryAlerts(_ context.Context, q source.AlertQuery) (source.AlertPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.page, nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// streamProvider hands out a channel the test writes fixes into.
type streamProvider struct {
	ch     chan geo.Update
	closed chan struct{}

	mu         sync.Mutex
	currentErr error
	currents   int
}

func newStreamProvider() *streamProvider {
	return &streamProvider{ch: make(chan geo.Update, 4), closed: make(chan struct{})}
}

func (p *streamProvider) Current(context.Context) (model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currents++
	if p.currentErr != nil {
		return model.Position{}, p.currentErr
	}
	return model.Position{Coordinates: model.Coordinates{Lat: 1, Lng: 2}}, nil
}

func (p *streamProvider) currentCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currents
}

func (p *streamProvider) Watch(context.Context) (*geo.Subscription, error) {
	return geo.NewSubscription(p.ch, func() { close(p.closed) }), nil
}

func overview() source.Overview {
	return source.Overview{
		Summary: model.Record{"totalPatients": 2.0},
		HeartRate: []model.Record{
			{"patientId": patientA, "value": 105.0, "timestamp": "2026-03-01T09:00:00Z", "patientCode": "PT-001"},
			{"patientId": patientB, "value": 72.0, "timestamp": "2026-03-01T09:00:05Z", "patientCode": "PT-002"},
		},
		RespiratoryRate: []model.Record{
			{"patientId": patientB, "value": 16.0, "timestamp": "2026-03-01T09:00:05Z"},
		},
		Alerts: []model.Record{
			{"_id": "a1", "severity": "warning", "status": "active", "patientId": patientB, "message": "respiration low"},
			{"_id": "a2", "severity": "critical", "status": "new", "patientCode": "PT-001", "message": "heart rate high"},
			{"_id": "a3", "severity": "critical", "status": "resolved", "patientId": patientA},
		},
	}
}

func rosterOf() source.Roster {
	return source.Roster{Patients: []model.Record{
		{"_id": patientA, "patientCode": "PT-001", "device": map[string]any{
			"deviceId": "D1", "location": map[string]any{"lat": 37.56, "lng": 126.97}, "online": true,
		}},
		{"_id": patientB, "patientCode": "PT-002", "device": map[string]any{
			"deviceId": "D2", "location": map[string]any{"lat": 37.57, "lng": 126.98}, "online": true,
		}},
	}}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func count(entries []model.NotificationEntry, category string) int {
	n := 0
	for _, e := range entries {
		if e.Category == category {
			n++
		}
	}
	return n
}

func started(src *fakeSource, opts ...service.Option) (*service.Service, *sink.Memory) {
	mem := sink.NewMemory(0)
	opts = append([]service.Option{
		service.WithSink(mem),
		service.WithIntervals(time.Hour, time.Hour),
		service.WithSearchDebounce(20 * time.Millisecond),
	}, opts...)
	svc := service.New(src, opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	So(eventually(func() bool { return len(svc.View().Patients) > 0 }), ShouldBeTrue)
	return svc, mem
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(&fakeSource{})

		Convey("Then commands fail before start", func() {
			err := svc.Refresh(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.View(), ShouldNotBeNil)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Stats(context.Background())["started"], ShouldEqual, true)

			So(svc.Stop(context.Background()), ShouldBeNil)
			So(svc.Stop(context.Background()), ShouldBeNil)

			Convey("Then it reports stopped and rejects commands", func() {
				So(svc.Stats(context.Background())["started"], ShouldEqual, false)
				So(svc.Refresh(context.Background()), ShouldNotBeNil)
			})
		})
	})
}

func TestService_Overview(t *testing.T) {
	Convey("Given a source with vitals and alerts", t, func() {
		src := &fakeSource{overview: overview()}
		svc, mem := started(src)
		defer func() { _ = svc.Stop(context.Background()) }()
		v := svc.View()

		Convey("Then patients are merged and ranked by urgency", func() {
			So(len(v.Patients), ShouldEqual, 2)
			So(v.HeartRate[0].Record.ID, ShouldEqual, model.PatientID(patientA))
			So(v.HeartRate[0].Tier, ShouldEqual, model.Critical)
			So(len(v.RespiratoryRate), ShouldEqual, 1)
			So(v.Patients[0].RespiratoryRate, ShouldBeNil)
			So(v.Summary["totalPatients"], ShouldEqual, 2.0)
		})

		Convey("Then active alerts are triaged with the code fallback", func() {
			So(v.AlertTotal, ShouldEqual, 2)
			So(v.Alerts[0].ID, ShouldEqual, "a2")
			So(v.Alerts[0].PatientID, ShouldEqual, model.PatientID(patientA))
			So(count(mem.Entries(), model.LogCategoryTriage), ShouldEqual, 2)
		})

		Convey("When a later poll fails", func() {
			src.set(func(f *fakeSource) { f.overviewErr = errors.New("connection refused") })
			So(svc.Refresh(context.Background()), ShouldBeNil)
			So(eventually(func() bool { return svc.View().Errors["overview"] != "" }), ShouldBeTrue)

			Convey("Then the last good state is kept", func() {
				So(len(svc.View().Patients), ShouldEqual, 2)
			})

			Convey("Then the error clears on the next success", func() {
				src.set(func(f *fakeSource) { f.overviewErr = nil })
				So(svc.Refresh(context.Background()), ShouldBeNil)
				So(eventually(func() bool { return svc.View().Errors["overview"] == "" }), ShouldBeTrue)
			})
		})
	})
}

func TestService_AlertCommands(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running service with active alerts", t, func() {
		svc, mem := started(&fakeSource{overview: overview()})
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When an alert is acknowledged twice", func() {
			a, err1 := svc.Acknowledge(ctx, "a2", "nurse.kim", "on my way")
			_, err2 := svc.Acknowledge(ctx, "a2", "nurse.kim", "")

			Convey("Then it leaves the active list and logs once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(a.Status, ShouldEqual, model.AlertAcknowledged)
				So(svc.View().AlertTotal, ShouldEqual, 1)
				So(count(mem.Entries(), model.LogCategoryAcknowledge), ShouldEqual, 1)
			})
		})

		Convey("When resolving an unknown alert", func() {
			_, err := svc.Resolve(ctx, "nope", "nurse.kim")

			Convey("Then a not-found error is returned", func() {
				So(errors.Is(err, triage.ErrAlertNotFound), ShouldBeTrue)
			})
		})

		Convey("When resolving without an actor", func() {
			_, err := svc.Resolve(ctx, "a1", "")
			So(errors.Is(err, triage.ErrInvalidCommand), ShouldBeTrue)
		})
	})
}

func TestService_TrackingView(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running service", t, func() {
		src := &fakeSource{overview: overview(), roster: rosterOf()}
		svc, mem := started(src)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When the tracking view opens", func() {
			So(svc.OpenTrackingView(ctx), ShouldBeNil)
			So(eventually(func() bool { return len(svc.View().Devices) == 2 }), ShouldBeTrue)
			v := svc.View()

			Convey("Then device health follows the merged vitals", func() {
				So(v.TrackingView, ShouldBeTrue)
				So(v.Devices[0].Health, ShouldEqual, model.Critical)
				So(v.Devices[1].Health, ShouldEqual, model.Normal)
			})

			Convey("Then the map focuses the critical device", func() {
				So(v.Focus.State, ShouldEqual, focus.CriticalAutoFocus)
				So(v.Focus.Target.DeviceIDs, ShouldResemble, []string{"D1"})
				So(v.Focus.Trigger, ShouldEqual, 1)
			})

			Convey("Then one analysis entry is written for the critical patient", func() {
				So(count(mem.Entries(), model.LogCategoryAnalysis), ShouldEqual, 1)
				So(svc.Refresh(ctx), ShouldBeNil)
				So(eventually(func() bool {
					src.mu.Lock()
					defer src.mu.Unlock()
					return src.rosterCalls >= 2
				}), ShouldBeTrue)
				So(count(mem.Entries(), model.LogCategoryAnalysis), ShouldEqual, 1)
			})

			Convey("Then a manual selection wins and suppresses nothing yet", func() {
				snap, err := svc.SelectDevice(ctx, "D2")
				So(err, ShouldBeNil)
				So(snap.State, ShouldEqual, focus.ManualFocus)
				So(snap.Trigger, ShouldEqual, 2)

				snap, err = svc.SelectDevice(ctx, "D2")
				So(err, ShouldBeNil)
				So(snap.Trigger, ShouldEqual, 3)
			})

			Convey("Then selecting an unknown device fails", func() {
				_, err := svc.SelectDevice(ctx, "D9")
				So(errors.Is(err, focus.ErrUnknownDevice), ShouldBeTrue)
			})

			Convey("When the view closes", func() {
				So(svc.CloseTrackingView(ctx), ShouldBeNil)
				So(svc.View().TrackingView, ShouldBeFalse)
			})
		})
	})
}

func TestService_SelfTracking(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without a position source", t, func() {
		svc, _ := started(&fakeSource{overview: overview()})
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When self-tracking is enabled", func() {
			_, err := svc.SetSelfTracking(ctx, true)

			Convey("Then it fails with a typed notice and stays off", func() {
				So(errors.Is(err, geo.ErrUnsupported), ShouldBeTrue)
				v := svc.View()
				So(v.Focus.Tracking, ShouldBeFalse)
				So(v.Notice, ShouldNotBeNil)
				So(v.Notice.Kind, ShouldEqual, "geo.unsupported")
			})

			Convey("Then the notice can be dismissed", func() {
				So(svc.DismissNotice(ctx), ShouldBeNil)
				So(svc.View().Notice, ShouldBeNil)
			})
		})
	})

	Convey("Given a streaming position source", t, func() {
		p := newStreamProvider()
		svc, _ := started(&fakeSource{overview: overview()},
			service.WithGeo(p), service.WithNoticeTTL(100*time.Millisecond))
		defer func() { _ = svc.Stop(ctx) }()

		snap, err := svc.SetSelfTracking(ctx, true)
		So(err, ShouldBeNil)
		So(snap.State, ShouldEqual, focus.SelfTracking)

		Convey("When a fix arrives", func() {
			p.ch <- geo.Update{Position: model.Position{Coordinates: model.Coordinates{Lat: 37.5, Lng: 127.0}}}

			Convey("Then the map follows it", func() {
				So(eventually(func() bool { return svc.View().Focus.Target.Coordinates != nil }), ShouldBeTrue)
				f := svc.View().Focus
				So(f.Target.Kind, ShouldEqual, model.FocusSelfLocation)
				So(f.Target.Coordinates.Lat, ShouldEqual, 37.5)
			})
		})

		Convey("When the stream reports a failure", func() {
			p.ch <- geo.Update{Err: geo.ErrPermissionDenied}

			Convey("Then tracking is disabled and the subscription released", func() {
				So(eventually(func() bool { return !svc.View().Focus.Tracking }), ShouldBeTrue)
				So(eventually(func() bool {
					select {
					case <-p.closed:
						return true
					default:
						return false
					}
				}), ShouldBeTrue)
			})

			Convey("Then the notice clears itself", func() {
				var kind string
				So(eventually(func() bool {
					if n := svc.View().Notice; n != nil {
						kind = n.Kind
						return true
					}
					return false
				}), ShouldBeTrue)
				So(kind, ShouldEqual, "geo.permission_denied")
				So(eventually(func() bool { return svc.View().Notice == nil }), ShouldBeTrue)
			})
		})

		Convey("When tracking is turned off", func() {
			snap, err := svc.SetSelfTracking(ctx, false)
			So(err, ShouldBeNil)
			So(snap.State, ShouldEqual, focus.Idle)
		})
	})
}

func TestService_LocateSelf(t *testing.T) {
	ctx := context.Background()

	Convey("Given a position source and tracking off", t, func() {
		p := newStreamProvider()
		svc, _ := started(&fakeSource{overview: overview()}, service.WithGeo(p))
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a one-shot fix succeeds", func() {
			pos, err := svc.LocateSelf(ctx)

			Convey("Then the fix is recorded without moving the map", func() {
				So(err, ShouldBeNil)
				So(pos.Lat, ShouldEqual, 1.0)
				f := svc.View().Focus
				So(f.Tracking, ShouldBeFalse)
				So(f.SelfPosition, ShouldNotBeNil)
				So(f.SelfPosition.Lng, ShouldEqual, 2.0)
				So(f.Target.Kind, ShouldNotEqual, model.FocusSelfLocation)
				So(svc.View().Notice, ShouldBeNil)
			})
		})

		Convey("When a one-shot fix fails", func() {
			p.currentErr = geo.ErrTimeout
			_, err := svc.LocateSelf(ctx)

			Convey("Then the typed error surfaces as a notice", func() {
				So(errors.Is(err, geo.ErrTimeout), ShouldBeTrue)
				n := svc.View().Notice
				So(n, ShouldNotBeNil)
				So(n.Kind, ShouldEqual, "geo.timeout")
				So(svc.View().Focus.SelfPosition, ShouldBeNil)
			})
		})
	})

	Convey("Given self-tracking is on", t, func() {
		p := newStreamProvider()
		svc, _ := started(&fakeSource{overview: overview()}, service.WithGeo(p))
		defer func() { _ = svc.Stop(ctx) }()
		_, err := svc.SetSelfTracking(ctx, true)
		So(err, ShouldBeNil)

		Convey("When a streamed fix has arrived", func() {
			p.ch <- geo.Update{Position: model.Position{Coordinates: model.Coordinates{Lat: 37.5, Lng: 127.0}}}
			So(eventually(func() bool { return svc.View().Focus.SelfPosition != nil }), ShouldBeTrue)
			pos, err := svc.LocateSelf(ctx)

			Convey("Then the streamed fix is returned and the stream stays open", func() {
				So(err, ShouldBeNil)
				So(pos.Lat, ShouldEqual, 37.5)
				So(p.currentCalls(), ShouldEqual, 0)
				So(svc.View().Focus.Tracking, ShouldBeTrue)
			})
		})

		Convey("When no fix has arrived and the one-shot fails", func() {
			p.currentErr = geo.ErrPermissionDenied
			_, err := svc.LocateSelf(ctx)

			Convey("Then tracking is disabled with a notice", func() {
				So(errors.Is(err, geo.ErrPermissionDenied), ShouldBeTrue)
				So(p.currentCalls(), ShouldEqual, 1)
				v := svc.View()
				So(v.Focus.Tracking, ShouldBeFalse)
				So(v.Notice, ShouldNotBeNil)
				So(v.Notice.Kind, ShouldEqual, "geo.permission_denied")
				So(eventually(func() bool {
					select {
					case <-p.closed:
						return true
					default:
						return false
					}
				}), ShouldBeTrue)
			})
		})
	})
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running service", t, func() {
		src := &fakeSource{
			overview: overview(),
			page: source.AlertPage{
				Alerts: []model.Record{
					{"_id": "h1", "severity": "HIGH", "status": "resolved", "patientCode": "PT-002"},
					{"_id": "h2", "status": "bogus"},
				},
				Total: 41, Page: 2, Limit: 20, TotalPages: 3,
			},
		}
		svc, _ := started(src)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When two searches arrive within the debounce window", func() {
			So(svc.Search(ctx, source.AlertQuery{Search: "hea"}), ShouldBeNil)
			So(svc.Search(ctx, source.AlertQuery{Search: "heart", Page: 2}), ShouldBeNil)
			So(svc.View().Search.Pending, ShouldBeTrue)

			So(eventually(func() bool { return !svc.View().Search.Pending }), ShouldBeTrue)

			Convey("Then only the last query is sent", func() {
				So(src.queryCount(), ShouldEqual, 1)
				s := svc.View().Search
				So(s.Search, ShouldEqual, "heart")
				So(s.Total, ShouldEqual, 41)
				So(s.TotalPages, ShouldEqual, 3)
				So(len(s.Alerts), ShouldEqual, 1)
				So(s.Alerts[0].Severity, ShouldEqual, model.Critical)
				So(s.Alerts[0].PatientID, ShouldEqual, model.PatientID(patientB))
			})
		})
	})
}
