package service

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

const canonicalA = "65f0c1d2e3a4b5c6d7e8f901"

func heartRate(v float64) source.Overview {
	return source.Overview{HeartRate: []model.Record{
		{"patientId": canonicalA, "value": v, "timestamp": "2026-03-01T09:00:00Z"},
	}}
}

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, model.NotificationEntry) error { return f.err }

func TestStaleCompletions(t *testing.T) {
	ctx := context.Background()

	Convey("Given two overview requests in flight", t, func() {
		s := New(nil)
		s.issued[pollOverview].Store(2)

		Convey("When the newer one completes first", func() {
			s.applyOverview(ctx, 2, heartRate(72), nil)
			s.applyOverview(ctx, 1, heartRate(105), nil)

			Convey("Then the older completion is discarded", func() {
				rec, ok := s.vitals.Get(canonicalA)
				So(ok, ShouldBeTrue)
				So(*rec.HeartRate, ShouldEqual, 72)
				So(rec.Severity, ShouldEqual, model.Normal)
			})
		})

		Convey("When an older failure arrives after a success", func() {
			s.applyOverview(ctx, 2, heartRate(72), nil)
			s.applyOverview(ctx, 1, source.Overview{}, errors.New("timeout"))

			Convey("Then no error is shown", func() {
				So(s.View().Errors, ShouldBeEmpty)
			})
		})

		Convey("When the kind is invalidated", func() {
			s.invalidate(pollOverview)

			Convey("Then every in-flight completion is stale", func() {
				So(s.accept(ctx, pollOverview, 2), ShouldBeFalse)
				So(s.accept(ctx, pollOverview, 3), ShouldBeTrue)
			})
		})

		Convey("Then kinds are sequenced independently", func() {
			s.applyOverview(ctx, 2, heartRate(72), nil)
			So(s.accept(ctx, pollRoster, 1), ShouldBeTrue)
		})
	})
}

func TestAnnounceCritical(t *testing.T) {
	ctx := context.Background()

	Convey("Given a critical device assigned to a patient", t, func() {
		mem := sink.NewMemory(0)
		s := New(nil, WithSink(mem), WithActorSystem("ward-7"))
		s.devices = []model.DeviceLocation{
			{DeviceID: "D1", Health: model.Critical, AssignedPatientID: canonicalA, PatientCode: "PT-001"},
			{DeviceID: "D2", Health: model.Critical},
		}

		Convey("When reconciled twice", func() {
			s.announceCritical(ctx)
			s.announceCritical(ctx)

			Convey("Then one analysis entry is written", func() {
				entries := mem.Entries()
				So(len(entries), ShouldEqual, 1)
				e := entries[0]
				So(e.Category, ShouldEqual, model.LogCategoryAnalysis)
				So(e.PatientID, ShouldEqual, model.PatientID(canonicalA))
				So(e.ActorSystem, ShouldEqual, "ward-7")
				So(e.Details["deviceId"], ShouldEqual, "D1")
				So(e.Details["patientCode"], ShouldEqual, "PT-001")
			})
		})

		Convey("When the patient recovers and relapses", func() {
			s.announceCritical(ctx)
			s.devices[0].Health = model.Warning
			s.announceCritical(ctx)
			s.devices[0].Health = model.Critical
			s.announceCritical(ctx)

			Convey("Then the relapse is announced again", func() {
				So(mem.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the sink fails", func() {
			s.sink = failingSink{err: errors.New("down")}
			s.announceCritical(ctx)

			Convey("Then the patient is retried next time", func() {
				So(s.critical, ShouldBeEmpty)
				s.sink = mem
				s.announceCritical(ctx)
				So(mem.Len(), ShouldEqual, 1)
			})
		})
	})
}
