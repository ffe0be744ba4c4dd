package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1-0", nil)
}

func entry() model.NotificationEntry {
	return model.NotificationEntry{
		Timestamp:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ActorSystem: "wardwatch",
		PatientID:   "65f0c1d2e3a4b5c6d7e8f901",
		Category:    model.LogCategoryAcknowledge,
		Type:        string(model.CategoryFall),
		Status:      string(model.AlertAcknowledged),
		Details:     map[string]string{"alertId": "a1", "actor": "nurse.kim"},
	}
}

func TestMemory(t *testing.T) {
	Convey("Given a bounded memory sink", t, func() {
		m := NewMemory(2)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			So(m.Append(ctx, entry()), ShouldBeNil)
		}

		Convey("Then only the newest entries are kept with ids", func() {
			So(m.Len(), ShouldEqual, 2)
			es := m.Entries()
			So(es[0].ID, ShouldNotBeBlank)
			So(es[0].ID, ShouldBeLessThan, es[1].ID)
		})
	})
}

func TestRedisStream(t *testing.T) {
	ctx := context.Background()

	Convey("Given a redis stream sink", t, func() {
		fake := &fakeStream{}
		s := NewRedisStream(fake, WithStream("test:log"), WithMaxLen(100))

		Convey("When an entry is appended", func() {
			So(s.Append(ctx, entry()), ShouldBeNil)

			Convey("Then XADD gets flat string fields", func() {
				So(len(fake.calls), ShouldEqual, 1)
				args := fake.calls[0]
				So(args.Stream, ShouldEqual, "test:log")
				So(args.MaxLen, ShouldEqual, 100)
				So(args.Approx, ShouldBeTrue)

				values := args.Values.(map[string]interface{})
				So(values["category"], ShouldEqual, "acknowledge")
				So(values["patientId"], ShouldEqual, "65f0c1d2e3a4b5c6d7e8f901")
				So(values["id"], ShouldNotBeBlank)

				var details map[string]string
				So(json.Unmarshal([]byte(values["details"].(string)), &details), ShouldBeNil)
				So(details["actor"], ShouldEqual, "nurse.kim")
			})
		})

		Convey("When redis fails", func() {
			fake.err = errors.New("connection refused")
			err := s.Append(ctx, entry())
			So(errors.Is(err, ErrSinkWrite), ShouldBeTrue)
		})
	})
}

func TestTee(t *testing.T) {
	ctx := context.Background()

	Convey("Given a tee over a stream and a memory mirror", t, func() {
		m := NewMemory(0)
		fake := &fakeStream{}
		tee := Tee{NewRedisStream(fake), m}

		Convey("When both accept the entry", func() {
			So(tee.Append(ctx, entry()), ShouldBeNil)

			Convey("Then both store it under one id", func() {
				So(m.Len(), ShouldEqual, 1)
				values := fake.calls[0].Values.(map[string]interface{})
				So(values["id"], ShouldEqual, m.Entries()[0].ID)
			})
		})

		Convey("When the stream fails", func() {
			fake.err = errors.New("down")
			err := tee.Append(ctx, entry())

			Convey("Then the mirror is not written", func() {
				So(errors.Is(err, ErrSinkWrite), ShouldBeTrue)
				So(m.Len(), ShouldEqual, 0)
			})

			Convey("Then a retry after recovery logs exactly once", func() {
				fake.err = nil
				So(tee.Append(ctx, entry()), ShouldBeNil)
				So(m.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestNewEntryID(t *testing.T) {
	Convey("Ids are unique and ordered for the same instant", t, func() {
		at := time.Now()
		a, b := NewEntryID(at), NewEntryID(at)
		So(a, ShouldNotEqual, b)
		So(a, ShouldBeLessThan, b)
		So(len(a), ShouldEqual, 26)
	})
}
