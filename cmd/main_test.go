package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/http/api"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	service "github.com/bezboss20/Dashboard-sub001/internal/app"
	"github.com/bezboss20/Dashboard-sub001/internal/config"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

const overviewBody = `{"success":true,"data":{
	"summary":{"totalPatients":1},
	"alerts":[{"_id":"a1","severity":"critical","status":"active","patientId":"65f0c1d2e3a4b5c6d7e8f901","message":"heart rate high"}]
}}`

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("WARDWATCH_ADDR", ":8080")
			_ = os.Setenv("WARDWATCH_QUEUE_SIZE", "64")
			_ = os.Setenv("WARDWATCH_SINK_KIND", "redis")
			defer func() {
				_ = os.Unsetenv("WARDWATCH_ADDR")
				_ = os.Unsetenv("WARDWATCH_QUEUE_SIZE")
				_ = os.Unsetenv("WARDWATCH_SINK_KIND")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.SinkKind, convey.ShouldEqual, config.SinkRedis)
			})
		})

		convey.Convey("When building the notification sink", func() {
			cfg := config.New()

			convey.Convey("Then the memory kind keeps a local log", func() {
				k, closeFn, err := buildSink(cfg, logger.NewNop())
				convey.So(err, convey.ShouldBeNil)
				defer closeFn()
				_, ok := k.(*sink.Memory)
				convey.So(ok, convey.ShouldBeTrue)
			})

			convey.Convey("And the redis kind tees into the stream", func() {
				cfg.SinkKind = config.SinkRedis
				k, closeFn, err := buildSink(cfg, logger.NewNop())
				convey.So(err, convey.ShouldBeNil)
				defer closeFn()
				tee, ok := k.(sink.Tee)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(len(tee), convey.ShouldEqual, 2)
			})

			convey.Convey("And an unknown kind is rejected", func() {
				cfg.SinkKind = "kafka"
				_, _, err := buildSink(cfg, logger.NewNop())
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When building the geolocation provider", func() {
			cfg := config.New()

			convey.Convey("Then none means unsupported", func() {
				p, closeFn, err := buildGeo(cfg, logger.NewNop())
				convey.So(err, convey.ShouldBeNil)
				defer closeFn()
				_, err = p.Current(context.Background())
				convey.So(errors.Is(err, geo.ErrUnsupported), convey.ShouldBeTrue)
			})

			convey.Convey("And an unknown kind is rejected", func() {
				cfg.GeoKind = "gps"
				_, _, err := buildGeo(cfg, logger.NewNop())
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given an upstream dashboard and a configured monitor", t, func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != source.PathOverview {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(overviewBody))
		}))
		defer upstream.Close()

		cfg := config.New()
		cfg.SourceBaseURL = upstream.URL
		log := logger.NewNop()

		k, closeSink, err := buildSink(cfg, log)
		convey.So(err, convey.ShouldBeNil)
		defer closeSink()
		p, closeGeo, err := buildGeo(cfg, log)
		convey.So(err, convey.ShouldBeNil)
		defer closeGeo()

		src := source.NewClient(cfg.SourceBaseURL, source.WithTimeout(time.Second))
		svc := service.New(src, serviceOptions(cfg, log, k, p)...)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		h := api.NewServer(svc, log).Routes()

		convey.Convey("Then the first poll reaches the API", func() {
			var total float64
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alerts", http.NoBody))
				var body map[string]any
				_ = json.Unmarshal(w.Body.Bytes(), &body)
				if v, ok := body["total"].(float64); ok && v > 0 {
					total = v
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(total, convey.ShouldEqual, 1.0)

			entries, kept := svc.Entries()
			convey.So(kept, convey.ShouldBeTrue)
			convey.So(entries, convey.ShouldNotBeEmpty)
		})

		convey.Convey("And the service metrics update does not panic", func() {
			convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)
		})
	})
}
