package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.OverviewInterval(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.RosterInterval(), convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.SearchDebounce(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.AlertDisplayLimit, convey.ShouldEqual, 50)
			convey.So(cfg.SinkKind, convey.ShouldEqual, config.SinkMemory)
			convey.So(cfg.GeoKind, convey.ShouldEqual, config.GeoNone)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "wardwatch")
			convey.So(cfg.MetricsStation, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the redis sink has no address", func() {
			cfg.SinkKind = config.SinkRedis
			cfg.RedisAddr = ""
			err := cfg.Validate()

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "redis_addr")
		})

		convey.Convey("When the geo backend is unknown", func() {
			cfg.GeoKind = "gps"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the display limit is zero", func() {
			cfg.AlertDisplayLimit = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the metrics namespace is empty", func() {
			cfg.MetricsNamespace = ""
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_namespace")
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
