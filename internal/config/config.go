// Package config defines service configuration and its defaults.
//
// Values are layered by Load: defaults from New, an optional YAML file named
// by WARDWATCH_CONFIG, then WARDWATCH_* environment variables.
package config

import (
	"fmt"
	"time"
)

// Sink and geolocation backends.
const (
	SinkMemory = "memory"
	SinkRedis  = "redis"

	GeoNone = "none"
	GeoMQTT = "mqtt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Locale is the preferred language for localized names and messages.
	Locale string `koanf:"locale"`

	// SourceBaseURL is the monitoring backend root.
	SourceBaseURL    string `koanf:"source_base_url"`
	SourceTimeoutMS  int    `koanf:"source_timeout_ms"`
	SourceRetryCount int    `koanf:"source_retry_count"`

	// Poll cadences.
	OverviewIntervalMS int `koanf:"overview_interval_ms"`
	RosterIntervalMS   int `koanf:"roster_interval_ms"`
	SearchDebounceMS   int `koanf:"search_debounce_ms"`

	// AlertDisplayLimit caps the triaged alert list.
	AlertDisplayLimit int `koanf:"alert_display_limit"`

	// QueueSize bounds the reconciliation task queue.
	QueueSize int `koanf:"queue_size"`

	// SeenAlertCacheSize bounds the announced-alert cache.
	SeenAlertCacheSize int `koanf:"seen_alert_cache_size"`

	// NoticeTTLMS is how long a user-facing notice stays visible.
	NoticeTTLMS int `koanf:"notice_ttl_ms"`

	// ActorSystem is written on automatic notification entries.
	ActorSystem string `koanf:"actor_system"`

	SinkKind        string `koanf:"sink_kind"`
	SinkMemoryLimit int    `koanf:"sink_memory_limit"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	RedisStream     string `koanf:"redis_stream"`
	RedisMaxLen     int64  `koanf:"redis_max_len"`

	GeoKind      string `koanf:"geo_kind"`
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	GeoTimeoutMS int    `koanf:"geo_timeout_ms"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsStation, when set, is attached to every metric as a station label.
	MetricsStation string `koanf:"metrics_station"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Locale:             "en",
		SourceBaseURL:      "http://localhost:8080",
		SourceTimeoutMS:    5000,
		SourceRetryCount:   1,
		OverviewIntervalMS: 10_000,
		RosterIntervalMS:   15_000,
		SearchDebounceMS:   500,
		AlertDisplayLimit:  50,
		QueueSize:          1024,
		SeenAlertCacheSize: 10_000,
		NoticeTTLMS:        5000,
		ActorSystem:        "wardwatch",
		SinkKind:           SinkMemory,
		SinkMemoryLimit:    1000,
		RedisAddr:          "localhost:6379",
		RedisStream:        "wardwatch:notifications",
		RedisMaxLen:        100_000,
		GeoKind:            GeoNone,
		MQTTBroker:         "tcp://localhost:1883",
		MQTTClientID:       "wardwatch",
		MQTTTopic:          "wardwatch/geo/self",
		GeoTimeoutMS:       10_000,
		MetricsNamespace:   "wardwatch",
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) SourceTimeout() time.Duration    { return ms(c.SourceTimeoutMS) }
func (c *Config) OverviewInterval() time.Duration { return ms(c.OverviewIntervalMS) }
func (c *Config) RosterInterval() time.Duration   { return ms(c.RosterIntervalMS) }
func (c *Config) SearchDebounce() time.Duration   { return ms(c.SearchDebounceMS) }
func (c *Config) NoticeTTL() time.Duration        { return ms(c.NoticeTTLMS) }
func (c *Config) GeoTimeout() time.Duration       { return ms(c.GeoTimeoutMS) }

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.SourceBaseURL == "":
		return invalid("source_base_url must not be empty")
	case c.OverviewIntervalMS <= 0:
		return invalid("overview_interval_ms must be positive")
	case c.RosterIntervalMS <= 0:
		return invalid("roster_interval_ms must be positive")
	case c.SearchDebounceMS < 0:
		return invalid("search_debounce_ms must not be negative")
	case c.AlertDisplayLimit <= 0:
		return invalid("alert_display_limit must be positive")
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive")
	case c.SourceRetryCount < 0:
		return invalid("source_retry_count must not be negative")
	case c.MetricsNamespace == "":
		return invalid("metrics_namespace must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.SinkKind {
	case SinkMemory:
	case SinkRedis:
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for the redis sink")
		}
	default:
		return invalid("unknown sink_kind %q", c.SinkKind)
	}
	switch c.GeoKind {
	case GeoNone:
	case GeoMQTT:
		if c.MQTTBroker == "" || c.MQTTTopic == "" {
			return invalid("mqtt_broker and mqtt_topic are required for mqtt geolocation")
		}
	default:
		return invalid("unknown geo_kind %q", c.GeoKind)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
