package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/geo"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/http/api"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/sink"
	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
	service "github.com/bezboss20/Dashboard-sub001/internal/app"
	"github.com/bezboss20/Dashboard-sub001/internal/config"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	mqttDisconnectQuiesce  = 250
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWith(cfg.LogFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metrics.WithNamespace(cfg.MetricsNamespace), metrics.WithStation(cfg.MetricsStation))

	notifications, closeSink, err := buildSink(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build notification sink", logger.Error(err))
		return
	}
	defer closeSink()

	locator, closeGeo, err := buildGeo(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build geolocation provider", logger.Error(err))
		return
	}
	defer closeGeo()

	src := source.NewClient(cfg.SourceBaseURL,
		source.WithTimeout(cfg.SourceTimeout()),
		source.WithRetryCount(cfg.SourceRetryCount),
		source.WithLogger(log.Named("source")),
	)

	svc := service.New(src, serviceOptions(cfg, log, notifications, locator)...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, log.Named("http")).Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("source", cfg.SourceBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service stop failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, log logger.Logger, k sink.Sink, p geo.Provider) []service.Option {
	return []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithSink(k),
		service.WithGeo(p),
		service.WithQueueSize(cfg.QueueSize),
		service.WithSeenCacheSize(cfg.SeenAlertCacheSize),
		service.WithDisplayLimit(cfg.AlertDisplayLimit),
		service.WithActorSystem(cfg.ActorSystem),
		service.WithLocale(cfg.Locale),
		service.WithIntervals(cfg.OverviewInterval(), cfg.RosterInterval()),
		service.WithSearchDebounce(cfg.SearchDebounce()),
		service.WithNoticeTTL(cfg.NoticeTTL()),
	}
}

// buildSink returns the notification sink. The redis kind still keeps the
// in-memory log so the API can list recent entries; the stream goes first
// so the mirror only holds entries redis accepted.
func buildSink(cfg *config.Config, log logger.Logger) (sink.Sink, func(), error) {
	mem := sink.NewMemory(cfg.SinkMemoryLimit)
	switch cfg.SinkKind {
	case config.SinkMemory:
		return mem, func() {}, nil
	case config.SinkRedis:
		client := sink.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		stream := sink.NewRedisStream(client,
			sink.WithStream(cfg.RedisStream),
			sink.WithMaxLen(cfg.RedisMaxLen),
			sink.WithLogger(log.Named("sink")),
		)
		return sink.Tee{stream, mem}, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: sink_kind %q", config.ErrInvalidConfig, cfg.SinkKind)
	}
}

// buildGeo returns the self-geolocation provider.
func buildGeo(cfg *config.Config, log logger.Logger) (geo.Provider, func(), error) {
	switch cfg.GeoKind {
	case config.GeoNone:
		return geo.Unsupported{}, func() {}, nil
	case config.GeoMQTT:
		client, err := geo.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTUsername, cfg.MQTTPassword)
		if err != nil {
			return nil, nil, err
		}
		p := geo.NewMQTTProvider(client, cfg.MQTTTopic,
			geo.WithTimeout(cfg.GeoTimeout()),
			geo.WithLogger(log.Named("geo")),
		)
		return p, func() { client.Disconnect(mqttDisconnectQuiesce) }, nil
	default:
		return nil, nil, fmt.Errorf("%w: geo_kind %q", config.ErrInvalidConfig, cfg.GeoKind)
	}
}

// startServiceMetricsUpdater publishes the command queue depth until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.Stats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
