package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/simsource"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	defaults := simsource.DefaultConfig()
	var (
		addr     = flag.String("addr", ":8080", "Listen address")
		patients = flag.Int("patients", defaults.Patients, "Number of simulated patients")
		shape    = flag.String("shape", defaults.Shape.String(), "Response shape: flat, envelope or double_envelope")
		seed     = flag.Uint64("seed", 0, "Random seed (0 picks one from the clock)")
		failRate = flag.Float64("fail-rate", 0, "Fraction of requests answered with 503")
		step     = flag.Duration("step", defaults.Step, "Interval between vital updates")
		format   = flag.String("log-format", "text", "Log format: text or json")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.InitWith(*format, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("sim-source")

	kind, err := simsource.ParseShape(*shape)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	cfg := defaults
	cfg.Patients = *patients
	cfg.Shape = kind
	cfg.Seed = *seed
	cfg.FailRate = *failRate
	cfg.Step = *step
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ward := simsource.NewWard(cfg)
	go func() {
		ticker := time.NewTicker(cfg.Step)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ward.Step()
			}
		}
	}()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           simsource.NewServer(ward, cfg, log).Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "serving simulated ward",
			logger.String("addr", *addr),
			logger.String("shape", kind.String()),
			logger.Int("patients", cfg.Patients))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "stopped", logger.Uint64("steps", ward.Steps()))
}
