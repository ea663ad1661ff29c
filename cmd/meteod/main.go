package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/overcastlab/meteod/internal/adapter/http"
	kafkaadapter "github.com/overcastlab/meteod/internal/adapter/kafka"
	"github.com/overcastlab/meteod/internal/adapter/metno"
	"github.com/overcastlab/meteod/internal/cache"
	"github.com/overcastlab/meteod/internal/config"
	"github.com/overcastlab/meteod/internal/observability"
	"github.com/overcastlab/meteod/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := metno.NewClient(metno.ClientConfig{
		ForecastURL:  cfg.ForecastURL,
		AstroURL:     cfg.AstroURL,
		ElevationURL: cfg.ElevationURL,
		TimezoneURL:  cfg.TimezoneURL,
		Timeout:      cfg.FetchTimeout,
		RateLimit:    cfg.RateLimitRPS,
		Burst:        cfg.RateBurst,
		UserAgent:    cfg.UserAgent,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve elevation and timezone when the operator did not pin them.
	if cfg.ElevationM == config.ElevationUnset {
		if msl, err := client.LookupElevation(ctx, cfg.Latitude, cfg.Longitude); err != nil {
			logger.Warn("elevation lookup failed, assuming sea level", "error", err)
			cfg.ElevationM = 0
		} else {
			cfg.ElevationM = msl
			logger.Info("elevation resolved", "meters", msl)
		}
	}
	if cfg.UTCOffsetMin == config.UTCOffsetUnset {
		if offset, err := client.LookupTimezone(ctx, cfg.Latitude, cfg.Longitude); err != nil {
			logger.Warn("timezone lookup failed, assuming UTC", "error", err)
			cfg.UTCOffsetMin = 0
		} else {
			cfg.UTCOffsetMin = offset
			logger.Info("utc offset resolved", "minutes", offset)
		}
	}

	qc := cfg.QueryContext()
	store := cache.NewStore(cfg.CacheDir, logger, metrics)

	// Feature-flagged conditions notifier (KAFKA_BROKERS / KAFKA_ENABLED).
	var listeners []scheduler.Listener
	var notifier *kafkaadapter.Notifier
	if cfg.KafkaEnabled {
		notifier = kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		listeners = append(listeners, notifier)
		logger.Info("kafka conditions notifier enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka conditions notifier disabled")
	}

	sched := scheduler.New(
		clockwork.NewRealClock(),
		scheduler.Options{
			TickInterval:       cfg.TickInterval,
			DataMaxAge:         cfg.DataMaxAge,
			DataRetention:      cfg.DataRetention,
			ConditionsInterval: cfg.ConditionsInterval,
		},
		qc, client, metno.DocParser{}, store, listeners, logger, metrics,
	)
	sched.SeedFromCache()

	srv := httpadapter.NewServer(cfg.HTTPAddr, sched, sched, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh scheduler.
	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if notifier != nil {
		if err := notifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
