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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"labbook/internal/api"
	"labbook/internal/config"
	"labbook/internal/database"
	"labbook/internal/events"
	"labbook/internal/metrics"
	"labbook/internal/repository"
	"labbook/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	stores, err := repository.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open booking store")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error().Err(err).Msg("close booking store")
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("load calendar timezone")
	}

	bus := events.NewEventBus()
	bus.Subscribe(events.TypeBookingCreated, func(e events.Event) error {
		b, err := events.DecodeBooking(e)
		if err != nil {
			return err
		}
		logger.Info().
			Str("booking_id", b.ID).
			Str("asset_id", b.AssetID).
			Str("date", b.DayKey()).
			Str("slot", b.SlotKey()).
			Msg("booking created")
		return nil
	})

	svc := service.NewBookingService(stores, bus, service.Options{
		Location:        loc,
		CalendarWorkers: cfg.Calendar.Workers,
	}, &logger)

	if cfg.Seed.DefaultAssets {
		n, err := svc.EnsureDefaultAssets(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("seed default assets")
		} else if n > 0 {
			logger.Info().Int("count", n).Msg("default assets seeded")
		}
	}

	if cfg.Backup.Enabled && stores.SQLite != nil {
		logger.Info().Str("database", stores.SQLite.Path()).Str("dir", cfg.Backup.StoragePath).Msg("sqlite backups enabled")
		backups := database.NewBackupService(stores.SQLite, cfg.Backup, &logger)
		go backups.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8081
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, stores, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server, err := api.NewHTTPServer(api.Options{
		Address:        cfg.HTTP.Address,
		APIKey:         cfg.HTTP.APIKey,
		RequestTimeout: cfg.RequestTimeout(),
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, svc, stores, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create api server")
	}
	if cfg.HTTP.APIKey == "" {
		logger.Warn().Msg("http.api_key is empty; API is unauthenticated")
	}

	logger.Info().Str("timezone", loc.String()).Msg("labbook started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("labbook stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output)
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func startHealthServer(ctx context.Context, port int, stores *repository.Stores, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := stores.Ping(ctxPing); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		if stores.PrimaryDown() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("degraded"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, "health", port, mux, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serve(ctx, "metrics", port, mux, logger)
}

func serve(ctx context.Context, name string, port int, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
