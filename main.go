package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binwatch-cloud/internal/auth"
	"binwatch-cloud/internal/config"
	connectivityapp "binwatch-cloud/internal/connectivity/application"
	connectivityhttp "binwatch-cloud/internal/connectivity/interfaces/http"
	"binwatch-cloud/internal/connectivity/notify"
	"binwatch-cloud/internal/observability/metrics"
	"binwatch-cloud/internal/telemetry/application"
	telemetrypostgres "binwatch-cloud/internal/telemetry/infrastructure/postgres"
	telemetryhttp "binwatch-cloud/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	configPath := os.Getenv("BINWATCH_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(logger)

	recordRepo := telemetrypostgres.NewRecordRepository(db)

	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.WebhookURL)
		if err != nil {
			logger.Fatalf("webhook notifier error: %v", err)
		}
		notifiers = append(notifiers, webhook)
	}
	notifier := notify.NewMultiNotifier(notifiers...)

	monitor, err := connectivityapp.NewMonitor(monitorConfigFrom(cfg), notifier, connectivityapp.WithMonitorLogger(logger))
	if err != nil {
		logger.Fatalf("monitor error: %v", err)
	}

	pipeline, err := application.NewPipeline(
		recordRepo,
		pipelineSettingsFrom(cfg),
		application.WithObserver(monitor),
		application.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("pipeline error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline.Start(ctx)
	monitor.Start(ctx)

	if configPath != "" {
		err := config.Watch(ctx, configPath, logger, func(next config.Config) {
			if err := pipeline.ApplySettings(pipelineSettingsFrom(next)); err != nil {
				logger.Printf("config: pipeline update rejected: %v", err)
			}
			monitor.ApplyScorerConfig(monitorConfigFrom(next).Scorer)
			if err := monitor.ApplyCheckInterval(next.Health.CheckInterval.Duration); err != nil {
				logger.Printf("config: health update rejected: %v", err)
			}
		})
		if err != nil {
			logger.Fatalf("config watch error: %v", err)
		}
	}

	ingestHandler, err := telemetryhttp.NewIngestHandler(pipeline, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	connectivityHandler, err := connectivityhttp.NewHandler(monitor, logger)
	if err != nil {
		logger.Fatalf("connectivity handler error: %v", err)
	}
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret))

	mux := http.NewServeMux()
	mux.Handle("/ingest/telemetry", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/stats", telemetryhttp.NewStatsHandler(pipeline))
	mux.Handle("/api/v1/connectivity", connectivityHandler)
	mux.Handle("/api/v1/connectivity/", connectivityHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown error: %v", err)
	}
	pipeline.Shutdown(shutdownCtx)
	logger.Printf("shutdown complete")
}

func pipelineSettingsFrom(cfg config.Config) application.Settings {
	return application.Settings{
		Validator: application.ValidatorConfig{
			MaxWeightKg:   cfg.Thresholds.MaxWeightKg,
			MinSatellites: cfg.Thresholds.MinSatellites,
		},
		Classifier: application.ClassifierConfig{
			FillCriticalPct:  cfg.Thresholds.FillCriticalPct,
			FillWarningPct:   cfg.Thresholds.FillWarningPct,
			WeightCriticalKg: cfg.Thresholds.WeightCriticalKg,
			WeightWarningKg:  cfg.Thresholds.WeightWarningKg,
			MinSatellites:    cfg.Thresholds.MinSatellites,
		},
		Duplicates: application.DuplicateGuardConfig{
			Window:                 cfg.Duplicates.Window.Duration,
			DailyLimit:             cfg.Duplicates.DailyLimit,
			ConnectivityDailyLimit: cfg.Duplicates.ConnectivityDailyLimit,
			ResetHour:              cfg.Duplicates.ResetHour,
			MinSatellites:          cfg.Thresholds.MinSatellites,
		},
		Flush: flushConfigFrom(cfg),
	}
}

func flushConfigFrom(cfg config.Config) application.FlushConfig {
	return application.FlushConfig{
		NormalInterval:   cfg.Buffering.NormalInterval.Duration,
		WarningInterval:  cfg.Buffering.WarningInterval.Duration,
		CriticalInterval: cfg.Buffering.CriticalInterval.Duration,
		BufferSizeLimit:  cfg.Buffering.SizeLimit,
		BatchSize:        cfg.Buffering.BatchSize,
		StoreTimeout:     cfg.Buffering.StoreTimeout.Duration,
		CleanupInterval:  cfg.Buffering.CleanupInterval.Duration,
		Retention:        cfg.Buffering.Retention.Duration,
	}
}

func monitorConfigFrom(cfg config.Config) connectivityapp.MonitorConfig {
	scorer := connectivityapp.DefaultScorerConfig()
	scorer.OfflineTimeout = cfg.Health.OfflineTimeout.Duration
	scorer.MinSatellites = cfg.Thresholds.MinSatellites
	return connectivityapp.MonitorConfig{
		CheckInterval: cfg.Health.CheckInterval.Duration,
		Scorer:        scorer,
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		logger.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(started))
	})
}
