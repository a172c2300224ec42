package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cybersathi/cmd/mainconfig"
	"github.com/wolfman30/cybersathi/internal/api/router"
	"github.com/wolfman30/cybersathi/internal/app/bootstrap"
	"github.com/wolfman30/cybersathi/internal/channels/whatsapp"
	"github.com/wolfman30/cybersathi/internal/complaints"
	appconfig "github.com/wolfman30/cybersathi/internal/config"
	"github.com/wolfman30/cybersathi/internal/directory"
	"github.com/wolfman30/cybersathi/internal/events"
	httpmiddleware "github.com/wolfman30/cybersathi/internal/http/middleware"
	"github.com/wolfman30/cybersathi/internal/intake"
	"github.com/wolfman30/cybersathi/internal/media"
	"github.com/wolfman30/cybersathi/internal/messagelog"
	"github.com/wolfman30/cybersathi/internal/observability/metrics"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cybersathi intake server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	sqlDB := bootstrap.SQLFromPool(pool)
	if sqlDB != nil {
		defer func() { _ = sqlDB.Close() }()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	tables, err := directory.Load(cfg.DirectoryFile)
	if err != nil {
		return fmt.Errorf("load directory tables: %w", err)
	}

	metricsHandler, intakeMetrics := setupMetrics()

	repo := bootstrap.BuildComplaintRepository(pool, logger)
	messenger, waClient := bootstrap.BuildMessenger(cfg, logger)
	msgStore, recorder := bootstrap.BuildMessageLog(sqlDB, logger)

	sessions := intake.NewMemorySessionStore()
	engineCfg := intake.EngineConfig{
		Sessions:        sessions,
		Complaints:      repo,
		Messenger:       messenger,
		Stations:        directory.NewStationDirectory(tables),
		Grievances:      directory.NewGrievanceDirectory(tables),
		Notifier:        bootstrap.BuildComplaintMailer(cfg, logger),
		Tickets:         intake.NewTicketGenerator(),
		Metrics:         intakeMetrics,
		Logger:          logger,
		OutboundTimeout: cfg.OutboundTimeout,
		MediaTimeout:    cfg.MediaTimeout,
	}
	if recorder != nil {
		engineCfg.Recorder = recorder
	}
	if waClient != nil {
		store, err := setupMediaStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		engineCfg.Media = media.NewDownloader(waClient, store, logger)
	}
	engine := intake.NewEngine(engineCfg)

	dispatcher := intake.NewDispatcher(engine, cfg.WorkerCount, cfg.QueueBuffer, logger)
	// Workers keep their own context so queued events finish after a signal.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher.Start(workerCtx)

	deduper := bootstrap.BuildDeduper(redisClient, pool, cfg.DedupeTTL, logger)
	if processed, ok := deduper.(*events.ProcessedStore); ok {
		go bootstrap.RunProcessedPurge(ctx, processed, cfg.DedupeTTL, time.Hour, logger)
	}
	go bootstrap.RunSessionSweeper(ctx, sessions, cfg.SessionIdleTimeout, 0, logger)

	routerCfg := &router.Config{
		Logger: logger,
		Webhook: whatsapp.NewWebhookHandler(whatsapp.WebhookConfig{
			VerifyToken: cfg.WhatsAppVerifyToken,
			AppSecret:   cfg.WhatsAppAppSecret,
			Queue:       dispatcher,
			Dedupe:      deduper,
			Metrics:     intakeMetrics,
			Logger:      logger,
		}),
		Complaints:         complaints.NewHandler(repo, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LookupLimiter:      httpmiddleware.NewRateLimiter(cfg.LookupRatePerMinute, 0),
		HealthChecks:       healthChecks(pool, redisClient),
	}
	if msgStore != nil {
		routerCfg.Messages = messagelog.NewHandler(msgStore, logger)
	}
	if strings.TrimSpace(cfg.AdminJWTSecret) == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin endpoints will reject every request")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			dispatcher.Stop()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	dispatcher.Stop()
	logger.Info("server stopped")
	return nil
}

// setupMetrics registers the intake collectors on a fresh registry.
func setupMetrics() (http.Handler, *metrics.IntakeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewIntakeMetrics(reg)
}

// setupMediaStore returns S3 storage when MEDIA_BUCKET is set, else local disk.
func setupMediaStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (media.Store, error) {
	bucket := strings.TrimSpace(cfg.MediaBucket)
	if bucket == "" {
		logger.Info("attachments stored on local disk", "dir", cfg.MediaDir)
		return media.NewLocalStore(cfg.MediaDir), nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	logger.Info("attachments stored in s3", "bucket", bucket)
	return media.NewS3Store(mainconfig.NewS3Client(awsCfg, cfg), bucket), nil
}

func healthChecks(pool *pgxpool.Pool, rc *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}
	return checks
}
