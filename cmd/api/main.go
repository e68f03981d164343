// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/copystudio/internal/admin"
	"github.com/carterperez-dev/copystudio/internal/auth"
	"github.com/carterperez-dev/copystudio/internal/billing"
	"github.com/carterperez-dev/copystudio/internal/completion"
	"github.com/carterperez-dev/copystudio/internal/config"
	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/credit"
	"github.com/carterperez-dev/copystudio/internal/events"
	"github.com/carterperez-dev/copystudio/internal/feedback"
	"github.com/carterperez-dev/copystudio/internal/generation"
	"github.com/carterperez-dev/copystudio/internal/health"
	"github.com/carterperez-dev/copystudio/internal/metrics"
	"github.com/carterperez-dev/copystudio/internal/middleware"
	"github.com/carterperez-dev/copystudio/internal/profile"
	"github.com/carterperez-dev/copystudio/internal/prompt"
	"github.com/carterperez-dev/copystudio/internal/ratelimit"
	"github.com/carterperez-dev/copystudio/internal/server"
	"github.com/carterperez-dev/copystudio/internal/upload"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App,
		attribute.String("copystudio.prompt_version", prompt.Version),
	)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		telemetry, _ = core.NewTelemetry(ctx, config.OtelConfig{}, cfg.App)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	if cfg.Database.AutoMigrate {
		if err := core.RunMigrations(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis, cfg.App.Name)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	guard, err := auth.NewGuard(cfg.Auth)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewCollector(registry)
	}

	var publisher events.Publisher = events.Noop{}
	healthDeps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}
	var amqpPublisher *events.AMQPPublisher
	if cfg.Events.URL != "" {
		amqpPublisher, err = events.NewAMQPPublisher(cfg.Events)
		if err != nil {
			logger.Warn("event publisher unavailable, events disabled", "error", err)
		} else {
			publisher = amqpPublisher
			healthDeps = append(healthDeps, health.Dependency{
				Name:     "events",
				Checker:  amqpPublisher,
				Optional: true,
			})
			logger.Info("event publisher connected", "exchange", cfg.Events.Exchange)
		}
	}

	ledger := credit.NewLedger(credit.NewRepository(db.DB), cfg.Credits.SignupBonus, recorder)
	profileHandler := profile.NewHandler(ledger)

	uploadSvc := upload.NewService(
		upload.NewSupabaseStore(cfg.Storage),
		upload.NewRepository(db.DB),
	)
	uploadHandler := upload.NewHandler(uploadSvc)

	generationSvc := generation.NewService(generation.Deps{
		Repo:   generation.NewRepository(db.DB),
		Ledger: ledger,
		Limiter: ratelimit.NewSlidingWindow(redis.Client, ratelimit.Config{
			Limit:  cfg.Generation.RateLimit,
			Window: cfg.Generation.RateWindow,
		}),
		Model: completion.NewClient(cfg.Completion),
		Idempotency: generation.NewRedisIdempotency(
			redis.Client,
			cfg.Generation.IdempotencyTTL,
			cfg.Generation.IdempotencyLockTTL,
		),
		Events:  publisher,
		Metrics: recorder,
		Tracer:  telemetry.Tracer(core.TracerGeneration),
	}, generation.Options{
		CreditCost:            cfg.Generation.CreditCost,
		RequireIdempotencyKey: cfg.Generation.RequireIdempotencyKey,
	})
	generationHandler := generation.NewHandler(generationSvc)

	feedbackHandler := feedback.NewHandler(
		feedback.NewService(feedback.NewRepository(db.DB), generationSvc),
	)

	pricing, err := billing.NewPricing(cfg.Billing)
	if err != nil {
		return err
	}
	billingSvc := billing.NewService(
		billing.NewStripeProcessor(cfg.Billing.SecretKey, cfg.Billing.WebhookSecret, nil),
		pricing,
		ledger,
		publisher,
		recorder,
		cfg.Billing,
	)
	billingHandler := billing.NewHandler(billingSvc)
	logger.Info("pricing loaded",
		"version", pricing.Version(),
		"packages", len(pricing.Packages()),
	)

	healthHandler := health.NewHandler(healthDeps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Credits:    ledger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewEdgeLimiter(redis.Client, middleware.EdgeLimitConfig{
			Limit: middleware.Window(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			Exempt: []string{
				"/healthz",
				"/livez",
				"/readyz",
				cfg.Metrics.Path,
				"/v1" + billing.WebhookPath,
			},
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler(registry))
	}

	router.Route("/v1", func(r chi.Router) {
		billingHandler.RegisterWebhookRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticator(guard))
			r.Use(middleware.ProvisionAccount(ledger))

			profileHandler.RegisterRoutes(r)
			uploadHandler.RegisterRoutes(r)
			generationHandler.RegisterRoutes(r)
			feedbackHandler.RegisterRoutes(r)
			billingHandler.RegisterRoutes(r)
			adminHandler.RegisterRoutes(r, middleware.RequireAdmin)
		})
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if amqpPublisher != nil {
		if err := amqpPublisher.Close(); err != nil {
			logger.Error("event publisher close error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
