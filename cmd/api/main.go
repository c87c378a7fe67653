package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edugen-platform/edugen/internal/api"
	"github.com/edugen-platform/edugen/internal/audit"
	"github.com/edugen-platform/edugen/internal/auth"
	"github.com/edugen-platform/edugen/internal/completion"
	"github.com/edugen-platform/edugen/internal/config"
	"github.com/edugen-platform/edugen/internal/content"
	"github.com/edugen-platform/edugen/internal/database"
	"github.com/edugen-platform/edugen/internal/generation"
	mw "github.com/edugen-platform/edugen/internal/middleware"
	inats "github.com/edugen-platform/edugen/internal/nats"
	"github.com/edugen-platform/edugen/internal/payments"
	"github.com/edugen-platform/edugen/internal/ratelimit"
	iredis "github.com/edugen-platform/edugen/internal/redis"
	"github.com/edugen-platform/edugen/internal/server"
	"github.com/edugen-platform/edugen/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.Server.MigrationsPath); err != nil {
		slog.Error("migrating database", "error", err)
		os.Exit(1)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		"nats":     nil,
	}

	// Rate limiting
	var genLimiter, payLimiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		redisClient, err := iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		genLimiter = ratelimit.NewRedis(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		payLimiter = ratelimit.NewRedis(redisClient, cfg.RateLimit.PaymentMaxRequests, cfg.RateLimit.Window)
	default:
		gen := ratelimit.NewMemory(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		pay := ratelimit.NewMemory(cfg.RateLimit.PaymentMaxRequests, cfg.RateLimit.Window)
		go gen.RunSweeper(ctx, cfg.RateLimit.Window)
		go pay.RunSweeper(ctx, cfg.RateLimit.Window)
		genLimiter, payLimiter = gen, pay
	}
	slog.Info("rate limiter ready",
		"backend", cfg.RateLimit.Backend,
		"max", cfg.RateLimit.MaxRequests,
		"window", cfg.RateLimit.Window,
	)

	// Events are optional. Without NATS nothing is published or audited.
	var (
		genEvents     generation.EventPublisher
		paymentEvents payments.EventPublisher
		auditEvents   content.AuditPublisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err := inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		checks["nats"] = func(context.Context) error {
			if !natsClient.Healthy() {
				return inats.ErrDisconnected
			}
			return nil
		}

		publisher := inats.NewPublisher(natsClient.JetStream())
		genEvents, paymentEvents, auditEvents = publisher, publisher, publisher

		consumer := audit.NewConsumer(audit.NewRepository(pool), inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	} else {
		slog.Warn("NATS_URL is empty, events will not be published")
	}

	// Auth
	authSvc := auth.NewService(auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Audience))
	authMiddleware := auth.Middleware(authSvc)

	// Generation
	pipeline := generation.NewPipeline(
		authSvc,
		genLimiter,
		usage.NewPostgresLedger(pool, cfg.Usage.FreeLimit),
		completion.NewClient(cfg.AI),
		genEvents,
		cfg.RateLimit.Window,
	)

	// Payments
	paymentSvc := payments.NewService(
		payments.NewRepository(pool),
		payments.NewRazorpayClient(cfg.Razorpay),
		paymentEvents,
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
	)
	paymentHandler := payments.NewHandler(paymentSvc)

	usageHandler := usage.NewHandler(usage.NewService(usage.NewRepository(pool), cfg.Usage.FreeLimit))

	contentHandler := content.NewHandler(content.NewService(content.NewRepository(pool), auditEvents))
	auditHandler := audit.NewHandler(audit.NewRepository(pool))

	// Router
	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxyHops:   cfg.RateLimit.TrustedProxyHops,
		PaymentRateLimiter: mw.IPRateLimit(payLimiter, "pay", cfg.RateLimit.Window),
		Checks:             checks,
	}, api.HandlerSet{
		GenerateMCQ:       pipeline.Handler(generation.MCQ),
		GeneratePaper:     pipeline.Handler(generation.Paper),
		ProcessVoiceNotes: pipeline.Handler(generation.VoiceNotes),

		CreateOrder:   paymentHandler.CreateOrder,
		VerifyPayment: paymentHandler.Verify,

		GetUsage: usageHandler.Get,

		CreateContent:       contentHandler.Create,
		ListContent:         contentHandler.List,
		GetContent:          contentHandler.Get,
		DeleteContent:       contentHandler.Delete,
		OwnershipMiddleware: contentHandler.OwnershipMiddleware,

		ListAuditLogs: auditHandler.List,

		AuthMiddleware: authMiddleware,
	})

	srv := server.New(cfg.Server, cfg.AI.Timeout, router)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
