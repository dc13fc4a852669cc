package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tradelog/billing/pkg/config"
	"github.com/tradelog/billing/pkg/httpserver"
	"github.com/tradelog/billing/pkg/logger"
	"github.com/tradelog/billing/pkg/payment"
	"github.com/tradelog/billing/pkg/pg"
	"github.com/tradelog/billing/pkg/redis"
	"github.com/tradelog/billing/pkg/requestid"
	"github.com/tradelog/billing/pkg/subscription"
	"github.com/tradelog/billing/pkg/webhook"
	"github.com/tradelog/billing/pkg/whop"
)

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"billingd"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// PlansPath points at a YAML plan catalog; empty uses the built-in
	// defaults.
	PlansPath string `env:"PLANS_PATH"`

	// DunningEnabled turns on Postmark payment-failure emails.
	DunningEnabled bool `env:"DUNNING_ENABLED" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "billingd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithService(appCfg.ServiceName),
		logger.WithEnvironment(appCfg.Environment),
		logger.WithFormat(logger.Format(appCfg.LogFormat)),
		logger.WithLevel(parseLevel(appCfg.LogLevel)),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	var whopCfg whop.Config
	config.MustLoad(&whopCfg)
	whopClient, err := whop.New(whopCfg)
	if err != nil {
		return fmt.Errorf("whop client: %w", err)
	}

	var plans subscription.PlanSource = subscription.StaticSource(subscription.DefaultCatalog())
	if appCfg.PlansPath != "" {
		plans = subscription.NewYAMLSource(appCfg.PlansPath)
	}

	var notifier subscription.Notifier = subscription.NoopNotifier{Log: log}
	if appCfg.DunningEnabled {
		var notifierCfg subscription.NotifierConfig
		config.MustLoad(&notifierCfg)
		notifier, err = subscription.NewPostmarkNotifier(notifierCfg)
		if err != nil {
			return fmt.Errorf("postmark notifier: %w", err)
		}
	}

	subs, err := subscription.NewManager(ctx, plans,
		subscription.NewPostgresStore(pool),
		subscription.WithProvider(whopClient),
		subscription.WithNotifier(notifier),
		subscription.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("subscription manager: %w", err)
	}

	payments := payment.NewService(
		payment.NewPostgresStore(pool),
		payment.WithLogger(log),
	)

	var webhookCfg webhook.Config
	config.MustLoad(&webhookCfg)

	verifier, err := webhook.NewVerifier(webhookCfg.Secret)
	if err != nil {
		return fmt.Errorf("webhook verifier: %w", err)
	}

	processorOpts := []webhook.ProcessorOption{
		webhook.WithMembershipFetcher(whopClient),
		webhook.WithAttemptTracker(webhook.NewRedisAttempts(redisClient, webhookCfg.AttemptTTL)),
		webhook.WithStaleClaimAge(webhookCfg.StaleClaimAge),
		webhook.WithSweepInterval(webhookCfg.SweepInterval),
		webhook.WithLogger(log),
	}
	if webhookCfg.ResetAttemptsOnSuccess {
		processorOpts = append(processorOpts, webhook.WithResetAttemptsOnSuccess())
	}
	processor := webhook.NewProcessor(
		webhook.NewPostgresLedger(pool),
		subs,
		payments,
		processorOpts...,
	)
	processor.StartSweeper(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Post("/webhooks/whop", webhook.Handler(verifier, processor, log))

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	log.InfoContext(ctx, "billing service starting",
		slog.String("addr", httpCfg.Addr),
		slog.String("environment", appCfg.Environment),
	)
	return srv.Run(ctx, r)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
