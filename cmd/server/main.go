// Command server runs the AML risk API: HTTP on PORT and, when GRPC_PORT
// is set, the RiskEngine gRPC service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"amlguard/internal/config"
	"amlguard/internal/events"
	"amlguard/internal/grpcapi"
	"amlguard/internal/logging"
	"amlguard/internal/metrics"
	"amlguard/internal/recipients"
	"amlguard/internal/repositories"
	"amlguard/internal/repositories/cache"
	"amlguard/internal/routes"
	"amlguard/internal/services/alert"
	"amlguard/internal/services/auth"
	"amlguard/internal/services/report"
	"amlguard/internal/services/risk"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.OpenDB(cfg.Database(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.CloseDB(db); err != nil {
			logger.Warn().Err(err).Msg("failed to close database connection")
		}
	}()
	go logPoolStats(ctx, db, logger)

	cacheService, tracker := openRedis(ctx, cfg, logger)
	if cacheService != nil {
		defer func() {
			if err := cacheService.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close redis connection")
			}
		}()
	}

	engine, err := risk.NewEngine(config.RiskConfig())
	if err != nil {
		return err
	}

	tokens, err := newTokenIssuer(cfg, logger)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()
	notifier := newNotifier(cfg, logger)
	defer notifier.Close()

	prom := metrics.NewPrometheus()
	store := repositories.NewStore(db, cacheService)
	authService := auth.NewService(store.Users, tokens)
	processor := transaction.NewProcessor(transaction.ProcessorConfig{
		Engine:  engine,
		Tracker: tracker,
	})
	if _, inMemory := tracker.(*recipients.MemoryTracker); inMemory && engine.Config().RepeatRecipientMin > 0 {
		n, err := processor.Backfill(ctx, store.Transactions)
		if err != nil {
			return fmt.Errorf("rebuild recipient history: %w", err)
		}
		logger.Info().Int("transactions", n).Msg("recipient history rebuilt from store")
	}
	transactionService := transaction.NewService(transaction.Dependencies{
		Store:     store,
		Cache:     cacheService,
		Processor: processor,
		Publisher: publisher,
		Notifier:  notifier,
		Metrics:   prom,
	})

	app := routes.NewApp(routes.AppOptions{
		AllowOrigins: cfg.AllowOrigins,
		Metrics:      prom,
		AccessLog:    true,
	})
	routes.SetupRoutes(app, routes.Dependencies{
		DB:                 db,
		Cache:              cacheService,
		AuthService:        authService,
		TransactionService: transactionService,
		AlertService:       alert.NewService(store, prom),
		ReportService:      report.NewService(transactionService, store.Transactions, prom),
		MetricsHandler:     prom.Handler(),
		AuthRateLimit:      cfg.AuthRateLimit,
		SecureCookies:      cfg.IsProduction(),
		RefreshTTL:         cfg.RefreshTTL,
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("HTTP server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	var grpcServer *grpcapi.Server
	if cfg.GRPCPort != "" {
		grpcServer = grpcapi.NewServer(grpcapi.NewHandler(transactionService), ":"+cfg.GRPCPort, authService)
		go func() {
			errCh <- grpcServer.Start()
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openRedis connects the cache and the recipient history when REDIS_HOST is
// set. Without it, or when redis is unreachable, recipient history stays in
// process memory and caching is off.
func openRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*cache.CacheService, recipients.Tracker) {
	memory := recipients.NewMemoryTracker(cfg.RecipientWindow)

	redisCfg := cfg.Redis()
	if redisCfg == nil {
		logger.Info().Msg("REDIS_HOST not set, cache disabled")
		return nil, memory
	}

	client := cache.NewRedisClient(redisCfg)
	cacheService := cache.NewCacheService(client, cfg.CacheTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := cacheService.HealthCheck(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cache disabled")
		_ = cacheService.Close()
		return nil, memory
	}

	logger.Info().Str("host", redisCfg.Host).Msg("redis connected")
	return cacheService, recipients.NewRedisTracker(client, cfg.RecipientWindow)
}

func newTokenIssuer(cfg *config.Config, logger zerolog.Logger) (*utils.TokenIssuer, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, utils.ErrMissingSecret
		}
		generated, err := utils.GenerateSecret(32)
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	return utils.NewTokenIssuer(secret, cfg.AccessTTL, cfg.RefreshTTL)
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}
	}
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing assessments to kafka")
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) events.Notifier {
	if cfg.DiscordBotToken == "" || cfg.DiscordChannelID == "" {
		return events.LogNotifier{}
	}
	notifier, err := events.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID)
	if err != nil {
		logger.Warn().Err(err).Msg("discord unavailable, alerts only logged")
		return events.LogNotifier{}
	}
	return notifier
}

func logPoolStats(ctx context.Context, db *gorm.DB, logger zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			logger.Debug().
				Int("open", stats.OpenConnections).
				Int("idle", stats.Idle).
				Int("in_use", stats.InUse).
				Int64("wait_count", stats.WaitCount).
				Dur("wait_duration", stats.WaitDuration).
				Msg("db pool stats")
		}
	}
}
