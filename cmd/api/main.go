package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"scamlens/internal/api"
	"scamlens/internal/api/handlers"
	apimiddleware "scamlens/internal/api/middleware"
	"scamlens/internal/config"
	"scamlens/internal/domain/services"
	"scamlens/internal/domain/services/ai"
	"scamlens/internal/domain/services/policy"
	"scamlens/internal/grpc/healthcheck"
	"scamlens/internal/infrastructure/cache"
	"scamlens/internal/infrastructure/database"
	"scamlens/internal/infrastructure/database/repository"
	"scamlens/internal/infrastructure/memstore"
	"scamlens/internal/streaming"
	"scamlens/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting scamlens")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infra, err := initInfrastructure(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer infra.Close()

	// Streaming
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without event export")
		}
	}
	wsHub := streaming.NewWebSocketHub(cfg.CORS.AllowedOrigins, log)
	go wsHub.Run(ctx)
	eventBus := streaming.NewEventBus(natsPublisher, wsHub, log)
	defer eventBus.Close()
	recent := streaming.NewRecent(100)
	feed, unsubscribe := eventBus.Subscribe(nil)
	defer unsubscribe()
	go recent.Run(ctx, feed)

	// Oracle
	var oracle ai.Oracle
	oracle, err = ai.NewOracle(ctx, cfg.Oracle, log)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Oracle.Provider).Msg("oracle unavailable, scans will be degraded")
		oracle = ai.NopOracle{}
	}
	if cfg.Oracle.Breaker.Enabled {
		oracle = ai.NewBreakerOracle(oracle, cfg.Oracle.Breaker, log)
	}
	defer oracle.Close()
	analyst := ai.NewAnalyst(oracle, cfg.Oracle.Timeout, log)

	// Services
	gate := policy.NewGateFromConfig(cfg.Policy, infra.quotaUsers, infra.quotaAnonymous, log)
	scanService := services.NewScanService(infra.users, gate, analyst, eventBus, log)
	accountService := services.NewAccountService(infra.users, infra.flagged, log)

	scheduler := services.NewScheduler(10*time.Minute, log)
	for name, p := range infra.pruners {
		scheduler.Register(name, p)
	}
	go func() {
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	h := handlers.NewHandlers(handlers.Dependencies{
		Version:  cfg.App.Version,
		Scans:    scanService,
		Accounts: accountService,
		Checks:   infra.checks,
		Hub:      wsHub,
		EventBus: eventBus,
		Recent:   recent,
		Logger:   log,
	})

	var limiter apimiddleware.Limiter
	if infra.redis != nil {
		limiter = infra.redis
	} else if cfg.RateLimit.Enabled {
		log.Warn().Msg("rate limiting requires Redis, disabled")
	}
	router := api.NewRouter(*cfg, h, limiter, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// gRPC carries only the health service
	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}
	grpcServer := grpc.NewServer()
	grpcChecks := make(map[string]healthcheck.Pinger, len(infra.checks))
	for name, c := range infra.checks {
		grpcChecks[name] = c
	}
	monitor := healthcheck.Register(grpcServer, grpcChecks, 10*time.Second, log)
	go monitor.Run(ctx)

	go func() {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	scheduler.Stop()

	log.Info().Msg("shutdown complete")
}

// infrastructure holds the stores selected from configuration
type infrastructure struct {
	db    *database.PostgresDB
	redis *cache.RedisCache

	users          services.UserStore
	flagged        services.FlaggedEmailStore
	quotaUsers     policy.QuotaStore
	quotaAnonymous policy.QuotaStore

	checks  map[string]handlers.Pinger
	pruners map[string]services.Pruner
}

func (i *infrastructure) Close() {
	if i.db != nil {
		i.db.Close()
	}
	if i.redis != nil {
		i.redis.Close()
	}
}

// initInfrastructure picks Postgres or in-memory storage for users, and
// Redis or in-memory storage for anonymous quotas
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) (*infrastructure, error) {
	infra := &infrastructure{
		checks:  map[string]handlers.Pinger{},
		pruners: map[string]services.Pruner{},
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		users := repository.NewUserRepository(db)
		infra.db = db
		infra.users = users
		infra.quotaUsers = users
		infra.flagged = repository.NewFlaggedEmailRepository(db.Pool())
		infra.checks["postgres"] = db
	} else {
		log.Warn().Msg("database disabled, users and flagged emails are kept in memory")
		users := memstore.NewUsers()
		infra.users = users
		infra.quotaUsers = users
		infra.flagged = memstore.NewFlaggedEmails()
	}

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		infra.redis = redisCache
		infra.quotaAnonymous = cache.NewQuotaStore(redisCache)
		infra.checks["redis"] = redisCache
	} else {
		anonymous := policy.NewMemoryStore()
		infra.quotaAnonymous = anonymous
		infra.pruners["anonymous-quotas"] = anonymous
	}

	return infra, nil
}
