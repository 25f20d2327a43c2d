package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/idzvilla/vin-car/internal/api/http"
	"github.com/idzvilla/vin-car/internal/api/http/handlers"
	"github.com/idzvilla/vin-car/internal/auth"
	"github.com/idzvilla/vin-car/internal/config"
	"github.com/idzvilla/vin-car/internal/events"
	"github.com/idzvilla/vin-car/internal/observability"
	"github.com/idzvilla/vin-car/internal/persistence"
	"github.com/idzvilla/vin-car/internal/ratelimit"
	"github.com/idzvilla/vin-car/internal/repository"
	"github.com/idzvilla/vin-car/internal/service"
	"github.com/idzvilla/vin-car/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	pool := pg.PoolHandle()
	ticketStore := repository.NewPostgresTicketStore(pool)
	operatorStore := repository.NewPostgresOperatorStore(pool)
	subscriptionStore := repository.NewPostgresSubscriptionStore(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	quotaService := service.NewQuotaService(subscriptionStore, logger)
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketStore:   ticketStore,
		OperatorStore: operatorStore,
		Quota:         quotaService,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	operatorService := service.NewOperatorService(operatorStore, tokenManager, cfg.Auth.BcryptCost, logger)
	authMiddleware := auth.NewMiddleware(tokenManager, operatorStore)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	limiter := ratelimit.NewLimiter(rdb.Client, cfg.RateLimit.SubmissionsPerMinute)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Tickets:        handlers.NewTicketsHandler(lifecycleService, limiter, metrics),
		Operators:      handlers.NewOperatorsHandler(operatorService, quotaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
