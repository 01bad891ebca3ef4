package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/consult-service/internal/api/http"
	"github.com/spec-kit/consult-service/internal/api/http/handlers"
	"github.com/spec-kit/consult-service/internal/api/ws"
	"github.com/spec-kit/consult-service/internal/auth"
	"github.com/spec-kit/consult-service/internal/config"
	"github.com/spec-kit/consult-service/internal/observability"
	"github.com/spec-kit/consult-service/internal/persistence"
	"github.com/spec-kit/consult-service/internal/realtime"
	"github.com/spec-kit/consult-service/internal/repository"
	"github.com/spec-kit/consult-service/internal/scheduler"
	"github.com/spec-kit/consult-service/internal/service"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	hub := realtime.NewHub(logger, cfg.Realtime.SessionBuffer)

	// Prefer the Redis bridge so every instance sees every publish; fall
	// back to local-only fanout when the subscription cannot start.
	var publisher realtime.Publisher
	bridge := realtime.NewRedisBridge(logger, redis.Client, cfg.Redis.Channel, metrics)
	if err := bridge.StartForwarder(ctx, hub); err != nil {
		logger.Warn("redis bridge unavailable; using local fanout only", zap.Error(err))
		publisher = realtime.NewHubPublisher(hub, metrics)
	} else {
		publisher = bridge
	}

	pool := pg.PoolHandle()
	consultationRepo := repository.NewConsultationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	reminderRepo := repository.NewReminderTaskRepository(pool)
	careTaskRepo := repository.NewCareTaskRepository(pool)
	uow := repository.NewUnitOfWork(pool)

	consultationService := service.NewConsultationService(service.ConsultationDependencies{
		ConsultationRepo: consultationRepo,
		MessageRepo:      messageRepo,
		AttachmentRepo:   attachmentRepo,
		UnitOfWork:       uow,
		Publisher:        publisher,
		Logger:           logger,
	})
	notificationService := service.NewNotificationService(notificationRepo, logger)
	reminderService := service.NewReminderService(reminderRepo, logger)

	dispatcher := scheduler.NewReminderDispatcher(scheduler.DispatcherDependencies{
		TaskRepo:         reminderRepo,
		NotificationRepo: notificationRepo,
		CareTaskRepo:     careTaskRepo,
		Publisher:        publisher,
		Logger:           logger,
		Metrics:          metrics,
		BatchLimit:       cfg.Scheduler.BatchLimit,
	})
	if err := dispatcher.Start(cfg.Scheduler.DispatchHour, cfg.Scheduler.CareSweepHour); err != nil {
		logger.Fatal("failed to start dispatcher", zap.Error(err))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Version, pg, redis),
		Consultations:  handlers.NewConsultationsHandler(consultationService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Reminders:      handlers.NewRemindersHandler(reminderService),
		Admin:          handlers.NewAdminHandler(dispatcher),
		Gateway:        ws.NewGateway(hub, consultationService, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Stop accepting connections before tearing down the hub so in-flight
	// socket handlers never race closed sessions.
	_ = app.Shutdown()
	dispatcher.Stop()
	hub.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
