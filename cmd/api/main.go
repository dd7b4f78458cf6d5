package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/pairpoints/pairpoints-backend/api/routes"
	"github.com/pairpoints/pairpoints-backend/internal/config"
	"github.com/pairpoints/pairpoints-backend/internal/handlers"
	"github.com/pairpoints/pairpoints-backend/internal/repositories"
	mongorepo "github.com/pairpoints/pairpoints-backend/internal/repositories/mongodb"
	"github.com/pairpoints/pairpoints-backend/internal/services"
	mongodb "github.com/pairpoints/pairpoints-backend/pkg/mongodb"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)

	// Repositories
	var userRepo repositories.UserRepository = mongorepo.NewUserRepository(db)
	var connRepo repositories.ConnectionRepository = mongorepo.NewConnectionRepository(db)
	var txRepo repositories.TransactionRepository = mongorepo.NewTransactionRepository(db)
	var timeoutRepo repositories.TimeoutRepository = mongorepo.NewTimeoutRepository(db)
	var notificationRepo repositories.NotificationRepository = mongorepo.NewNotificationRepository(db)
	var runner repositories.TransactionRunner = mongorepo.NewTransactionRunner(mongoClient.Raw())

	// Sync layer: every mutation funnels through the retry policy, and the
	// Mongo client doubles as the connectivity monitor.
	syncManager := services.NewSyncManager(retryPolicy(cfg), mongoClient, logger)

	// Services
	notificationService := services.NewNotificationService(notificationRepo, connRepo, logger)
	timeoutService := services.NewTimeoutService(
		timeoutRepo,
		syncManager,
		notificationService,
		time.Duration(cfg.Timeout.DurationMinutes)*time.Minute,
		cfg.Timeout.DailyLimit,
		logger,
	)
	ledgerService := services.NewLedgerService(runner, txRepo, userRepo, connRepo, timeoutService, syncManager, notificationService, logger)
	connectionService := services.NewConnectionService(runner, connRepo, userRepo, syncManager, logger)
	userService := services.NewUserService(userRepo, connRepo, syncManager, logger)
	authService := services.NewAuthService(userRepo, syncManager, cfg, logger)

	// Handlers
	deps := routes.HandlerDependencies{
		HealthHandler:       handlers.NewHealthHandler(mongoClient),
		AuthHandler:         handlers.NewAuthHandler(authService),
		UserHandler:         handlers.NewUserHandler(userService),
		ConnectionHandler:   handlers.NewConnectionHandler(connectionService),
		TransactionHandler:  handlers.NewTransactionHandler(ledgerService),
		TimeoutHandler:      handlers.NewTimeoutHandler(timeoutService),
		SyncHandler:         handlers.NewSyncHandler(syncManager),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
		StreamHandler:       handlers.NewStreamHandler(ledgerService, connectionService, timeoutService, syncManager, logger),
	}

	router := routes.SetupRouter(cfg, logger, deps)

	// Periodic sweep of stale active flags. Readers already correct lazily;
	// this keeps records that nobody reads from staying stale forever.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Timeout.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := timeoutService.CleanupExpiredTimeouts(ctx); err != nil {
			logger.WithError(err).Warn("expired-timeout sweep failed")
		}
	}); err != nil {
		logger.Fatalf("Invalid sweep schedule %q: %v", cfg.Timeout.SweepSchedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	logger.Infof("Server starting on port %s", cfg.Server.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exiting")
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

func retryPolicy(cfg *config.Config) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts:       cfg.Sync.MaxAttempts,
		InitialBackoff:    time.Duration(cfg.Sync.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.Sync.MaxBackoffMs) * time.Millisecond,
		BackoffMultiplier: cfg.Sync.BackoffMultiplier,
		Jitter:            cfg.Sync.Jitter,
		OperationTimeout:  time.Duration(cfg.Sync.OperationTimeoutMs) * time.Millisecond,
		OfflineRecheck:    time.Duration(cfg.Sync.OfflineRecheckMs) * time.Millisecond,
	}
}
