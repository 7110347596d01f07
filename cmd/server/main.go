package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"github.com/urbanly/service-engine/internal/application/engine"
	"github.com/urbanly/service-engine/internal/application/escalation"
	"github.com/urbanly/service-engine/internal/application/service"
	"github.com/urbanly/service-engine/internal/application/sla"
	"github.com/urbanly/service-engine/internal/config"
	larkext "github.com/urbanly/service-engine/internal/infrastructure/external/lark"
	"github.com/urbanly/service-engine/internal/infrastructure/persistence/repository"
	"github.com/urbanly/service-engine/internal/infrastructure/persistence/sqlite"
	"github.com/urbanly/service-engine/internal/infrastructure/worker"
	"github.com/urbanly/service-engine/internal/interfaces/rest"
	"github.com/urbanly/service-engine/pkg/database"
	"github.com/urbanly/service-engine/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting service order workflow engine",
		zap.Int("port", cfg.Server.Port))

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(sqlDB, logger)

	definitionRepo := repository.NewDefinitionRepository(sqlDB, logger)
	instanceRepo := repository.NewInstanceRepository(sqlDB, logger)
	historyRepo := repository.NewHistoryRepository(sqlDB, logger)
	escalationRepo := repository.NewEscalationRepository(sqlDB, logger)
	notificationRepo := repository.NewNotificationRepository(sqlDB, logger)

	executor := engine.NewExecutor(definitionRepo, instanceRepo, historyRepo, txManager, logger)
	evaluator := sla.NewEvaluator(instanceRepo, definitionRepo)
	instanceService := service.NewInstanceService(definitionRepo, instanceRepo, historyRepo, logger)
	processor := escalation.NewProcessor(instanceRepo, definitionRepo, escalationRepo, notificationRepo, evaluator, txManager, logger)

	workers := worker.NewManager(logger)
	workers.Register(worker.NewEscalationWorker(worker.EscalationWorkerConfig{
		Interval: cfg.Escalation.Interval,
		City:     cfg.Escalation.City,
	}, processor, logger))

	if cfg.Notification.Enabled {
		larkClient := larkext.NewClient(larkext.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger)
		notifier := larkext.NewRoleNotifier(larkClient, cfg.Lark.RoleChats, logger)

		workers.Register(worker.NewNotificationWorker(worker.NotificationWorkerConfig{
			PollInterval: cfg.Notification.PollInterval,
			BatchSize:    cfg.Notification.BatchSize,
		}, notificationRepo, notifier, logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := rest.NewHandler(instanceService, executor, evaluator, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	logger.Info("HTTP server listening", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := workers.StopAll(); err != nil {
		logger.Error("Worker shutdown failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
