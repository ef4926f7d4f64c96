package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-service/internal/api/http"
	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/cache"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/mail"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/persistence"
	"github.com/spec-kit/task-service/internal/repository"
	"github.com/spec-kit/task-service/internal/repository/memory"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/internal/worker"
)

type stores struct {
	tasks         repository.TaskRepository
	users         repository.UserRepository
	history       repository.TaskHistoryRepository
	notifications repository.NotificationRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := newStores(pg)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartHistoryWorker(service.NewHistoryService(dispatcher, repos.history, logger))

	unread := cache.NewUnreadCounter(redis.Client, cfg.Notification.UnreadCacheTTL())
	notifier := service.NewNotifier(newTransport(cfg.SMTP, logger), repos.notifications, unread, cfg.Notification.EmailFrom, logger)

	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:    repos.tasks,
		UserRepo:    repos.users,
		HistoryRepo: repos.history,
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		FailFast:    cfg.Notification.FailFast,
	})
	inboxService := service.NewInboxService(repos.notifications, unread, logger)
	authService := service.NewAuthService(cfg.Auth, repos.users, logger)
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.Bootstrap); err != nil {
		logger.Fatal("failed to seed bootstrap admin", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Status:         handlers.NewStatusHandler(taskService),
		Notifications:  handlers.NewNotificationsHandler(inboxService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newStores(pg *persistence.Postgres) stores {
	if !pg.Enabled() {
		return stores{
			tasks:         memory.NewTaskStore(),
			users:         memory.NewUserStore(),
			history:       memory.NewHistoryStore(),
			notifications: memory.NewNotificationStore(),
		}
	}
	pool := pg.PoolHandle()
	return stores{
		tasks:         repository.NewTaskRepository(pool),
		users:         repository.NewUserRepository(pool),
		history:       repository.NewTaskHistoryRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
	}
}

func newTransport(cfg config.SMTPConfig, logger *zap.Logger) mail.Transport {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST not provided; notifications are logged, not mailed")
		return mail.NewLogTransport(logger)
	}
	return mail.NewSMTPTransport(cfg, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
