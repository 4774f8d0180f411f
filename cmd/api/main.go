package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/MohamadAlaskari/EventHub/internal/api/http"
	"github.com/MohamadAlaskari/EventHub/internal/api/http/handlers"
	"github.com/MohamadAlaskari/EventHub/internal/auth"
	"github.com/MohamadAlaskari/EventHub/internal/config"
	"github.com/MohamadAlaskari/EventHub/internal/events"
	"github.com/MohamadAlaskari/EventHub/internal/mail"
	"github.com/MohamadAlaskari/EventHub/internal/observability"
	"github.com/MohamadAlaskari/EventHub/internal/persistence"
	"github.com/MohamadAlaskari/EventHub/internal/repository"
	"github.com/MohamadAlaskari/EventHub/internal/service"
	"github.com/MohamadAlaskari/EventHub/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "eventhub",
		Short:        "EventHub account service: signup, email verification and token sessions",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), runServer)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), runMigrate)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	rootCmd.RunE = serveCmd.RunE
	return rootCmd
}

type runFunc func(ctx context.Context, cfg *config.Config, logger *zap.Logger) error

func withRuntime(ctx context.Context, run runFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

func runMigrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	sessions, redis := persistence.NewSessionStore(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	users := service.NewUserService(repository.NewUserRepository(pg.PoolHandle()), hasher)

	dispatcher := events.NewInMemoryDispatcher()
	mailer := mail.New(cfg.Notification, logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, mailer, logger), logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Users:    users,
		Sessions: sessions,
		Hasher:   hasher,
		Notifier: service.NewEmailNotifier(dispatcher),
		Logger:   logger,
		Metrics:  metrics,
	})

	dependencies := map[string]handlers.Pinger{"postgres": pg}
	if redis != nil {
		dependencies["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(ctx, logger):
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	authService.Wait()
	return nil
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("shutting down", zap.Error(ctx.Err()))
		}
	}()
	return done
}
