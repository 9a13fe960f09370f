package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.opentelemetry.io/otel"

	"github.com/Tomlord1122/http-todo/internal/config"
	"github.com/Tomlord1122/http-todo/internal/database"
	"github.com/Tomlord1122/http-todo/internal/repository"
	"github.com/Tomlord1122/http-todo/internal/server"
	"github.com/Tomlord1122/http-todo/internal/service"
	"github.com/Tomlord1122/http-todo/internal/telemetry"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, providers *telemetry.Providers, logger *slog.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The server has 5 seconds to finish the requests it is currently handling.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	release(ctxTimeout, dbService, providers, logger)

	done <- true
}

// release closes the store and flushes telemetry. A nil dbService is skipped.
func release(ctx context.Context, dbService database.Service, providers *telemetry.Providers, logger *slog.Logger) {
	if dbService != nil {
		if err := dbService.Close(); err != nil {
			logger.Error("closing database connection pool", slog.Any("error", err))
		} else {
			logger.Info("database connection pool closed")
		}
	}

	if err := providers.Shutdown(ctx); err != nil {
		logger.Error("shutting down telemetry providers", slog.Any("error", err))
	}
}

// openStore picks the backing store named by cfg.DB.Driver.
func openStore(cfg config.Config, logger *slog.Logger) (database.Service, repository.TodoRepository, error) {
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, todos are lost on exit")
		return database.NewMemory(), repository.NewMemoryTodoRepository(), nil
	}

	dbService, err := database.New(cfg.DB, cfg.App.SQLEcho)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.AutoMigrate {
		logger.Info("creating missing tables")
		if err := database.Migrate(dbService.GetDB()); err != nil {
			_ = dbService.Close()
			return nil, nil, err
		}
	}
	return dbService, repository.NewGormTodoRepository(dbService.GetDB()), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	providers, err := telemetry.Setup(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	logger := providers.Logger
	slog.SetDefault(logger)

	logger.Info("starting application",
		slog.String("env", cfg.App.Env),
		slog.String("driver", cfg.DB.Driver),
		slog.Bool("telemetry", cfg.Telemetry.Enabled()),
	)

	dbService, todoRepo, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		release(context.Background(), nil, providers, logger)
		os.Exit(1)
	}

	todoService := service.NewTodoService(todoRepo, logger)

	metrics, err := telemetry.NewMetrics(otel.Meter(cfg.Telemetry.ServiceName), todoService.Count)
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		release(context.Background(), dbService, providers, logger)
		os.Exit(1)
	}

	apiServer := server.NewServer(cfg.HTTP, todoService, dbService, logger, metrics)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, providers, logger, done)

	logger.Info("server listening", slog.String("addr", apiServer.Addr))
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", slog.Any("error", err))
		os.Exit(1)
	}

	<-done
	logger.Info("graceful shutdown complete")
}
