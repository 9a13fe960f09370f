package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Tomlord1122/http-todo/internal/config"
	"github.com/Tomlord1122/http-todo/internal/database"
	"github.com/Tomlord1122/http-todo/internal/service"
	"github.com/Tomlord1122/http-todo/internal/telemetry"
)

type Server struct {
	cfg         config.HTTPConfig
	todoService service.TodoService
	db          database.Service
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

func newServer(cfg config.HTTPConfig, todoService service.TodoService, dbService database.Service, logger *slog.Logger, metrics *telemetry.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         cfg,
		todoService: todoService,
		db:          dbService,
		logger:      logger,
		metrics:     metrics,
	}
}

// NewServer builds the HTTP server. metrics may be nil.
func NewServer(cfg config.HTTPConfig, todoService service.TodoService, dbService database.Service, logger *slog.Logger, metrics *telemetry.Metrics) *http.Server {
	appServer := newServer(cfg, todoService, dbService, logger, metrics)

	handler := otelhttp.NewHandler(appServer.RegisterRoutes(), "http-todo",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(appServer.logger.Handler(), slog.LevelError),
	}
}
