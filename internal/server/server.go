package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/record-archive/internal/config"
	"github.com/hongminglow/record-archive/internal/http/handlers"
	"github.com/hongminglow/record-archive/internal/middleware"
	"github.com/hongminglow/record-archive/internal/service"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// Routes builds the full handler chain. Exposed so tests can drive it
// through httptest without binding a port.
func Routes(cfg config.Config, svc *service.Service, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), cfg.ArchiveDir, cfg.AuthEnabled).Register(mux)
	handlers.NewAuthHandler(svc, log).Register(mux)
	handlers.NewNotificationHandler(svc, log).Register(mux)
	handlers.NewSettingsHandler(svc, log).Register(mux)
	handlers.NewOrderHandler(svc, log).Register(mux)
	handlers.NewResourceHandler(svc, log).Register(mux)

	return middleware.CORS(cfg.CORSOrigins,
		middleware.Logging(log,
			middleware.Identify(cfg.AuthEnabled, svc, log, mux)))
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, svc *service.Service, log *slog.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Routes(cfg, svc, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
