// Package api provides the REST API server for the workspace access-control
// service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docuvault/docuvault-server/internal/api/common"
	v1 "github.com/docuvault/docuvault-server/internal/api/v1"
	"github.com/docuvault/docuvault-server/internal/docs"
	"github.com/docuvault/docuvault-server/internal/groups"
	"github.com/docuvault/docuvault-server/internal/store"
	"github.com/docuvault/docuvault-server/internal/workspace"
)

// ServerOption configures the API server.
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration.
type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
}

// WithMiddlewares adds middleware to the server.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// Services bundles the service dependencies of the API server.
type Services struct {
	Store      store.Store
	Workspaces *workspace.Service
	Documents  *docs.Service
	Groups     *groups.Registry
}

// NewServer creates and configures the HTTP router with the given services
// and options.
func NewServer(svcs Services, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}
	r.Use(common.PrincipalMiddleware)

	r.Mount("/", HealthRouter(svcs.Store))
	r.Mount("/v1", v1.Router(svcs.Workspaces, svcs.Documents, svcs.Groups))

	return r
}

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
