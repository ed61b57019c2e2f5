// Package api provides the HTTP API server and handlers for the HabitLeague server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/habitleague/habitleague-server/internal/auth"
	"github.com/habitleague/habitleague-server/internal/ratelimit"
	"github.com/habitleague/habitleague-server/internal/store"
)

// Options holds the HTTP-facing settings of the server.
type Options struct {
	AllowedOrigins []string
	// CronAPIKey guards the sweep endpoints; empty leaves them to authenticated users.
	CronAPIKey string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store            store.EventStore
	services         *Services
	tokens           *auth.TokenService
	recomputeLimiter *ratelimit.KeyedRateLimiter
	opts             Options
	router           *chi.Mux
	api              huma.API
	logger           *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store store.EventStore,
	services *Services,
	tokens *auth.TokenService,
	recomputeLimiter *ratelimit.KeyedRateLimiter,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:            store,
		services:         services,
		tokens:           tokens,
		recomputeLimiter: recomputeLimiter,
		opts:             opts,
		router:           chi.NewRouter(),
		logger:           logger,
	}

	// Middleware must be in place before huma adds routes to the router.
	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("HabitLeague API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
		"cron": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerHabitRoutes()
	s.registerCompetitionRoutes()
	s.registerSweepRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
}
