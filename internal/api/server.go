// Package api serves the Kobo device protocol and the admin API from one chi router.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kobink/kobink-server/internal/logger"
	"github.com/kobink/kobink-server/internal/ratelimit"
	"github.com/kobink/kobink-server/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	// HostURL is the advertised base URL. When empty it is derived per request.
	HostURL string
	// APIKey, when set, must match the {key} segment of device URLs.
	APIKey string
	// AuthLimiter throttles device auth per client IP. Nil disables throttling.
	AuthLimiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	kobo    *service.KoboService
	library *service.LibraryService
	router  *chi.Mux
	api     huma.API
	logger  *slog.Logger

	hostURL     string
	apiKey      string
	authLimiter *ratelimit.KeyedRateLimiter
	startedAt   time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(koboService *service.KoboService, library *service.LibraryService, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		kobo:        koboService,
		library:     library,
		router:      router,
		logger:      logger,
		hostURL:     opts.HostURL,
		apiKey:      opts.APIKey,
		authLimiter: opts.AuthLimiter,
		startedAt:   time.Now(),
	}

	s.setupMiddleware()

	s.api = humachi.New(router, newHumaConfig())
	RegisterErrorHandler()

	s.registerAdminRoutes()
	s.registerKoboRoutes()
	s.registerContentRoutes()

	return s
}

func newHumaConfig() huma.Config {
	cfg := huma.DefaultConfig("Kobink Admin API", "1.0.0")
	cfg.OpenAPIPath = "/api/openapi"
	cfg.DocsPath = "/api/docs"
	cfg.SchemasPath = "/api/schemas"
	cfg.Transformers = append(cfg.Transformers, EnvelopeTransformer)
	return cfg
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use((&logger.RequestFormatter{Logger: s.logger}).Middleware())
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "application/json"))
}
