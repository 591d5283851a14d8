package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/config"
	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/ipfilter"
	"github.com/foxzi/emailchamp/internal/manager"
	"github.com/foxzi/emailchamp/internal/metrics"
	"github.com/foxzi/emailchamp/internal/template"
)

// Generator produces campaign content with the language model
type Generator interface {
	GenerateEmail(ctx context.Context, info generator.BusinessInfo, tmpl string) (string, error)
	GenerateSequence(ctx context.Context, info generator.CampaignInfo) ([]*campaign.Campaign, error)
	Regenerate(ctx context.Context, info generator.CampaignInfo, c *campaign.Campaign) (*campaign.Campaign, error)
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	manager    *manager.Manager
	generator  Generator
	templates  *template.Storage
	filter     *ipfilter.Filter
	config     *config.APIConfig
	logger     *slog.Logger
	version    string
	startTime  time.Time
}

// Option configures a Server
type Option func(*Server)

// WithIPFilter restricts API access to the filter's networks
func WithIPFilter(f *ipfilter.Filter) Option {
	return func(s *Server) {
		s.filter = f
	}
}

// WithTemplates enables the custom template endpoints
func WithTemplates(t *template.Storage) Option {
	return func(s *Server) {
		s.templates = t
	}
}

// WithVersion sets the version reported by /health
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a new API server. gen may be nil when no language
// model is configured; generation endpoints then answer 503.
func NewServer(mgr *manager.Manager, gen Generator, cfg *config.APIConfig, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		manager:   mgr,
		generator: gen,
		config:    cfg,
		logger:    logger,
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if s.filter != nil && s.filter.Enabled() {
		s.router.Use(s.filter.Middleware)
	}

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.clientMiddleware)
		r.Use(s.bodyLimitMiddleware)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/", s.handleCreateCampaign)
			r.Get("/stats", s.handleCampaignStats)
			r.Get("/{id}", s.handleGetCampaign)
			r.Put("/{id}", s.handleUpdateCampaign)
			r.Delete("/{id}", s.handleDeleteCampaign)
			r.Post("/{id}/regenerate", s.handleRegenerate)
			r.Get("/{id}/handoff", s.handleHandoff)
		})

		r.Post("/generate/email", s.handleGenerateEmail)
		r.Post("/generate/sequence", s.handleGenerateSequence)

		r.Get("/surface", s.handleSurface)

		r.Route("/preview", func(r chi.Router) {
			r.Get("/", s.handleGetPreview)
			r.Delete("/", s.handleClosePreview)
			r.Post("/{id}", s.handleOpenPreview)
		})

		r.Route("/editor", func(r chi.Router) {
			r.Get("/", s.handleEditorState)
			r.Delete("/", s.handleCloseEditor)
			r.Post("/save", s.handleEditorSave)
			r.Get("/html", s.handleEditorHTML)
			r.Put("/selection", s.handleEditorSelect)
			r.Post("/components", s.handleInsertComponent)
			r.Patch("/components/{cid}", s.handleUpdateComponent)
			r.Delete("/components/{cid}", s.handleDeleteComponent)
			r.Post("/{id}", s.handleOpenEditor)
		})

		if s.templates != nil {
			r.Route("/templates", func(r chi.Router) {
				r.Get("/", s.handleListTemplates)
				r.Post("/", s.handleCreateTemplate)
				r.Post("/inspect", s.handleInspectTemplate)
				r.Get("/{id}", s.handleGetTemplate)
				r.Put("/{id}", s.handleUpdateTemplate)
				r.Delete("/{id}", s.handleDeleteTemplate)
			})
		}
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
