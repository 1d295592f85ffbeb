package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/lightweight/internal/ingest/alpha"
	"github.com/claude/lightweight/internal/live"
	"github.com/claude/lightweight/internal/metrics"
	"github.com/claude/lightweight/internal/sessions"
	"github.com/claude/lightweight/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tunes optional server behaviour. The zero value is usable.
type Options struct {
	// RestThreshold is the default session gap for /sessions.
	RestThreshold time.Duration
	// CORSOrigin is sent as Access-Control-Allow-Origin; empty means "*".
	CORSOrigin string
	// Metrics, when set, records request and domain metrics.
	Metrics *metrics.Manager
	// Gatherer, when set, is served at /metrics.
	Gatherer prometheus.Gatherer
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      *storage.DB
	broker  *live.Broker
	alpha   *alpha.Provider
	log     *slog.Logger
	metrics *metrics.Manager
	whois   WhoIsFunc

	restThreshold time.Duration
	wsOrigins     []string
	router        chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, broker *live.Broker, alphaProvider *alpha.Provider, log *slog.Logger, opts Options) *Server {
	if opts.RestThreshold <= 0 {
		opts.RestThreshold = sessions.DefaultRestThreshold
	}
	s := &Server{
		db:            db,
		broker:        broker,
		alpha:         alphaProvider,
		log:           log,
		metrics:       opts.Metrics,
		restThreshold: opts.RestThreshold,
		wsOrigins:     wsOriginPatterns(opts.CORSOrigin),
		router:        chi.NewRouter(),
	}
	s.routes(opts)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetIdentity installs a resolver for the caller's tailnet identity.
// Without one every request is attributed to the local user.
func (s *Server) SetIdentity(whois WhoIsFunc) {
	s.whois = whois
}

func (s *Server) routes(opts Options) {
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(Recovery(s.log, s.metrics))
	s.router.Use(CORS(opts.CORSOrigin))
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(s.identity)

	s.router.Get("/healthz", s.handleHealth)
	if opts.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.MCP != nil {
		s.router.Handle("/mcp", opts.MCP)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/live", s.handleLive)
		r.Post("/import/alpha", s.handleAlphaImport)

		r.Route("/exercises", func(r chi.Router) {
			r.Get("/", s.handleListExercises)
			r.Post("/", s.handleCreateExercise)
			r.Post("/reorder", s.handleReorderExercises)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetExercise)
				r.Put("/", s.handleUpdateExercise)
				r.Delete("/", s.handleDeleteExercise)
				r.Get("/sets", s.handleListSets)
				r.Post("/sets", s.handleLogSet)
				r.Get("/sessions", s.handleSessions)
			})
		})

		r.Route("/sets/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSet)
			r.Put("/", s.handleUpdateSet)
			r.Delete("/", s.handleDeleteSet)
		})
	})
}
