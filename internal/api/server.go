package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inteldesk/inteldesk/internal/audit"
	"github.com/inteldesk/inteldesk/internal/auth"
	"github.com/inteldesk/inteldesk/internal/config"
	"github.com/inteldesk/inteldesk/internal/delivery"
	"github.com/inteldesk/inteldesk/internal/search"
	"github.com/inteldesk/inteldesk/internal/store"
)

// Server is the dashboard API server.
type Server struct {
	cfg          config.ServerConfig
	store        *store.Store
	orchestrator *delivery.Orchestrator
	searchIndex  search.Index
	audit        *audit.Logger
	verifier     auth.Verifier
	tokenCookie  string

	handler http.Handler
	server  *http.Server
}

// Deps bundles the server's collaborators. Tracking is an optional
// handler mounted at the root for single-binary deployments; when the
// tracking edge runs as its own service it is nil here.
type Deps struct {
	Store        *store.Store
	Orchestrator *delivery.Orchestrator
	SearchIndex  search.Index
	Audit        *audit.Logger
	Verifier     auth.Verifier
	TokenCookie  string
	Tracking     http.Handler
	CORSOrigins  []string
}

// NewServer creates the API server and builds its route tree.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:          cfg,
		store:        deps.Store,
		orchestrator: deps.Orchestrator,
		searchIndex:  deps.SearchIndex,
		audit:        deps.Audit,
		verifier:     deps.Verifier,
		tokenCookie:  deps.TokenCookie,
	}
	s.handler = s.routes(deps.Tracking, deps.CORSOrigins)
	return s
}

func (s *Server) routes(tracking http.Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	// Tracking endpoints are unauthenticated.
	if tracking != nil {
		r.Mount("/", tracking)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/advisories", func(r chi.Router) {
			r.With(requireCapability(auth.CapViewAdvisories)).Group(func(r chi.Router) {
				r.Get("/", s.handleListAdvisories)
				r.Get("/search", s.handleSearchAdvisories)
				r.Get("/{id}", s.handleGetAdvisory)
			})
			r.With(requireCapability(auth.CapEditAdvisories)).Group(func(r chi.Router) {
				r.Post("/", s.handleCreateAdvisory)
				r.Put("/{id}", s.handleUpdateAdvisory)
				r.Delete("/{id}", s.handleDeleteAdvisory)
			})
		})

		r.Route("/clients", func(r chi.Router) {
			r.Use(requireCapability(auth.CapManageClients))
			r.Get("/", s.handleListClients)
			r.Post("/", s.handleCreateClient)
			r.Get("/{id}", s.handleGetClient)
			r.Put("/{id}", s.handleUpdateClient)
			r.Delete("/{id}", s.handleDeleteClient)
		})

		r.Route("/scheduled-emails", func(r chi.Router) {
			r.With(requireCapability(auth.CapViewAdvisories)).Group(func(r chi.Router) {
				r.Get("/", s.handleListScheduledEmails)
				r.Get("/{id}", s.handleGetScheduledEmail)
				r.Get("/{id}/events", s.handleEmailEvents)
			})
			r.With(requireCapability(auth.CapSendEmail)).Group(func(r chi.Router) {
				r.Post("/", s.handleCreateScheduledEmail)
				r.Post("/{id}/send-now", s.handleSendNow)
				r.Post("/{id}/cancel", s.handleCancelScheduledEmail)
			})
		})

		r.With(requireCapability(auth.CapViewAdvisories)).
			Get("/analytics/tracking", s.handleTrackingSummary)

		r.With(requireCapability(auth.CapViewAudit)).
			Get("/audit", s.handleListAuditLogs)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Handler returns the root HTTP handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.GetHost(), s.cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
