// Package httpapi serves the REST API under /api/v1. Every request passes
// the configured auth strategy first: protected paths without credentials
// get 401, with credentials that resolve to nobody 403.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultExcludedPaths never require authentication.
var DefaultExcludedPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
	"/api/v1/auth_token/login/",
	"/api/v1/reset_password/",
	"/metrics",
}

type Deps struct {
	Auth          auth.Authenticator
	Users         *services.UserService
	Metrics       *metrics.Metrics
	Logger        logging.Logger
	ExcludedPaths []string
	SecureCookies bool
}

type Server struct {
	auth          auth.Authenticator
	users         *services.UserService
	metrics       *metrics.Metrics
	log           logging.Logger
	excluded      []string
	secureCookies bool
}

func New(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	excluded := d.ExcludedPaths
	if excluded == nil {
		excluded = DefaultExcludedPaths
	}
	return &Server{
		auth:          d.Auth,
		users:         d.Users,
		metrics:       d.Metrics,
		log:           log,
		excluded:      excluded,
		secureCookies: d.SecureCookies,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(s.authenticate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/unauthorized", s.handleUnauthorized)
		r.Get("/forbidden", s.handleForbidden)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/{id}", s.handleGetUser)
			r.Put("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Post("/auth_session/login", s.handleSessionLogin)
		r.Delete("/auth_session/logout", s.handleSessionLogout)
		r.Post("/auth_token/login", s.handleTokenLogin)

		r.Post("/reset_password", s.handleResetPasswordToken)
		r.Put("/reset_password", s.handleUpdatePassword)
	})

	return r
}
