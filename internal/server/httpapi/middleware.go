package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// authenticate resolves the caller and refuses protected paths. On
// excluded paths a caller that presents credentials is still resolved on a
// best-effort basis.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := auth.HTTPRequest{R: r}
		hasCredentials := s.auth.AuthorizationHeader(req) != "" || s.auth.SessionCookie(req) != ""

		if !s.auth.RequiresAuth(r.URL.Path, s.excluded) {
			s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeExcluded)
			if hasCredentials {
				if u, ok := s.auth.CurrentUser(ctx, req); ok {
					r = r.WithContext(auth.WithUser(ctx, u))
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		if !hasCredentials {
			s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeUnauthorized)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		u, ok := s.auth.CurrentUser(ctx, req)
		if !ok {
			s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeForbidden)
			s.log.Warn(ctx, "credentials rejected", "path", r.URL.Path, "ip", r.RemoteAddr)
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeAllowed)
		next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, u)))
	})
}

// observe logs each request and records its duration.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.ObserveRequest("http", route, status, elapsed)
		s.log.Info(r.Context(), "request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
			"ip", r.RemoteAddr,
		)
	})
}
