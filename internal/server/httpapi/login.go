package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// tokenIssuer is implemented by the bearer token strategy.
type tokenIssuer interface {
	Issue(userID string) (string, error)
	Validity() time.Duration
}

// passwordLogin reads email and password from the form and checks them.
// It writes the error response itself and reports whether to continue.
func (s *Server) passwordLogin(w http.ResponseWriter, r *http.Request, method string) (models.User, bool) {
	email := r.FormValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email missing")
		return models.User{}, false
	}
	password := r.FormValue("password")
	if password == "" {
		writeError(w, http.StatusBadRequest, "password missing")
		return models.User{}, false
	}

	// unknown email and wrong password answer alike
	u, err := s.users.Login(r.Context(), email, password)
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorUnauthorized):
		s.metrics.ObserveLogin(method, "invalid_credentials")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return models.User{}, false
	case err != nil:
		s.log.Error(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return models.User{}, false
	}
	s.metrics.ObserveLogin(method, "ok")
	return u, true
}

func (s *Server) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	sa, ok := s.auth.(auth.SessionAuthenticator)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	u, ok := s.passwordLogin(w, r, "session")
	if !ok {
		return
	}

	sid, err := sa.CreateSession(r.Context(), u.ID)
	if err != nil {
		s.log.Error(r.Context(), "create session failed", "user_id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.metrics.ObserveSession("created")

	http.SetCookie(w, &http.Cookie{
		Name:     sa.CookieName(),
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, newUserView(u))
}

func (s *Server) handleSessionLogout(w http.ResponseWriter, r *http.Request) {
	sa, ok := s.auth.(auth.SessionAuthenticator)
	if !ok || !sa.DestroySession(r.Context(), auth.HTTPRequest{R: r}) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.metrics.ObserveSession("destroyed")

	http.SetCookie(w, &http.Cookie{
		Name:     sa.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleTokenLogin(w http.ResponseWriter, r *http.Request) {
	issuer, ok := s.auth.(tokenIssuer)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	u, ok := s.passwordLogin(w, r, "token")
	if !ok {
		return
	}

	token, err := issuer.Issue(u.ID)
	if err != nil {
		s.log.Error(r.Context(), "issue token failed", "user_id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(issuer.Validity().Seconds()),
	})
}

func (s *Server) handleResetPasswordToken(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token, err := s.users.GetResetPasswordToken(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "reset_token": token})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token := r.FormValue("reset_token")
	password := r.FormValue("new_password")

	if err := s.users.UpdatePassword(r.Context(), token, password); err != nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "Password updated"})
}
