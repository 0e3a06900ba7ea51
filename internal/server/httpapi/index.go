package httpapi

import "net/http"

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"users": s.users.Count()})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func (s *Server) handleForbidden(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusForbidden, "Forbidden")
}
