package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const meID = "me"

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := s.users.List()
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// lookupUser resolves the {id} parameter; "me" is the caller.
func (s *Server) lookupUser(r *http.Request) (models.User, bool) {
	id := chi.URLParam(r, "id")
	if id == meID {
		return auth.UserFromContext(r.Context())
	}
	u, err := s.users.Get(id)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookupUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, newUserView(u))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Wrong format")
		return
	}
	if in.Email == "" {
		writeError(w, http.StatusBadRequest, "email missing")
		return
	}
	if in.Password == "" {
		writeError(w, http.StatusBadRequest, "password missing")
		return
	}

	u, err := s.users.Register(r.Context(), services.Registration{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Can't create User: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	target, ok := s.lookupUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	var in updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Wrong format")
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), target.ID, services.ProfileUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case err != nil:
		s.log.Error(r.Context(), "update user failed", "user_id", target.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	default:
		writeJSON(w, http.StatusOK, newUserView(u))
	}
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	target, ok := s.lookupUser(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	err := s.users.Delete(r.Context(), target.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case err != nil:
		s.log.Error(r.Context(), "delete user failed", "user_id", target.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	default:
		writeJSON(w, http.StatusOK, struct{}{})
	}
}
