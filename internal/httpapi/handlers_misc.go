package httpapi

import (
	"encoding/json"
	"net/http"

	"modelmesh/internal/auth"
)

// handleListActors implements GET /api/actors.
func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Coordinator.Registry.List())
}

// handleUser implements GET /api/user, returning the session's email.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoSession)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"email": email})
}

var errNoSession = chatError("no authenticated session")

// handlePersonalToken implements POST /api/user/personal-token: issue a
// PAT bound to the session's email.
func (s *Server) handlePersonalToken(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errNoSession)
		return
	}

	var body struct {
		ExpirationDays int `json:"expiration_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.ExpirationDays <= 0 {
		body.ExpirationDays = 30
	}

	token, err := s.PAT.Issue(email, body.ExpirationDays)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token})
}
