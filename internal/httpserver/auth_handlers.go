package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"orderbuddy/internal/auth"
	"orderbuddy/internal/db"
	"orderbuddy/internal/engine"
	"orderbuddy/models"
	"orderbuddy/pkg/logger"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: bad json body", engine.ErrInvalidInput))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		s.writeError(w, fmt.Errorf("%w: name, email and a password of at least 6 characters are required", engine.ErrInvalidInput))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.users.Create(r.Context(), req.Name, req.Email, hash)
	if err != nil {
		if db.IsUniqueViolation(err) {
			s.writeError(w, fmt.Errorf("%w: email already registered", engine.ErrInvalidInput))
			return
		}
		s.writeError(w, err)
		return
	}

	token, err := auth.IssueToken(s.cfg.Auth.JWTSecret, u, s.cfg.Auth.TokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("user registered", logger.Int64("user_id", u.ID))
	s.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: bad json body", engine.ErrInvalidInput))
		return
	}
	u, err := s.users.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		s.writeError(w, fmt.Errorf("%w: bad email or password", engine.ErrUnauthenticated))
		return
	}
	token, err := auth.IssueToken(s.cfg.Auth.JWTSecret, u, s.cfg.Auth.TokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, authResponse{Token: token, User: u})
}
