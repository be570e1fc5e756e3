package httpserver

import (
	"net/http"

	"orderbuddy/internal/auth"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	peers, err := s.view.ListConnections(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, peers)
}
