package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"orderbuddy/internal/engine"
	"orderbuddy/pkg/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", logger.Error(err))
	}
}

// writeError maps engine sentinels to HTTP statuses plus the stable code the
// clients branch on. StoreUnavailable is the one retryable kind and gets 503.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, engine.ErrSelfMatch),
		errors.Is(err, engine.ErrDuplicatePending):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrAlreadyResolved):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, engine.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Error("internal error", logger.Error(err))
	}
	s.writeJSON(w, status, errorBody{Code: engine.Code(err), Message: err.Error()})
}
