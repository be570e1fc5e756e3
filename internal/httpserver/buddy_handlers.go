package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"orderbuddy/internal/auth"
	"orderbuddy/internal/engine"
	"orderbuddy/models"
)

func (s *Server) handleSendBuddyRequest(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: bad order id", engine.ErrInvalidInput))
		return
	}
	req, err := s.ledger.SendRequest(r.Context(), p.UserID, orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Buddy request sent successfully",
		"buddyRequest": req,
	})
}

// pendingRequestItem keeps the response shape the existing clients render.
type pendingRequestItem struct {
	ID         int64  `json:"_id"`
	SenderName string `json:"senderName"`
	OrderID    int64  `json:"orderId"`
}

func (s *Server) handleListBuddyRequests(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	reqs, err := s.ledger.ListPendingForReceiver(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	senderIDs := make([]int64, 0, len(reqs))
	for _, q := range reqs {
		senderIDs = append(senderIDs, q.SenderID)
	}
	senders, err := s.users.GetByIDs(r.Context(), senderIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]pendingRequestItem, 0, len(reqs))
	for _, q := range reqs {
		item := pendingRequestItem{ID: q.ID, OrderID: q.OrderID}
		if u, ok := senders[q.SenderID]; ok {
			item.SenderName = u.Name
		}
		out = append(out, item)
	}
	s.writeJSON(w, http.StatusOK, out)
}

type acceptRequestBody struct {
	Contact *models.Contact `json:"contact"`
}

func (s *Server) handleAcceptBuddyRequest(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: bad request id", engine.ErrInvalidInput))
		return
	}
	var body acceptRequestBody
	// The body is optional; older clients accept without sharing contact.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		s.writeError(w, fmt.Errorf("%w: bad json body", engine.ErrInvalidInput))
		return
	}
	req, err := s.ledger.Accept(r.Context(), requestID, p.UserID, body.Contact)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Buddy request accepted",
		"buddyRequest": req,
	})
}

func (s *Server) handleRejectBuddyRequest(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: bad request id", engine.ErrInvalidInput))
		return
	}
	req, err := s.ledger.Reject(r.Context(), requestID, p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Buddy request rejected",
		"buddyRequest": req,
	})
}
