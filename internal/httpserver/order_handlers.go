package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"orderbuddy/internal/auth"
	"orderbuddy/internal/engine"
	"orderbuddy/models"
)

type createOrderRequest struct {
	Restaurant   string   `json:"restaurant"`
	Items        []string `json:"items"`
	DeliveryTime string   `json:"deliveryTime"`
	Location     struct {
		Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
		Address     string    `json:"address"`
	} `json:"location"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: bad json body", engine.ErrInvalidInput))
		return
	}
	if len(req.Location.Coordinates) != 2 {
		s.writeError(w, fmt.Errorf("%w: location.coordinates must be [longitude, latitude]", engine.ErrInvalidInput))
		return
	}
	lon, lat := req.Location.Coordinates[0], req.Location.Coordinates[1]

	o, err := s.catalog.Create(r.Context(), p.UserID, req.Restaurant, req.Items, req.DeliveryTime, lat, lon, req.Location.Address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order shared successfully",
		"order":   o,
	})
}

func (s *Server) handleNearbyOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latStr, lngStr := q.Get("lat"), q.Get("lng")

	// Without a position this is a plain listing, matching the old behavior.
	if latStr == "" || lngStr == "" {
		orders, err := s.catalog.ListAll(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
		return
	}

	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	if err1 != nil || err2 != nil {
		s.writeError(w, fmt.Errorf("%w: lat and lng must be numbers", engine.ErrInvalidInput))
		return
	}
	radius := s.cfg.Matching.DefaultRadiusMeters
	if rs := q.Get("radius"); rs != "" {
		radius, err1 = strconv.ParseFloat(rs, 64)
		if err1 != nil || radius <= 0 {
			s.writeError(w, fmt.Errorf("%w: radius must be a positive number", engine.ErrInvalidInput))
			return
		}
		if radius > s.cfg.Matching.MaxRadiusMeters {
			radius = s.cfg.Matching.MaxRadiusMeters
		}
	}

	orders, err := s.catalog.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.attachOwnerNames(r, orders); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// attachOwnerNames fills SharedByName on each result from one batched lookup.
func (s *Server) attachOwnerNames(r *http.Request, orders []models.OrderWithDistance) error {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.SharedBy)
	}
	users, err := s.users.GetByIDs(r.Context(), ids)
	if err != nil {
		return err
	}
	for i := range orders {
		if u, ok := users[orders[i].SharedBy]; ok {
			orders[i].SharedByName = u.Name
		}
	}
	return nil
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	orders, err := s.catalog.ListByOwner(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipal(r)
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: bad order id", engine.ErrInvalidInput))
		return
	}
	if err := s.catalog.Delete(r.Context(), p.UserID, orderID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Order deleted"})
}
