package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"orderbuddy/internal/geo"
	"orderbuddy/models"
	"orderbuddy/pkg/logger"
	"orderbuddy/repository"
)

// OrderCatalog is the authoritative store for shared orders. It keeps the
// spatial index synchronized with the orders table: an order becomes visible
// to Nearby only after its row is durably persisted, and disappears from the
// index when its row is deleted.
type OrderCatalog struct {
	orders repository.OrderRepositoryI
	index  *geo.Index
	log    logger.ILogger
}

func NewOrderCatalog(orders repository.OrderRepositoryI, index *geo.Index, log logger.ILogger) *OrderCatalog {
	return &OrderCatalog{orders: orders, index: index, log: log}
}

// Reindex rebuilds the spatial index from the orders table. Called once at
// startup; the index is a non-owning cache of (id, lat, lon).
func (c *OrderCatalog) Reindex(ctx context.Context) error {
	all, err := c.orders.ListAll(ctx)
	if err != nil {
		return storeErr("reindex orders", err)
	}
	for _, o := range all {
		if err := c.index.Insert(o.ID, o.Location.Lat(), o.Location.Lon()); err != nil {
			c.log.Warning("skipping order with bad coordinates",
				logger.Int64("order_id", o.ID), logger.Error(err))
		}
	}
	c.log.Info("spatial index rebuilt", logger.Int("orders", c.index.Len()))
	return nil
}

// Create validates and persists a new order, then registers it in the
// spatial index.
func (c *OrderCatalog) Create(ctx context.Context, ownerID int64, restaurant string, items []string, deliveryTime string, lat, lon float64, address string) (*models.Order, error) {
	if strings.TrimSpace(restaurant) == "" {
		return nil, fmt.Errorf("%w: restaurant is required", ErrInvalidInput)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", ErrInvalidInput)
	}
	if !geo.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, geo.ErrInvalidLocation)
	}

	o, err := c.orders.Create(ctx, &models.Order{
		Restaurant:   restaurant,
		Items:        items,
		DeliveryTime: deliveryTime,
		SharedBy:     ownerID,
		Location:     models.NewLocation(lat, lon, address),
	})
	if err != nil {
		return nil, storeErr("create order", err)
	}
	// Coordinates were validated above; Insert cannot fail now.
	_ = c.index.Insert(o.ID, lat, lon)
	c.log.Info("order shared",
		logger.Int64("order_id", o.ID), logger.Int64("user_id", ownerID),
		logger.String("restaurant", restaurant))
	return o, nil
}

// Get fetches an order by id.
func (c *OrderCatalog) Get(ctx context.Context, id int64) (*models.Order, error) {
	o, err := c.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	if o == nil {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return o, nil
}

// ListByOwner returns a user's orders in creation order.
func (c *OrderCatalog) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Order, error) {
	out, err := c.orders.ListBySharedBy(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return out, nil
}

// ListAll returns every order in creation order.
func (c *OrderCatalog) ListAll(ctx context.Context) ([]*models.Order, error) {
	out, err := c.orders.ListAll(ctx)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return out, nil
}

// Nearby returns the orders within radiusMeters of (lat, lon), nearest first.
// Index hits whose backing row has since been deleted are dropped and
// unindexed.
func (c *OrderCatalog) Nearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.OrderWithDistance, error) {
	matches, err := c.index.QueryRadius(lat, lon, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := make([]models.OrderWithDistance, 0, len(matches))
	for _, m := range matches {
		o, err := c.orders.GetByID(ctx, m.ID)
		if err != nil {
			return nil, storeErr("hydrate order", err)
		}
		if o == nil {
			// Row vanished under the index entry; repair the cache.
			c.index.Remove(m.ID)
			continue
		}
		out = append(out, models.OrderWithDistance{Order: *o, Distance: m.Distance})
	}
	return out, nil
}

// Delete removes an order owned by ownerID, first from the table, then from
// the index.
func (c *OrderCatalog) Delete(ctx context.Context, ownerID, orderID int64) error {
	o, err := c.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.SharedBy != ownerID {
		return fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}
	if err := c.orders.Delete(ctx, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return storeErr("delete order", err)
	}
	c.index.Remove(orderID)
	c.log.Info("order deleted", logger.Int64("order_id", orderID), logger.Int64("user_id", ownerID))
	return nil
}
