package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderbuddy/models"
)

// OrderRepository is the core repository for Order entities.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, restaurant, items, delivery_time, shared_by, lat, lon, address, created_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	var itemsJSON string
	var deliveryTime, address sql.NullString
	var lat, lon float64
	err := row.Scan(&o.ID, &o.Restaurant, &itemsJSON, &deliveryTime, &o.SharedBy, &lat, &lon, &address, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	o.DeliveryTime = deliveryTime.String
	o.Location = models.NewLocation(lat, lon, address.String)
	return &o, nil
}

// Create inserts a new order and queries it back to capture created_at.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	var deliveryTime, address any
	if o.DeliveryTime != "" {
		deliveryTime = o.DeliveryTime
	}
	if o.Location.Address != "" {
		address = o.Location.Address
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (restaurant, items, delivery_time, shared_by, lat, lon, address) VALUES (?,?,?,?,?,?,?)`,
		o.Restaurant, string(itemsJSON), deliveryTime, o.SharedBy, o.Location.Lat(), o.Location.Lon(), address)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	o2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o2 == nil {
		return nil, fmt.Errorf("created order not found: id=%d", id)
	}
	return o2, nil
}

// GetByID fetches an order by its ID. Returns (nil, nil) when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ListBySharedBy returns all orders owned by a user in creation order.
func (r *OrderRepository) ListBySharedBy(ctx context.Context, userID int64) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE shared_by = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListAll returns every order in creation order. Used to rebuild the spatial
// index at startup and to serve unlocated listing queries.
func (r *OrderRepository) ListAll(ctx context.Context) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Delete removes an order by ID. Returns sql.ErrNoRows when nothing matched.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
