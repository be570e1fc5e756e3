package repository

import (
	"context"
	"database/sql"
	"time"

	"orderbuddy/models"
)

// ConnectionRepository reads and writes the derived symmetric connection
// relation. Pairs are normalized so user_a < user_b before they reach the
// table; Upsert and the accept path in RequestRepository share that
// convention.
type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Upsert materializes the connection between two users. Calling it twice for
// the same pair, in either argument order, leaves a single row.
func (r *ConnectionRepository) Upsert(ctx context.Context, userA, userB int64, contactA, contactB *models.Contact) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if userA > userB {
		userA, userB = userB, userA
		contactA, contactB = contactB, contactA
	}
	ca, err := encodeContact(contactA)
	if err != nil {
		return err
	}
	cb, err := encodeContact(contactB)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO connections (user_a, user_b, contact_a, contact_b) VALUES (?,?,?,?)
		 ON CONFLICT(user_a, user_b) DO UPDATE SET
		   contact_a = COALESCE(excluded.contact_a, contact_a),
		   contact_b = COALESCE(excluded.contact_b, contact_b)`,
		userA, userB, ca, cb)
	return err
}

// ListForUser returns every connection involving the user, oldest first, so
// repeated calls iterate in a stable order.
func (r *ConnectionRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_a, user_b, contact_a, contact_b, created_at FROM connections
		 WHERE user_a = ? OR user_b = ? ORDER BY created_at, user_a, user_b`,
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Connection
	for rows.Next() {
		var c models.Connection
		var contactA, contactB sql.NullString
		if err := rows.Scan(&c.UserA, &c.UserB, &contactA, &contactB, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.ContactA, err = decodeContact(contactA); err != nil {
			return nil, err
		}
		if c.ContactB, err = decodeContact(contactB); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Count returns the total number of connection rows. Used by tests to assert
// idempotent materialization.
func (r *ConnectionRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&n)
	return n, err
}
