package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderbuddy/internal/db"
	"orderbuddy/models"
)

// ErrDuplicatePending is returned by CreatePending when a pending request for
// the same (order, sender) pair already exists. It maps the partial unique
// index idx_requests_one_pending.
var ErrDuplicatePending = errors.New("pending request already exists")

// RequestRepository stores buddy requests. All state transitions are
// expressed as compare-and-set updates guarded by the current status, so two
// racing transitions on one record cannot both succeed.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, order_id, sender_id, receiver_id, status, sender_contact, receiver_contact, created_at`

func encodeContact(c *models.Contact) (any, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode contact: %w", err)
	}
	return string(b), nil
}

func decodeContact(s sql.NullString) (*models.Contact, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var c models.Contact
	if err := json.Unmarshal([]byte(s.String), &c); err != nil {
		return nil, fmt.Errorf("decode contact: %w", err)
	}
	return &c, nil
}

func scanRequest(row interface{ Scan(...any) error }) (*models.BuddyRequest, error) {
	var q models.BuddyRequest
	var status string
	var senderContact, receiverContact sql.NullString
	err := row.Scan(&q.ID, &q.OrderID, &q.SenderID, &q.ReceiverID, &status, &senderContact, &receiverContact, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Status = models.RequestStatus(status)
	if q.SenderContact, err = decodeContact(senderContact); err != nil {
		return nil, err
	}
	if q.ReceiverContact, err = decodeContact(receiverContact); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreatePending inserts a new pending request. The partial unique index on
// (order_id, sender_id) WHERE status='pending' makes "insert if no pending
// exists" a single atomic statement; a violation surfaces as
// ErrDuplicatePending. Terminal records for the same pair do not block.
func (r *RequestRepository) CreatePending(ctx context.Context, orderID, senderID, receiverID int64) (*models.BuddyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO buddy_requests (order_id, sender_id, receiver_id, status) VALUES (?,?,?,?)`,
		orderID, senderID, receiverID, string(models.RequestStatusPending))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicatePending
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a request by ID. Returns (nil, nil) when absent.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.BuddyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM buddy_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

// ListPendingForReceiver returns the pending requests addressed to a user,
// newest first.
func (r *RequestRepository) ListPendingForReceiver(ctx context.Context, receiverID int64) ([]*models.BuddyRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM buddy_requests WHERE receiver_id = ? AND status = ? ORDER BY created_at DESC, id DESC`,
		receiverID, string(models.RequestStatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.BuddyRequest
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ResolveReject transitions a request pending->rejected. Returns false when
// the request was no longer pending; the caller distinguishes that from an
// unknown id with a separate lookup.
func (r *RequestRepository) ResolveReject(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE buddy_requests SET status = ? WHERE id = ? AND status = ?`,
		string(models.RequestStatusRejected), id, string(models.RequestStatusPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ResolveAccept transitions a request pending->accepted, stores the exchanged
// contacts and upserts the derived connection, all in one transaction. A
// reader can therefore never observe an accepted request whose connection is
// missing. Returns false when the CAS lost (request no longer pending).
func (r *RequestRepository) ResolveAccept(ctx context.Context, id int64, senderContact, receiverContact *models.Contact) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	sc, err := encodeContact(senderContact)
	if err != nil {
		return false, err
	}
	rc, err := encodeContact(receiverContact)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE buddy_requests SET status = ?, sender_contact = ?, receiver_contact = ? WHERE id = ? AND status = ?`,
		string(models.RequestStatusAccepted), sc, rc, id, string(models.RequestStatusPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	var senderID, receiverID int64
	if err := tx.QueryRowContext(ctx, `SELECT sender_id, receiver_id FROM buddy_requests WHERE id = ?`, id).
		Scan(&senderID, &receiverID); err != nil {
		return false, err
	}
	userA, userB := senderID, receiverID
	contactA, contactB := sc, rc
	if userA > userB {
		userA, userB = userB, userA
		contactA, contactB = contactB, contactA
	}
	// Idempotent upsert: a later accept between the same pair refreshes the
	// contacts but never creates a second row.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO connections (user_a, user_b, contact_a, contact_b) VALUES (?,?,?,?)
		 ON CONFLICT(user_a, user_b) DO UPDATE SET
		   contact_a = COALESCE(excluded.contact_a, contact_a),
		   contact_b = COALESCE(excluded.contact_b, contact_b)`,
		userA, userB, contactA, contactB); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
