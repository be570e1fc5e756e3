package engine

import (
	"context"

	"orderbuddy/models"
	"orderbuddy/pkg/logger"
	"orderbuddy/repository"
)

// ConnectionView answers "who is user U connected to" over the derived
// symmetric relation. Materialization is commutative and idempotent: the pair
// {A, B} is normalized before it reaches the table, so two accepted requests
// between the same users (in either direction, on different orders) still
// yield a single connection.
type ConnectionView struct {
	conns repository.ConnectionRepositoryI
	users repository.UserRepositoryI
	log   logger.ILogger
}

func NewConnectionView(conns repository.ConnectionRepositoryI, users repository.UserRepositoryI, log logger.ILogger) *ConnectionView {
	return &ConnectionView{conns: conns, users: users, log: log}
}

// Materialize upserts the connection between two users. The accept path in
// RequestLedger performs the same upsert inside the status-flip transaction;
// this method is the standalone entry point for backfills and tests.
func (v *ConnectionView) Materialize(ctx context.Context, userA, userB int64, contactA, contactB *models.Contact) error {
	if err := v.conns.Upsert(ctx, userA, userB, contactA, contactB); err != nil {
		return storeErr("materialize connection", err)
	}
	v.log.Info("connection materialized",
		logger.Int64("user_a", userA), logger.Int64("user_b", userB))
	return nil
}

// ListConnections returns every peer connected to userID, with the peer's
// name, email and the contact details they shared. Iteration order is stable
// across calls.
func (v *ConnectionView) ListConnections(ctx context.Context, userID int64) ([]models.Peer, error) {
	conns, err := v.conns.ListForUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list connections", err)
	}

	peerIDs := make([]int64, 0, len(conns))
	for _, c := range conns {
		if c.UserA == userID {
			peerIDs = append(peerIDs, c.UserB)
		} else {
			peerIDs = append(peerIDs, c.UserA)
		}
	}
	usersByID, err := v.users.GetByIDs(ctx, peerIDs)
	if err != nil {
		return nil, storeErr("hydrate peers", err)
	}

	out := make([]models.Peer, 0, len(conns))
	for _, c := range conns {
		peerID, peerContact := c.UserB, c.ContactB
		if c.UserB == userID {
			peerID, peerContact = c.UserA, c.ContactA
		}
		p := models.Peer{PeerID: peerID, Contact: peerContact}
		if u, ok := usersByID[peerID]; ok {
			p.Name = u.Name
			p.Email = u.Email
		}
		out = append(out, p)
	}
	return out, nil
}
