package engine

import (
	"context"
	"errors"
	"fmt"

	"orderbuddy/models"
	"orderbuddy/pkg/logger"
	"orderbuddy/repository"
)

// RequestLedger owns the buddy-request lifecycle:
//
//	pending -> accepted
//	pending -> rejected
//
// Both target states are terminal. Transitions are compare-and-set updates in
// the store, so two racing resolutions of the same request cannot both win.
type RequestLedger struct {
	requests repository.RequestRepositoryI
	users    repository.UserRepositoryI
	catalog  *OrderCatalog
	log      logger.ILogger
}

func NewRequestLedger(requests repository.RequestRepositoryI, users repository.UserRepositoryI, catalog *OrderCatalog, log logger.ILogger) *RequestLedger {
	return &RequestLedger{requests: requests, users: users, catalog: catalog, log: log}
}

// SendRequest creates a pending request from senderID against an order. The
// receiver is the order's owner. A sender may retry after a rejection, but at
// most one pending request per (order, sender) pair can exist at a time.
func (l *RequestLedger) SendRequest(ctx context.Context, senderID, orderID int64) (*models.BuddyRequest, error) {
	order, err := l.catalog.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SharedBy == senderID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrSelfMatch)
	}
	req, err := l.requests.CreatePending(ctx, orderID, senderID, order.SharedBy)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrDuplicatePending)
		}
		return nil, storeErr("create request", err)
	}
	l.log.Info("buddy request sent",
		logger.Int64("request_id", req.ID), logger.Int64("order_id", orderID),
		logger.Int64("sender_id", senderID), logger.Int64("receiver_id", order.SharedBy))
	return req, nil
}

// Accept resolves a pending request to accepted. Only the receiver may call
// it; the receiver's contact is stored alongside the sender's registered
// email, and the derived connection is materialized in the same store
// transaction as the status flip. A request that already left pending yields
// ErrAlreadyResolved even under concurrent accepts: the CAS admits exactly
// one winner.
func (l *RequestLedger) Accept(ctx context.Context, requestID, actingUserID int64, contact *models.Contact) (*models.BuddyRequest, error) {
	req, err := l.guard(ctx, requestID, actingUserID)
	if err != nil {
		return nil, err
	}

	senderContact := &models.Contact{}
	if sender, err := l.users.GetByID(ctx, req.SenderID); err != nil {
		return nil, storeErr("get sender", err)
	} else if sender != nil {
		senderContact.Email = sender.Email
	}

	ok, err := l.requests.ResolveAccept(ctx, requestID, senderContact, contact)
	if err != nil {
		return nil, storeErr("accept request", err)
	}
	if !ok {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrAlreadyResolved)
	}
	l.log.Info("buddy request accepted",
		logger.Int64("request_id", requestID),
		logger.Int64("sender_id", req.SenderID), logger.Int64("receiver_id", req.ReceiverID))
	return l.requests.GetByID(ctx, requestID)
}

// Reject resolves a pending request to rejected. No connection is created,
// and the sender is free to send a fresh request afterwards.
func (l *RequestLedger) Reject(ctx context.Context, requestID, actingUserID int64) (*models.BuddyRequest, error) {
	req, err := l.guard(ctx, requestID, actingUserID)
	if err != nil {
		return nil, err
	}
	ok, err := l.requests.ResolveReject(ctx, requestID)
	if err != nil {
		return nil, storeErr("reject request", err)
	}
	if !ok {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrAlreadyResolved)
	}
	l.log.Info("buddy request rejected",
		logger.Int64("request_id", requestID),
		logger.Int64("sender_id", req.SenderID), logger.Int64("receiver_id", req.ReceiverID))
	return l.requests.GetByID(ctx, requestID)
}

// ListPendingForReceiver returns a user's inbox of pending requests, newest
// first.
func (l *RequestLedger) ListPendingForReceiver(ctx context.Context, userID int64) ([]*models.BuddyRequest, error) {
	out, err := l.requests.ListPendingForReceiver(ctx, userID)
	if err != nil {
		return nil, storeErr("list pending requests", err)
	}
	return out, nil
}

// guard performs the shared existence, authorization and terminal-state
// checks for Accept and Reject. The terminal check here is advisory (it gives
// a precise error before the CAS); the CAS itself remains the authority.
func (l *RequestLedger) guard(ctx context.Context, requestID, actingUserID int64) (*models.BuddyRequest, error) {
	req, err := l.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, storeErr("get request", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrNotFound)
	}
	if req.ReceiverID != actingUserID {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrForbidden)
	}
	if req.Status.Terminal() {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrAlreadyResolved)
	}
	return req, nil
}
