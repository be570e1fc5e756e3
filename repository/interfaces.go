package repository

import (
	"context"

	"orderbuddy/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListBySharedBy(ctx context.Context, userID int64) ([]*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	Delete(ctx context.Context, id int64) error
}

// RequestRepositoryI defines the atomic primitives backing the buddy-request
// state machine.
type RequestRepositoryI interface {
	CreatePending(ctx context.Context, orderID, senderID, receiverID int64) (*models.BuddyRequest, error)
	GetByID(ctx context.Context, id int64) (*models.BuddyRequest, error)
	ListPendingForReceiver(ctx context.Context, receiverID int64) ([]*models.BuddyRequest, error)
	ResolveAccept(ctx context.Context, id int64, senderContact, receiverContact *models.Contact) (bool, error)
	ResolveReject(ctx context.Context, id int64) (bool, error)
}

// ConnectionRepositoryI defines operations on the derived connection relation.
type ConnectionRepositoryI interface {
	Upsert(ctx context.Context, userA, userB int64, contactA, contactB *models.Contact) error
	ListForUser(ctx context.Context, userID int64) ([]*models.Connection, error)
}
