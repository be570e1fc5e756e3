package models

// RequestStatus represents the lifecycle state of a buddy request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Terminal reports whether the status admits no further transition.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// Contact holds the details exchanged between two users once a request is accepted.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// BuddyRequest represents a proposal from Sender to join Receiver's order.
// Receiver always equals the order owner at creation time. Contact fields are
// only filled once accepted.
type BuddyRequest struct {
	ID              int64         `db:"id" json:"id"`
	OrderID         int64         `db:"order_id" json:"order"`
	SenderID        int64         `db:"sender_id" json:"sender"`
	ReceiverID      int64         `db:"receiver_id" json:"receiver"`
	Status          RequestStatus `db:"status" json:"status"`
	SenderContact   *Contact      `db:"sender_contact" json:"senderContact,omitempty"`
	ReceiverContact *Contact      `db:"receiver_contact" json:"receiverContact,omitempty"`
	CreatedAt       string        `db:"created_at" json:"createdAt,omitempty"`
}
