package models

// Connection is the derived symmetric relation between two users, created the
// moment a buddy request between them is accepted. The pair is normalized so
// that UserA < UserB; ContactA/ContactB follow the same ordering.
type Connection struct {
	UserA     int64    `db:"user_a" json:"userA"`
	UserB     int64    `db:"user_b" json:"userB"`
	ContactA  *Contact `db:"contact_a" json:"contactA,omitempty"`
	ContactB  *Contact `db:"contact_b" json:"contactB,omitempty"`
	CreatedAt string   `db:"created_at" json:"createdAt,omitempty"`
}

// Peer is one side of a connection as seen from a given user: who the peer is
// and the contact details they shared.
type Peer struct {
	PeerID  int64    `json:"peerId"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Contact *Contact `json:"contact,omitempty"`
}
