package models

// Location is the geographic point attached to an order. Coordinates follow
// the GeoJSON convention used by the existing clients: [longitude, latitude].
type Location struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address,omitempty"`
}

// NewLocation builds a Point location from latitude/longitude.
func NewLocation(lat, lon float64, address string) Location {
	return Location{Type: "Point", Coordinates: [2]float64{lon, lat}, Address: address}
}

// Lat returns the latitude component.
func (l Location) Lat() float64 { return l.Coordinates[1] }

// Lon returns the longitude component.
func (l Location) Lon() float64 { return l.Coordinates[0] }

// Order represents a shared group-food order with a one-to-many relation to
// User via SharedBy. Items is stored as a JSON array in the orders table.
type Order struct {
	ID           int64    `db:"id" json:"id"`
	Restaurant   string   `db:"restaurant" json:"restaurant"`
	Items        []string `db:"items" json:"items"`
	DeliveryTime string   `db:"delivery_time" json:"deliveryTime,omitempty"`
	SharedBy     int64    `db:"shared_by" json:"sharedBy"`
	Location     Location `json:"location"`
	CreatedAt    string   `db:"created_at" json:"createdAt,omitempty"`
}

// OrderWithDistance pairs an order with its distance (meters) from a query point.
type OrderWithDistance struct {
	Order
	SharedByName string  `json:"sharedByName,omitempty"`
	Distance     float64 `json:"distance"`
}
