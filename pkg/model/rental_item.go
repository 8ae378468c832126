package model

import "time"

// RentalItem is a venue's rentable equipment catalog entry (read-only
// for the booking core).
type RentalItem struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	VenueID   string    `json:"venue_id" bson:"venue_id"`
	Name      string    `json:"name" bson:"name"`
	RentPrice int       `json:"rent_price" bson:"rent_price"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
