package model

import "time"

// BookingItem is one rental line on a booking: quantity of a catalog
// rental item reserved alongside the slots.
type BookingItem struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID string    `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	ItemID    string    `json:"item_id" bson:"item_id" validate:"required,mongodb"`
	Quantity  int       `json:"quantity" bson:"quantity" validate:"required,min=1"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// BookingItemDetail joins a line item with its catalog entry.
type BookingItemDetail struct {
	Item     *RentalItem `json:"item"`
	Quantity int         `json:"quantity"`
}
