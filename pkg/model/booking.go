package model

import "time"

const (
	BookingPendingPayment = "pending_payment"
	BookingBooked         = "booked"
	BookingCompleted      = "completed"
	BookingCancelled      = "cancelled"
)

const (
	PaymentStatusPending       = "pending_payment"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusFullyPaid     = "fully_paid"
)

const (
	PaymentTypeAdvance    = "advance"
	PaymentTypePayAtVenue = "pay_at_venue"
)

const (
	CancelledByPlayer = "cancelled_by_player"
	CancelledByVenue  = "cancelled_by_venue"
)

// Booking spans one or more contiguous same-date slots. Status and
// PaymentStatus are deliberately independent axes: both are stored and
// mutated separately, and "pending_payment" is a legal value on each.
type Booking struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	VenueID           string    `json:"venue_id" bson:"venue_id" validate:"required,mongodb"`
	SlotIDs           []string  `json:"slot_ids" bson:"slot_ids" validate:"required,min=1,dive,mongodb"`
	PlayerName        string    `json:"player_name" bson:"player_name" validate:"required,min=2,max=100"`
	Phone             string    `json:"phone" bson:"phone" validate:"required"`
	PlayersCount      int       `json:"players_count" bson:"players_count" validate:"required,min=1"`
	PaymentType       string    `json:"payment_type" bson:"payment_type" validate:"required,oneof=advance pay_at_venue"`
	AdvanceAmount     int       `json:"advance_amount" bson:"advance_amount" validate:"min=0"`
	RulesAcknowledged bool      `json:"rules_acknowledged" bson:"rules_acknowledged"`
	PaymentStatus     string    `json:"payment_status" bson:"payment_status" validate:"required,oneof=pending_payment partially_paid fully_paid"`
	PlayerID          string    `json:"player_id" bson:"player_id" validate:"required,mongodb"`
	Status            string    `json:"status" bson:"status" validate:"required,oneof=pending_payment booked completed cancelled"`
	CancelReason      string    `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// BookingRequest is the commit payload. Items maps rental item id to
// requested quantity; zero quantities are dropped at commit time.
type BookingRequest struct {
	VenueID           string         `json:"venue_id" validate:"required,mongodb"`
	SlotIDs           []string       `json:"slot_ids" validate:"required,min=1,dive,mongodb"`
	PlayerName        string         `json:"player_name" validate:"required,min=2,max=100"`
	Phone             string         `json:"phone" validate:"required"`
	PlayersCount      int            `json:"players_count" validate:"required,min=1"`
	PaymentType       string         `json:"payment_type" validate:"required,oneof=advance pay_at_venue"`
	AdvanceAmount     int            `json:"advance_amount" validate:"omitempty,min=0"`
	RulesAcknowledged bool           `json:"rules_acknowledged"`
	PlayerID          string         `json:"player_id" validate:"required,mongodb"`
	Items             map[string]int `json:"items,omitempty" validate:"omitempty"`
}

// BookingStatusUpdate carries a lifecycle transition. Every field is
// optional; an empty update is rejected by the service.
type BookingStatusUpdate struct {
	Status        string `json:"status,omitempty" validate:"omitempty,oneof=pending_payment booked completed cancelled"`
	PaymentStatus string `json:"payment_status,omitempty" validate:"omitempty,oneof=pending_payment partially_paid fully_paid"`
	CancelReason  string `json:"cancel_reason,omitempty" validate:"omitempty,max=500"`
}

// PublicCancelRequest is the guest cancellation payload; the phone must
// match the one stored on the booking.
type PublicCancelRequest struct {
	BookingID string `json:"booking_id" validate:"required,mongodb"`
	Phone     string `json:"phone" validate:"required"`
	Reason    string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// BookingDetail is a booking with its referenced slots and rental line
// items resolved, the shape handed back to clients.
type BookingDetail struct {
	Booking     *Booking             `json:"booking"`
	Slots       []*Slot              `json:"slots"`
	RentalItems []*BookingItemDetail `json:"rental_items,omitempty"`
}

var bookingTransitions = map[string]map[string]bool{
	BookingPendingPayment: {
		BookingBooked:    true,
		BookingCancelled: true,
	},
	BookingBooked: {
		BookingCompleted: true,
		BookingCancelled: true,
		// mark-paid keeps the booking in "booked" while flipping the
		// payment status to fully_paid
		BookingBooked: true,
	},
	BookingCompleted: {},
	BookingCancelled: {},
}

// CanTransition reports whether a booking may move from one status to
// another. Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	allowed, ok := bookingTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// IsTerminalBookingStatus reports whether no further transitions are
// allowed out of the given status.
func IsTerminalBookingStatus(status string) bool {
	return status == BookingCompleted || status == BookingCancelled
}
