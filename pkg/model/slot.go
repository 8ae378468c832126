package model

import "time"

const (
	SlotAvailable = "available"
	SlotReserved  = "reserved"
	SlotBooked    = "booked"
	SlotBlocked   = "blocked"
	SlotPending   = "pending"
)

// Wall-clock layouts used across slot storage. Both sort correctly as
// plain strings, which the repositories and continuity checks rely on.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Slot is one bookable time unit of a venue on one date. The lock
// fields are only meaningful while Status is "reserved"; everywhere
// else they are cleared.
type Slot struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	VenueID   string     `json:"venue_id" bson:"venue_id" validate:"required,mongodb"`
	Date      string     `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	StartTime string     `json:"start_time" bson:"start_time" validate:"required,datetime=15:04"`
	EndTime   string     `json:"end_time" bson:"end_time" validate:"required,datetime=15:04"`
	Price     int        `json:"price" bson:"price" validate:"min=0"`
	Status    string     `json:"status" bson:"status" validate:"required,oneof=available reserved booked blocked pending"`
	LockedBy  string     `json:"locked_by,omitempty" bson:"locked_by,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty" bson:"locked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// SlotUpdate is the venue-facing manual edit surface: reprice a slot or
// toggle it between available and blocked. Nothing else is editable.
type SlotUpdate struct {
	Price  *int   `json:"price,omitempty" validate:"omitempty,min=0"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=available blocked"`
}

// LockExpired reports whether a reserved slot's lock has aged out. A
// reserved slot without a lock timestamp is treated as expired.
func (s *Slot) LockExpired(now time.Time, ttl time.Duration) bool {
	if s.Status != SlotReserved {
		return false
	}
	if s.LockedAt == nil {
		return true
	}
	return now.Sub(*s.LockedAt) >= ttl
}

// EffectiveStatus is the status a caller should act on at this instant:
// a reserved slot whose lock has expired counts as available even
// before the sweep materializes that in storage.
func (s *Slot) EffectiveStatus(now time.Time, ttl time.Duration) string {
	if s.LockExpired(now, ttl) {
		return SlotAvailable
	}
	return s.Status
}

// HeldBy reports whether playerID currently holds a live lock on s.
func (s *Slot) HeldBy(playerID string, now time.Time, ttl time.Duration) bool {
	return s.Status == SlotReserved && s.LockedBy == playerID && !s.LockExpired(now, ttl)
}

// InPast reports whether the slot's start has already elapsed. Earlier
// dates are past outright; on the slot's own date the start time is
// compared against the wall clock.
func (s *Slot) InPast(now time.Time) bool {
	today := now.Format(DateLayout)
	if s.Date < today {
		return true
	}
	if s.Date > today {
		return false
	}
	return s.StartTime < now.Format(TimeLayout)
}
