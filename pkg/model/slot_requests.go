package model

// SlotGenerateRequest asks for a venue's slot grid to be materialized
// for one date. Generation is idempotent per (venue, date, start_time).
type SlotGenerateRequest struct {
	VenueID string `json:"venue_id" validate:"required,mongodb"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SlotLockRequest places or refreshes a soft lock on a slot for a player.
type SlotLockRequest struct {
	SlotID   string `json:"slot_id" validate:"required,mongodb"`
	PlayerID string `json:"player_id" validate:"required,mongodb"`
}

// SlotUnlockRequest releases a player's soft lock. Releasing a lock the
// player does not hold is a no-op.
type SlotUnlockRequest struct {
	SlotID   string `json:"slot_id" validate:"required,mongodb"`
	PlayerID string `json:"player_id" validate:"required,mongodb"`
}

// AcquireResult reports the outcome of a lock acquisition: the slot just
// locked, the player's full live selection afterwards, and whether prior
// holds were dropped because the new slot broke selection continuity.
type AcquireResult struct {
	Slot           *Slot   `json:"slot"`
	Held           []*Slot `json:"held"`
	SelectionReset bool    `json:"selection_reset"`
}
