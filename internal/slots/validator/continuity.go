package validator

import (
	"errors"
	"sort"

	"pitchbook/pkg/model"
)

var (
	ErrEmptySelection = errors.New("selection contains no slots")

	ErrDuplicateSlot = errors.New("selection contains the same slot twice")

	ErrMixedVenues = errors.New("selection spans more than one venue")

	ErrMultipleDates = errors.New("selection spans more than one date")

	ErrNotContiguous = errors.New("selection has a gap between consecutive slots")
)

func sortByStart(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})
}

// ValidateSelection checks that a slot selection forms one unbroken
// block: a single venue, a single date, no duplicates, and each slot
// ending exactly where the next begins. The slice is sorted by start
// time as a side effect.
func ValidateSelection(slots []*model.Slot) error {
	if len(slots) == 0 {
		return ErrEmptySelection
	}

	seen := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if seen[slot.ID] {
			return ErrDuplicateSlot
		}
		seen[slot.ID] = true

		if slot.VenueID != slots[0].VenueID {
			return ErrMixedVenues
		}
		if slot.Date != slots[0].Date {
			return ErrMultipleDates
		}
	}

	sortByStart(slots)

	for i := 1; i < len(slots); i++ {
		if slots[i-1].EndTime != slots[i].StartTime {
			return ErrNotContiguous
		}
	}

	return nil
}

// Contiguous reports whether already sorted same-date slots form one
// unbroken block. Used to decide whether a newly locked slot extends the
// player's current selection or starts a fresh one.
func Contiguous(slots []*model.Slot) bool {
	for i := 1; i < len(slots); i++ {
		if slots[i-1].Date != slots[i].Date {
			return false
		}
		if slots[i-1].EndTime != slots[i].StartTime {
			return false
		}
	}
	return true
}
