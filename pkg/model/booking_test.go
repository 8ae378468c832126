package model

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{BookingPendingPayment, BookingBooked, true},
		{BookingPendingPayment, BookingCancelled, true},
		{BookingPendingPayment, BookingCompleted, false},
		{BookingBooked, BookingCompleted, true},
		{BookingBooked, BookingCancelled, true},
		{BookingBooked, BookingBooked, true},
		{BookingBooked, BookingPendingPayment, false},
		{BookingCompleted, BookingCancelled, false},
		{BookingCompleted, BookingBooked, false},
		{BookingCancelled, BookingBooked, false},
		{BookingCancelled, BookingPendingPayment, false},
		{"unknown", BookingBooked, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.expected {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}

func TestIsTerminalBookingStatus(t *testing.T) {
	if !IsTerminalBookingStatus(BookingCompleted) {
		t.Error("completed should be terminal")
	}
	if !IsTerminalBookingStatus(BookingCancelled) {
		t.Error("cancelled should be terminal")
	}
	if IsTerminalBookingStatus(BookingPendingPayment) {
		t.Error("pending_payment should not be terminal")
	}
	if IsTerminalBookingStatus(BookingBooked) {
		t.Error("booked should not be terminal")
	}
}
