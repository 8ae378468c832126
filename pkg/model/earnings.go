package model

// EarningsSummary is the venue dashboard rollup. Active bookings
// (booked or completed) contribute advance and outstanding amounts;
// cancelled bookings are only counted.
type EarningsSummary struct {
	VenueID          string `json:"venue_id"`
	TodayBookings    int    `json:"today_bookings"`
	AdvanceCollected int    `json:"advance_collected"`
	PendingPayments  int    `json:"pending_payments"`
	CancelledCount   int    `json:"cancelled_count"`
}
