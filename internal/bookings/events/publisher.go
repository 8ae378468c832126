package events

import (
	"context"
	"time"

	"pitchbook/pkg/kafka"
	"pitchbook/pkg/logger"
	"pitchbook/pkg/model"
)

const (
	TopicBookings    = "pitchbook.bookings"
	TopicBookingsDLQ = "pitchbook.bookings.dlq"

	EventBookingCreated       = "booking.created"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingCompleted     = "booking.completed"
	EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is the wire payload published on booking changes. The
// booking ID doubles as the partition key so per-booking ordering holds.
type BookingEvent struct {
	BookingID      string    `json:"booking_id"`
	VenueID        string    `json:"venue_id"`
	PlayerID       string    `json:"player_id"`
	SlotIDs        []string  `json:"slot_ids"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PaymentStatus  string    `json:"payment_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. Implementations must be safe
// for concurrent use.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingStatusChanged(ctx context.Context, booking *model.Booking, previousStatus string) error
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCreated, booking, "")
}

func (p *kafkaPublisher) BookingStatusChanged(ctx context.Context, booking *model.Booking, previousStatus string) error {
	eventType := EventBookingStatusChanged
	switch booking.Status {
	case model.BookingCancelled:
		eventType = EventBookingCancelled
	case model.BookingCompleted:
		eventType = EventBookingCompleted
	}
	return p.publish(ctx, eventType, booking, previousStatus)
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking, previousStatus string) error {
	event := BookingEvent{
		BookingID:      booking.ID,
		VenueID:        booking.VenueID,
		PlayerID:       booking.PlayerID,
		SlotIDs:        booking.SlotIDs,
		Status:         booking.Status,
		PreviousStatus: previousStatus,
		PaymentStatus:  booking.PaymentStatus,
		OccurredAt:     time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventType(eventType).
		WithSource("bookings").
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
		return err
	}

	p.log.Debug("Booking event published", "event_type", eventType, "booking_id", booking.ID)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops all events. Used when event publishing is disabled
// by configuration.
type NoopPublisher struct{}

func NewNoopPublisher() Publisher {
	return NoopPublisher{}
}

func (NoopPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return nil
}

func (NoopPublisher) BookingStatusChanged(ctx context.Context, booking *model.Booking, previousStatus string) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
