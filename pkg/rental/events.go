package rental

import (
	"context"
	"time"
)

// EventType names a booking lifecycle event.
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingSettled   EventType = "booking.settled"
	EventBookingCancelled EventType = "booking.cancelled"
)

// BookingEvent is emitted after a booking mutation commits.
type BookingEvent struct {
	ID         string
	Type       EventType
	Booking    Booking
	OccurredAt time.Time
}

// EventPublisher delivers booking events to an external channel.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}
