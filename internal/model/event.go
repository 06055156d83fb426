package model

import "time"

// Kind names a reservation variant.
type Kind string

const (
	KindBooking Kind = "booking"
	KindBlock   Kind = "block"
)

// EventType identifies a reservation lifecycle transition.
type EventType string

const (
	EventBookingCreated  EventType = "booking.created"
	EventBookingUpdated  EventType = "booking.updated"
	EventBookingCanceled EventType = "booking.canceled"
	EventBookingRebooked EventType = "booking.rebooked"
	EventBookingDeleted  EventType = "booking.deleted"
	EventBlockCreated    EventType = "block.created"
	EventBlockUpdated    EventType = "block.updated"
	EventBlockDeleted    EventType = "block.deleted"
)

// ReservationEvent describes a committed change to a booking or block.
// Status is empty for blocks.
type ReservationEvent struct {
	Type          EventType
	Kind          Kind
	ReservationID uint64
	PropertyID    string
	Range         DateRange
	Status        BookingStatus
	OccurredAt    time.Time
}

// NewBookingEvent snapshots b for the given transition.
func NewBookingEvent(t EventType, b *Booking, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          t,
		Kind:          KindBooking,
		ReservationID: b.ID,
		PropertyID:    b.PropertyID,
		Range:         b.Range,
		Status:        b.Status,
		OccurredAt:    at.UTC(),
	}
}

// NewBlockEvent snapshots b for the given transition.
func NewBlockEvent(t EventType, b *Block, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          t,
		Kind:          KindBlock,
		ReservationID: b.ID,
		PropertyID:    b.PropertyID,
		Range:         b.Range,
		OccurredAt:    at.UTC(),
	}
}
