package model

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a guest booking.
type BookingStatus string

const (
	// BookingActive bookings reserve their date range.
	BookingActive BookingStatus = "ACTIVE"
	// BookingCanceled bookings keep their record but no longer reserve
	// anything; they can be rebooked.
	BookingCanceled BookingStatus = "CANCELED"
)

// ParseBookingStatus converts a raw status string into a BookingStatus.
// Matching is case-insensitive; the second result is false for unknown
// values.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case BookingActive:
		return BookingActive, true
	case BookingCanceled:
		return BookingCanceled, true
	}
	return "", false
}

// Booking is a guest reservation of a property for a date range.
//
// Fields:
//  ID         – store-assigned identifier, immutable after insert.
//  PropertyID – property being booked.
//  GuestName  – display name of the guest.
//  GuestEmail – contact address of the guest.
//  Range      – reserved nights, half-open.
//  Status     – ACTIVE or CANCELED.
//  CreatedAt  – creation timestamp (UTC).
//  UpdatedAt  – last modification timestamp (UTC).
type Booking struct {
	ID         uint64        // bookings.id
	PropertyID string        // bookings.property_id
	GuestName  string        // bookings.guest_name
	GuestEmail string        // bookings.guest_email
	Range      DateRange     // bookings.start_date, bookings.end_date
	Status     BookingStatus // bookings.status
	CreatedAt  time.Time     // bookings.created_at
	UpdatedAt  time.Time     // bookings.updated_at
}

// Active reports whether the booking currently reserves its range.
func (b *Booking) Active() bool { return b.Status == BookingActive }
