// Package service holds the reservation rules: the booking state machine
// and the block lifecycle.  Both services share one overlap rule (a
// candidate range must not overlap any active booking or any block of the
// same property) and run every check-then-write as a single locked unit
// of work.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/repository"
)

// BookingInput carries the caller-editable fields of a booking.
type BookingInput struct {
	PropertyID string
	GuestName  string
	GuestEmail string
	Range      model.DateRange
}

// BookingService implements the booking state machine:
//
//	create ──> ACTIVE ──cancel──> CANCELED ──rebook──> ACTIVE
//	            │  ▲                  │
//	            └──┘ update           └── delete (any state)
type BookingService struct {
	deps Deps
}

func NewBookingService(d Deps) *BookingService {
	return &BookingService{deps: d.withDefaults()}
}

// Create stores a new ACTIVE booking after checking the range against
// active bookings and then blocks of the property.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (*model.Booking, error) {
	if !in.Range.Valid() {
		return nil, ErrInvalidRange
	}
	b := &model.Booking{
		PropertyID: in.PropertyID,
		GuestName:  in.GuestName,
		GuestEmail: in.GuestEmail,
		Range:      in.Range,
		Status:     model.BookingActive,
	}
	err := s.deps.run(ctx, []string{in.PropertyID}, func(ctx context.Context, tx repository.Tx) error {
		if err := checkBookingRange(ctx, tx, in.PropertyID, in.Range, 0); err != nil {
			return err
		}
		if err := tx.Bookings().Insert(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(b).Info("booking created")
	s.deps.publish(ctx, model.NewBookingEvent(model.EventBookingCreated, b, s.deps.Now()))
	return b, nil
}

// Get returns the booking with the given ID.
func (s *BookingService) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.deps.Store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, lookupErr(model.KindBooking, id, err)
	}
	return b, nil
}

// List returns the bookings matching f, ordered by start date.
func (s *BookingService) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	bs, err := s.deps.Store.Bookings().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bs, nil
}

// Update replaces the property, guest fields and range of an ACTIVE
// booking.  The booking itself is excluded from the overlap check, so
// keeping or shrinking the current range never conflicts.
func (s *BookingService) Update(ctx context.Context, id uint64, in BookingInput) (*model.Booking, error) {
	if !in.Range.Valid() {
		return nil, ErrInvalidRange
	}
	b, err := s.mutate(ctx, id, []string{in.PropertyID}, func(ctx context.Context, tx repository.Tx, b *model.Booking) error {
		if b.Status == model.BookingCanceled {
			return invalidState("cannot update a canceled booking")
		}
		if err := checkBookingRange(ctx, tx, in.PropertyID, in.Range, b.ID); err != nil {
			return err
		}
		b.PropertyID = in.PropertyID
		b.GuestName = in.GuestName
		b.GuestEmail = in.GuestEmail
		b.Range = in.Range
		return tx.Bookings().Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.log(b).Info("booking updated")
	s.deps.publish(ctx, model.NewBookingEvent(model.EventBookingUpdated, b, s.deps.Now()))
	return b, nil
}

// Cancel moves an ACTIVE booking to CANCELED, releasing its range.
func (s *BookingService) Cancel(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx repository.Tx, b *model.Booking) error {
		if b.Status == model.BookingCanceled {
			return invalidState("booking is already canceled")
		}
		b.Status = model.BookingCanceled
		return tx.Bookings().Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.log(b).Info("booking canceled")
	s.deps.publish(ctx, model.NewBookingEvent(model.EventBookingCanceled, b, s.deps.Now()))
	return b, nil
}

// Rebook reactivates a CANCELED booking on its existing range, provided
// nothing has taken that range in the meantime.
func (s *BookingService) Rebook(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx repository.Tx, b *model.Booking) error {
		if b.Status != model.BookingCanceled {
			return invalidState("only canceled bookings can be rebooked")
		}
		if err := checkBookingRange(ctx, tx, b.PropertyID, b.Range, b.ID); err != nil {
			return err
		}
		b.Status = model.BookingActive
		return tx.Bookings().Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.log(b).Info("booking rebooked")
	s.deps.publish(ctx, model.NewBookingEvent(model.EventBookingRebooked, b, s.deps.Now()))
	return b, nil
}

// Delete removes a booking in any status.
func (s *BookingService) Delete(ctx context.Context, id uint64) error {
	b, err := s.mutate(ctx, id, nil, func(ctx context.Context, tx repository.Tx, b *model.Booking) error {
		return tx.Bookings().Delete(ctx, b.ID)
	})
	if err != nil {
		return err
	}
	s.log(b).Info("booking deleted")
	s.deps.publish(ctx, model.NewBookingEvent(model.EventBookingDeleted, b, s.deps.Now()))
	return nil
}

// mutate loads booking id and applies fn to it inside a unit of work that
// holds the booking's property plus any extra properties.  The booking is
// read once before locking to learn its property and again inside the
// unit, where fn sees the authoritative copy.  When a concurrent update
// moved it in between, the unit is abandoned and retried with the new
// property so locks are always taken in sorted order.
func (s *BookingService) mutate(ctx context.Context, id uint64, extra []string, fn func(ctx context.Context, tx repository.Tx, b *model.Booking) error) (*model.Booking, error) {
	for attempt := 1; ; attempt++ {
		out, err := s.tryMutate(ctx, id, extra, fn)
		if !errors.Is(err, errMoved) {
			return out, err
		}
		if attempt >= maxMoveRetries {
			return nil, fmt.Errorf("%s %d: %w", model.KindBooking, id, ErrBusy)
		}
		s.deps.Logger.WithFields(logrus.Fields{"booking_id": id, "attempt": attempt}).
			Debug("booking moved during update; retrying")
	}
}

func (s *BookingService) tryMutate(ctx context.Context, id uint64, extra []string, fn func(ctx context.Context, tx repository.Tx, b *model.Booking) error) (*model.Booking, error) {
	current, err := s.deps.Store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, lookupErr(model.KindBooking, id, err)
	}
	var out *model.Booking
	err = s.deps.run(ctx, append([]string{current.PropertyID}, extra...), func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			return lookupErr(model.KindBooking, id, err)
		}
		if b.PropertyID != current.PropertyID {
			return errMoved
		}
		if err := fn(ctx, tx, b); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return lookupErr(model.KindBooking, id, err)
			}
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) log(b *model.Booking) *logrus.Entry {
	return s.deps.Logger.WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"property_id": b.PropertyID,
		"range":       b.Range.String(),
		"status":      b.Status,
	})
}
