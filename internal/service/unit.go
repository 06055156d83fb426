package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/lock"
	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/repository"
)

// EventPublisher receives committed reservation changes.  Implementations
// must not block for long; failures are logged by the services and never
// undo the change.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.ReservationEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ReservationEvent) error { return nil }

// Deps bundles the collaborators shared by BookingService and BlockService.
// Locker, Events, Logger and Now are optional.
type Deps struct {
	Store  repository.Store
	Locker lock.Locker
	Events EventPublisher
	Logger *logrus.Logger
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Store == nil {
		panic("service: nil store")
	}
	if d.Locker == nil {
		d.Locker = lock.Nop{}
	}
	if d.Events == nil {
		d.Events = NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// run executes fn as one atomic overlap-check-then-write step for the
// given properties: it takes the Locker, opens a unit of work and locks
// each property inside it before calling fn.
func (d Deps) run(ctx context.Context, propertyIDs []string, fn func(ctx context.Context, tx repository.Tx) error) error {
	keys := uniqueSorted(propertyIDs)
	unlock, err := d.Locker.Lock(ctx, keys...)
	if err != nil {
		return fmt.Errorf("lock properties: %w", err)
	}
	defer unlock()

	return d.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, k := range keys {
			if err := tx.LockProperty(ctx, k); err != nil {
				return fmt.Errorf("lock property %s: %w", k, err)
			}
		}
		return fn(ctx, tx)
	})
}

func (d Deps) publish(ctx context.Context, ev model.ReservationEvent) {
	if err := d.Events.Publish(ctx, ev); err != nil {
		d.Logger.WithError(err).WithFields(logrus.Fields{
			"event":          ev.Type,
			"reservation_id": ev.ReservationID,
			"property_id":    ev.PropertyID,
		}).Warn("publish reservation event failed")
	}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// checkBookingRange rejects r when an active booking (other than
// excludeID) or any block on the property overlaps it.  Bookings are
// checked first; the first hit decides the reported conflict kind.
func checkBookingRange(ctx context.Context, tx repository.Tx, propertyID string, r model.DateRange, excludeID uint64) error {
	active := model.BookingActive
	bookings, err := tx.Bookings().FindOverlapping(ctx, propertyID, r, &active)
	if err != nil {
		return fmt.Errorf("find overlapping bookings: %w", err)
	}
	if ids := bookingIDsExcept(bookings, excludeID); len(ids) > 0 {
		return &OverlapError{Subject: model.KindBooking, Conflict: model.KindBooking, ConflictIDs: ids}
	}
	blocks, err := tx.Blocks().FindOverlapping(ctx, propertyID, r)
	if err != nil {
		return fmt.Errorf("find overlapping blocks: %w", err)
	}
	if ids := blockIDsExcept(blocks, 0); len(ids) > 0 {
		return &OverlapError{Subject: model.KindBooking, Conflict: model.KindBlock, ConflictIDs: ids}
	}
	return nil
}

// checkBlockRange is the block-side counterpart: active bookings first,
// then other blocks (excludeID is the block being updated).
func checkBlockRange(ctx context.Context, tx repository.Tx, propertyID string, r model.DateRange, excludeID uint64) error {
	active := model.BookingActive
	bookings, err := tx.Bookings().FindOverlapping(ctx, propertyID, r, &active)
	if err != nil {
		return fmt.Errorf("find overlapping bookings: %w", err)
	}
	if ids := bookingIDsExcept(bookings, 0); len(ids) > 0 {
		return &OverlapError{Subject: model.KindBlock, Conflict: model.KindBooking, ConflictIDs: ids}
	}
	blocks, err := tx.Blocks().FindOverlapping(ctx, propertyID, r)
	if err != nil {
		return fmt.Errorf("find overlapping blocks: %w", err)
	}
	if ids := blockIDsExcept(blocks, excludeID); len(ids) > 0 {
		return &OverlapError{Subject: model.KindBlock, Conflict: model.KindBlock, ConflictIDs: ids}
	}
	return nil
}

// IDs are assigned from 1, so excludeID 0 excludes nothing.
func bookingIDsExcept(bs []model.Booking, excludeID uint64) []uint64 {
	var ids []uint64
	for _, b := range bs {
		if b.ID != excludeID {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func blockIDsExcept(bs []model.Block, excludeID uint64) []uint64 {
	var ids []uint64
	for _, b := range bs {
		if b.ID != excludeID {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
