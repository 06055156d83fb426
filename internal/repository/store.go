package repository

import (
	"context"

	"github.com/iliyamo/property-reservation/internal/model"
)

// BookingFilter narrows List results.  Empty PropertyID matches every
// property and a nil Status matches every status.
type BookingFilter struct {
	PropertyID string
	Status     *model.BookingStatus
}

// BookingStore persists bookings.  Insert never checks for overlaps;
// callers run FindOverlapping first inside the same Tx.
type BookingStore interface {
	Insert(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id uint64) (*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id uint64) error
	// FindOverlapping returns every booking of the property whose range
	// overlaps r, restricted to status when it is non-nil.
	FindOverlapping(ctx context.Context, propertyID string, r model.DateRange, status *model.BookingStatus) ([]model.Booking, error)
	List(ctx context.Context, f BookingFilter) ([]model.Booking, error)
}

// BlockStore persists blocks.
type BlockStore interface {
	Insert(ctx context.Context, b *model.Block) error
	Get(ctx context.Context, id uint64) (*model.Block, error)
	Update(ctx context.Context, b *model.Block) error
	Delete(ctx context.Context, id uint64) error
	FindOverlapping(ctx context.Context, propertyID string, r model.DateRange) ([]model.Block, error)
	// List returns the blocks of a property, or all blocks when
	// propertyID is empty.
	List(ctx context.Context, propertyID string) ([]model.Block, error)
}

// Tx is a unit of work spanning both reservation kinds.
//
// LockProperty must be called for every property whose reservations the
// unit reads for an overlap check and then writes; it blocks until no
// other unit holds the same property and keeps it held until the unit
// ends.  This is what makes check-then-write atomic per property.
type Tx interface {
	Bookings() BookingStore
	Blocks() BlockStore
	LockProperty(ctx context.Context, propertyID string) error
}

// Store is the data-access entry point used by the services.  Bookings
// and Blocks give non-transactional access suitable for reads.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Bookings() BookingStore
	Blocks() BlockStore
	Close() error
}
