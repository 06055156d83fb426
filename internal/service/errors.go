package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/repository"
)

var (
	// ErrInvalidRange means the start date is not strictly before the end date.
	ErrInvalidRange = errors.New("startDate must be before endDate")
	// ErrOverlap means the range conflicts with an active booking or a block.
	ErrOverlap = errors.New("overlapping reservation")
	// ErrNotFound means the identifier does not resolve to a stored record.
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidState means the booking's status forbids the operation.
	ErrInvalidState = errors.New("invalid booking state")
	// ErrBusy means the record kept changing property under concurrent
	// updates; the caller may retry.
	ErrBusy = errors.New("reservation changed concurrently, retry later")
)

// errMoved aborts a unit of work whose record was moved to another
// property after the properties to lock were chosen.
var errMoved = errors.New("record moved to another property")

// maxMoveRetries bounds how often mutate re-locks after errMoved.
const maxMoveRetries = 3

// OverlapError reports which kind of reservation blocked the operation.
// It matches ErrOverlap with errors.Is.
type OverlapError struct {
	Subject     model.Kind // kind being created or changed
	Conflict    model.Kind // kind that was hit first
	ConflictIDs []uint64
}

func (e *OverlapError) Error() string {
	target := string(e.Conflict)
	if e.Subject == model.KindBlock && e.Conflict == model.KindBooking {
		target = "active booking"
	}
	return fmt.Sprintf("%s overlaps with an existing %s", e.Subject, target)
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

func invalidState(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, msg)
}

// lookupErr annotates a store lookup failure with the record it was for.
func lookupErr(kind model.Kind, id uint64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", kind, id, err)
}
