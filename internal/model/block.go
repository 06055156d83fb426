package model

import "time"

// Block is an owner-created date range during which a property cannot be
// booked (maintenance, personal use).  Blocks have no status: a stored
// block is always in force until it is deleted.
type Block struct {
	ID         uint64    // blocks.id
	PropertyID string    // blocks.property_id
	Reason     string    // blocks.reason
	Range      DateRange // blocks.start_date, blocks.end_date
	CreatedAt  time.Time // blocks.created_at
	UpdatedAt  time.Time // blocks.updated_at
}
