// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// depending on a particular storage driver.
package repository

import "errors"

// ErrNotFound is returned when a record with the requested identifier
// does not exist.  Both the MySQL and the in-memory stores translate
// their native "no rows" conditions into this value.
var ErrNotFound = errors.New("not found")
