package records

import "errors"

var (
	// ErrNotFound is returned when an operation references an id the store does not hold.
	ErrNotFound = errors.New("records: record not found")
	// ErrInvalidPatch is returned when a patch cannot be merged into the record data.
	ErrInvalidPatch = errors.New("records: invalid patch")
	// ErrIDCollision is returned when the id generator keeps producing ids already in use.
	ErrIDCollision = errors.New("records: could not allocate a unique id")
)
