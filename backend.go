package records

import "context"

// Backend persists the records of a store. The store writes every change through to
// its backend before mutating memory, so a failing backend leaves the store untouched.
//
// Update and Delete return an error wrapping ErrNotFound when the id is absent.
type Backend[T any] interface {
	// Load returns the persisted records in insertion order.
	Load(ctx context.Context) ([]Record[T], error)
	Insert(ctx context.Context, r Record[T]) error
	Update(ctx context.Context, r Record[T]) error
	Delete(ctx context.Context, id string) error
}
