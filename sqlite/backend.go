package sqlite

import (
	"context"
	"fmt"

	"github.com/dioad/records"
)

const idPath = "$.id"

// DataPath returns the JSON path of a field inside a record's data, for use with the
// clause constructors, e.g. Equal(DataPath("title"), "A").
func DataPath(field string) string {
	return "$.data." + field
}

// Backend persists records in a table, one row per record.
type Backend[T any] struct {
	table *Table[records.Record[T]]
}

var _ records.Backend[struct{}] = &Backend[struct{}]{}

// NewBackend creates the table name in store together with a unique index on the
// record id.
func NewBackend[T any](ctx context.Context, store *Store, name string) (*Backend[T], error) {
	table, err := NewNamedTable[records.Record[T]](ctx, store, name)
	if err != nil {
		return nil, err
	}

	if _, err := table.CreateUniqueIndex(ctx, idPath); err != nil {
		return nil, err
	}

	return &Backend[T]{table: table}, nil
}

// Table exposes the underlying table for queries the records API does not cover.
func (b *Backend[T]) Table() *Table[records.Record[T]] {
	return b.table
}

// Load returns every record in insertion order.
func (b *Backend[T]) Load(ctx context.Context) ([]records.Record[T], error) {
	return b.table.QueryMany(ctx, All())
}

// Find returns the records matching c in insertion order.
func (b *Backend[T]) Find(ctx context.Context, c Clause) ([]records.Record[T], error) {
	return b.table.QueryMany(ctx, c)
}

// Insert adds r to the table.
func (b *Backend[T]) Insert(ctx context.Context, r records.Record[T]) error {
	if err := b.table.Insert(ctx, r); err != nil {
		return fmt.Errorf("sqlite backend: insert %s: %w", r.ID, err)
	}
	return nil
}

// Update replaces the stored record with the id of r.
func (b *Backend[T]) Update(ctx context.Context, r records.Record[T]) error {
	n, err := b.table.Update(ctx, Equal(idPath, r.ID), r)
	if err != nil {
		return fmt.Errorf("sqlite backend: update %s: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %s", records.ErrNotFound, r.ID)
	}
	return nil
}

// Delete removes the record with the given id.
func (b *Backend[T]) Delete(ctx context.Context, id string) error {
	n, err := b.table.Delete(ctx, Equal(idPath, id))
	if err != nil {
		return fmt.Errorf("sqlite backend: delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %s", records.ErrNotFound, id)
	}
	return nil
}

// Import inserts rs in a single transaction; either every record is stored or none.
func (b *Backend[T]) Import(ctx context.Context, rs []records.Record[T]) error {
	if err := b.table.InsertMany(ctx, rs); err != nil {
		return fmt.Errorf("sqlite backend: import: %w", err)
	}
	return nil
}
