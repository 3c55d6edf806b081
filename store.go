package records

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"
)

// maxIDAttempts bounds how many times Create asks the generator for a fresh id.
const maxIDAttempts = 16

// Store is an ordered in-memory collection of records. It is the only owner of the
// records it holds; every value handed out is a copy.
//
// A Store may be backed by a Backend, in which case every change is written through
// before memory is updated.
type Store[T any] struct {
	mu      sync.RWMutex
	records []Record[T]
	index   map[string]int

	backend     Backend[T]
	ids         IDGenerator
	now         func() time.Time
	newestFirst bool
	logger      *slog.Logger
	clone       func(T) T
}

// NewStore creates an empty store with no backend.
func NewStore[T any](opts ...Option) *Store[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	clone, ok := cloner[T](o.clone)
	if !ok {
		panic(fmt.Sprintf("records: WithCloner got %T, store holds %v", o.clone, reflect.TypeFor[T]()))
	}

	s := &Store[T]{
		index:       map[string]int{},
		ids:         o.ids,
		now:         o.now,
		newestFirst: o.newestFirst,
		logger:      o.logger,
		clone:       clone,
	}
	return s
}

// Open creates a store backed by b and loads the records b already holds.
func Open[T any](ctx context.Context, b Backend[T], opts ...Option) (*Store[T], error) {
	s := NewStore[T](opts...)

	loaded, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("records store: load: %w", err)
	}

	ids := make([]string, 0, len(loaded))
	for _, r := range loaded {
		if _, ok := s.index[r.ID]; ok {
			return nil, fmt.Errorf("records store: load: duplicate id %s", r.ID)
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
		ids = append(ids, r.ID)
	}

	if sd, ok := s.ids.(seeder); ok {
		sd.Seed(ids)
	}

	s.backend = b
	s.logger.Debug("records store opened", "records", len(s.records))
	return s, nil
}

// cloner picks the copy function for T. It reports false when c is set but is not
// a func(T) T.
func cloner[T any](c any) (func(T) T, bool) {
	if c != nil {
		fn, ok := c.(func(T) T)
		if !ok {
			return nil, false
		}
		if fn != nil {
			return fn, true
		}
	}
	if fn, ok := any(Fields.Clone).(func(T) T); ok {
		return fn, true
	}
	return func(v T) T { return v }, true
}

func (s *Store[T]) copy(r Record[T]) Record[T] {
	r.Data = s.clone(r.Data)
	return r
}

// stampPrecision is the finest resolution every backend keeps (Postgres stores
// microseconds).
const stampPrecision = time.Microsecond

// stamp returns the current time in UTC truncated to stampPrecision, so stamps
// compare equal after a round trip through a backend.
func (s *Store[T]) stamp() time.Time {
	return s.now().UTC().Truncate(stampPrecision)
}

func (s *Store[T]) newID() (string, error) {
	for range maxIDAttempts {
		id := s.ids.NewID()
		if _, ok := s.index[id]; !ok && id != "" {
			return id, nil
		}
	}
	return "", ErrIDCollision
}

func notFound(id string) error {
	return fmt.Errorf("%w: id %s", ErrNotFound, id)
}

// Create stores data under a newly allocated id and returns the new record.
func (s *Store[T]) Create(ctx context.Context, data T) (Record[T], error) {
	if err := ctx.Err(); err != nil {
		return Record[T]{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newID()
	if err != nil {
		return Record[T]{}, err
	}

	now := s.stamp()
	r := Record[T]{
		ID:      id,
		Data:    s.clone(data),
		Created: now,
		Updated: now,
	}

	if s.backend != nil {
		if err := s.backend.Insert(ctx, s.copy(r)); err != nil {
			return Record[T]{}, fmt.Errorf("records store: create %s: %w", id, err)
		}
	}

	s.index[id] = len(s.records)
	s.records = append(s.records, r)

	s.logger.Debug("record created", "id", id)
	return s.copy(r), nil
}

// List returns every record in listing order. The result is never nil.
func (s *Store[T]) List(ctx context.Context) ([]Record[T], error) {
	return s.Filter(ctx, nil)
}

// Filter returns the records for which keep returns true, in listing order.
// A nil keep matches every record.
func (s *Store[T]) Filter(ctx context.Context, keep func(Record[T]) bool) ([]Record[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record[T], 0, len(s.records))
	for _, r := range s.records {
		r = s.copy(r)
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}

	if s.newestFirst {
		slices.Reverse(out)
	}
	return out, nil
}

// Page returns at most limit records starting at offset, in listing order.
// A zero limit means no limit.
func (s *Store[T]) Page(ctx context.Context, limit, offset int) ([]Record[T], error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []Record[T]{}, nil
	}

	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Len returns the number of records held.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given id.
func (s *Store[T]) Get(ctx context.Context, id string) (Record[T], error) {
	if err := ctx.Err(); err != nil {
		return Record[T]{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Record[T]{}, notFound(id)
	}
	return s.copy(s.records[i]), nil
}

// Update merges patch into the record's data and refreshes its updated stamp.
func (s *Store[T]) Update(ctx context.Context, id string, patch Patch) (Record[T], error) {
	return s.UpdateFunc(ctx, id, func(data *T) error {
		merged, err := Apply(*data, patch)
		if err != nil {
			return err
		}
		*data = merged
		return nil
	})
}

// UpdateFunc calls fn with a copy of the record's data and stores the result.
// If fn returns an error nothing is changed.
func (s *Store[T]) UpdateFunc(ctx context.Context, id string, fn func(*T) error) (Record[T], error) {
	if err := ctx.Err(); err != nil {
		return Record[T]{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Record[T]{}, notFound(id)
	}

	r := s.copy(s.records[i])
	if err := fn(&r.Data); err != nil {
		return Record[T]{}, err
	}

	// updated always moves forward, even on a coarse or frozen clock
	now := s.stamp()
	if !now.After(r.Updated) {
		now = r.Updated.Add(stampPrecision)
	}
	r.Updated = now

	if s.backend != nil {
		if err := s.backend.Update(ctx, s.copy(r)); err != nil {
			return Record[T]{}, fmt.Errorf("records store: update %s: %w", id, err)
		}
	}

	s.records[i] = r

	s.logger.Debug("record updated", "id", id)
	return s.copy(r), nil
}

// Delete removes the record with the given id.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return notFound(id)
	}

	if s.backend != nil {
		if err := s.backend.Delete(ctx, id); err != nil {
			return fmt.Errorf("records store: delete %s: %w", id, err)
		}
	}

	s.records = slices.Delete(s.records, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}

	s.logger.Debug("record deleted", "id", id)
	return nil
}
