package records

import (
	"log/slog"
	"time"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	ids         IDGenerator
	now         func() time.Time
	newestFirst bool
	logger      *slog.Logger
	clone       any
}

func defaultOptions() *options {
	return &options{
		ids:    NewTimestampIDs(),
		now:    time.Now,
		logger: slog.Default(),
	}
}

// WithIDGenerator replaces the default timestamp id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithClock sets the time source used for the created and updated stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithNewestFirst makes List, Filter and Page return the most recently created
// record first.
func WithNewestFirst() Option {
	return func(o *options) {
		o.newestFirst = true
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCloner sets the function used to copy record data on the way in and out of the
// store. It is only needed when T holds maps, slices or pointers.
func WithCloner[T any](clone func(T) T) Option {
	return func(o *options) {
		o.clone = clone
	}
}
