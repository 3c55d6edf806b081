package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dioad/records"
	"github.com/dioad/records/internal/config"
	"github.com/dioad/records/postgres"
	"github.com/dioad/records/snapshot"
	"github.com/dioad/records/sqlite"
)

func storeOptions(opts *config.Options) []records.Option {
	o := []records.Option{records.WithLogger(slog.Default())}
	if opts.Store.IDScheme == config.IDSchemeUUID {
		o = append(o, records.WithIDGenerator(records.UUIDs{}))
	}
	if opts.Store.NewestFirst {
		o = append(o, records.WithNewestFirst())
	}
	return o
}

// snapshotPath is the file holding one kind for the file backend.
func snapshotPath(opts *config.Options, kind string) string {
	return filepath.Join(opts.Store.Path, kind+"."+opts.Store.Format)
}

// openStore opens the store for kind on the configured backend. The returned func
// releases whatever the backend holds open.
func openStore[T any](ctx context.Context, opts *config.Options, kind string) (*records.Store[T], func(), error) {
	noop := func() {}

	switch opts.Store.Backend {
	case config.BackendMemory:
		return records.NewStore[T](storeOptions(opts)...), noop, nil

	case config.BackendFile:
		s, err := records.Open[T](ctx, snapshot.New[T](snapshotPath(opts, kind)), storeOptions(opts)...)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.BackendSQLite:
		db, err := sqlite.NewStore(opts.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		b, err := sqlite.NewBackend[T](ctx, db, kind)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		s, err := records.Open[T](ctx, b, storeOptions(opts)...)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, opts.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		b, err := postgres.NewBackend[T](ctx, pool, kind)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		s, err := records.Open[T](ctx, b, storeOptions(opts)...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.Store.Backend)
	}
}
