// Package postgres stores records in a Postgres table with a jsonb payload.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dioad/records"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	slog.Debug("Connecting to the database...")

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	slog.Debug("Connected to the database.")
	return pool, nil
}

// Backend persists records of type T in one table. Rows keep their insertion order
// through a bigserial column.
type Backend[T any] struct {
	pool  *pgxpool.Pool
	table string
}

var _ records.Backend[struct{}] = &Backend[struct{}]{}

// NewBackend creates table if it does not exist. Table names are limited to lower
// case letters, digits and underscores.
func NewBackend[T any](ctx context.Context, pool *pgxpool.Pool, table string) (*Backend[T], error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("postgres backend: invalid table name %q", table)
	}

	b := &Backend[T]{pool: pool, table: table}

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq     bigserial PRIMARY KEY,
	id      text NOT NULL UNIQUE,
	data    jsonb NOT NULL,
	created timestamptz NOT NULL,
	updated timestamptz NOT NULL
)`, b.ident())
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("postgres backend: create table %s: %w", table, err)
	}

	return b, nil
}

func (b *Backend[T]) ident() string {
	return pgx.Identifier{b.table}.Sanitize()
}

// Load returns every record in insertion order.
func (b *Backend[T]) Load(ctx context.Context) ([]records.Record[T], error) {
	query := fmt.Sprintf("SELECT id, data, created, updated FROM %s ORDER BY seq", b.ident())

	rows, err := b.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: load %s: %w", b.table, err)
	}
	defer rows.Close()

	//nolint:prealloc // the row count is unknown until the rows are read
	rs := []records.Record[T]{}
	for rows.Next() {
		var (
			r   records.Record[T]
			raw []byte
		)
		if err := rows.Scan(&r.ID, &raw, &r.Created, &r.Updated); err != nil {
			return nil, fmt.Errorf("postgres backend: scan row: %w", err)
		}
		if err := json.Unmarshal(raw, &r.Data); err != nil {
			return nil, fmt.Errorf("postgres backend: decode %s: %w", r.ID, err)
		}
		r.Created = r.Created.UTC()
		r.Updated = r.Updated.UTC()
		rs = append(rs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres backend: iterate rows: %w", err)
	}
	return rs, nil
}

// Insert adds r to the table.
func (b *Backend[T]) Insert(ctx context.Context, r records.Record[T]) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("postgres backend: encode %s: %w", r.ID, err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, data, created, updated) VALUES ($1, $2, $3, $4)", b.ident())
	if _, err := b.pool.Exec(ctx, query, r.ID, data, r.Created, r.Updated); err != nil {
		return fmt.Errorf("postgres backend: insert %s: %w", r.ID, err)
	}
	return nil
}

// Update replaces the data and updated stamp of the record with the id of r.
func (b *Backend[T]) Update(ctx context.Context, r records.Record[T]) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("postgres backend: encode %s: %w", r.ID, err)
	}

	query := fmt.Sprintf("UPDATE %s SET data = $2, updated = $3 WHERE id = $1", b.ident())
	tag, err := b.pool.Exec(ctx, query, r.ID, data, r.Updated)
	if err != nil {
		return fmt.Errorf("postgres backend: update %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %s", records.ErrNotFound, r.ID)
	}
	return nil
}

// Delete removes the record with the given id.
func (b *Backend[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", b.ident())
	tag, err := b.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres backend: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %s", records.ErrNotFound, id)
	}
	return nil
}

// Import inserts rs in one transaction; either every record is stored or none.
func (b *Backend[T]) Import(ctx context.Context, rs []records.Record[T]) error {
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf("INSERT INTO %s (id, data, created, updated) VALUES ($1, $2, $3, $4)", b.ident())

		batch := &pgx.Batch{}
		for _, r := range rs {
			data, err := json.Marshal(r.Data)
			if err != nil {
				return fmt.Errorf("postgres backend: encode %s: %w", r.ID, err)
			}
			batch.Queue(query, r.ID, data, r.Created, r.Updated)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres backend: import: %w", err)
		}
		return nil
	})
}
