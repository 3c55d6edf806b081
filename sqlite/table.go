package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Table represents a table in the database holding values of type T as JSON.
type Table[T any] struct {
	store *Store
	exec  executor
	tx    *Transaction
	name  string
}

func typeTableName[T any]() string {
	name := reflect.TypeFor[T]().Name()
	// generic instantiations are named like Record[pkg.Note]
	name, _, _ = strings.Cut(name, "[")
	return strings.ToLower(name)
}

func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// NewTable creates a table named after the type T.
func NewTable[T any](ctx context.Context, store *Store) (*Table[T], error) {
	return NewNamedTable[T](ctx, store, typeTableName[T]())
}

// NewNamedTable creates a table with an explicit name. Names are limited to
// letters, digits and underscores.
func NewNamedTable[T any](ctx context.Context, store *Store, name string) (*Table[T], error) {
	if !validTableName(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}

	table := &Table[T]{store: store, exec: store.db, name: name}
	if err := table.CreateTable(ctx); err != nil {
		return nil, err
	}
	return table, nil
}

// Name returns the table name.
func (n *Table[T]) Name() string {
	return n.name
}

// WithTransaction returns a copy of the table whose statements run inside tx.
func (n *Table[T]) WithTransaction(tx *Transaction) *Table[T] {
	return &Table[T]{store: n.store, exec: tx.tx, tx: tx, name: n.name}
}

func escapeFieldName(field string) string {
	_, after, _ := strings.Cut(field, ".")

	a := strings.ReplaceAll(after, ".", "__")
	a = strings.ReplaceAll(a, " ", "_")
	return a
}

func joinEscapedFieldNames(fields ...string) string {
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = escapeFieldName(field)
	}

	return strings.Join(parts, "_")
}

func constructIndexName(tableName string, fields ...string) string {
	return fmt.Sprintf("idx_%s_%s", tableName, joinEscapedFieldNames(fields...))
}

// CreateTable creates the table if it does not exist
func (n *Table[T]) CreateTable(ctx context.Context) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (data jsonb)", n.name)
	if _, err := n.exec.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", n.name, err)
	}
	return nil
}

// Count returns the number of rows in the table
func (n *Table[T]) Count(ctx context.Context) (uint64, error) {
	var c uint64
	row := n.exec.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) AS count FROM `%s`", n.name))
	err := row.Scan(&c)
	return c, err
}

// CreateIndex creates an index on the given JSON paths and returns its name.
func (n *Table[T]) CreateIndex(ctx context.Context, paths ...string) (string, error) {
	return n.createIndex(ctx, false, paths...)
}

// CreateUniqueIndex creates a unique index on the given JSON paths.
func (n *Table[T]) CreateUniqueIndex(ctx context.Context, paths ...string) (string, error) {
	return n.createIndex(ctx, true, paths...)
}

func (n *Table[T]) createIndex(ctx context.Context, unique bool, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New("create index: no fields given")
	}

	indexName := constructIndexName(n.name, paths...)

	exprs := make([]string, len(paths))
	for i, p := range paths {
		exprs[i] = jsonField(p)
	}

	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}

	stmt := fmt.Sprintf("CREATE %s IF NOT EXISTS `%s` ON `%s` (%s)", kind, indexName, n.name, strings.Join(exprs, ", "))
	if _, err := n.exec.ExecContext(ctx, stmt); err != nil {
		return indexName, fmt.Errorf("create index %s: %w", indexName, err)
	}
	return indexName, nil
}

// hasIndex reports whether an index with the given name exists on the table.
func (n *Table[T]) hasIndex(ctx context.Context, indexName string) (bool, error) {
	var c int
	row := n.exec.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND tbl_name=? AND name=?", n.name, indexName)
	if err := row.Scan(&c); err != nil {
		return false, err
	}
	return c > 0, nil
}

// Insert adds a new item to the table
func (n *Table[T]) Insert(ctx context.Context, data T) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("INSERT INTO `%s` (data) VALUES (?)", n.name)
	_, err = n.exec.ExecContext(ctx, stmt, string(b))
	return err
}

// InsertMany adds all items or none of them. On a table already bound to a
// transaction the items join that transaction.
func (n *Table[T]) InsertMany(ctx context.Context, items []T) error {
	if n.tx != nil {
		return n.insertAll(ctx, items)
	}

	return n.store.RunInTx(ctx, func(tx *Transaction) error {
		return n.WithTransaction(tx).insertAll(ctx, items)
	})
}

func (n *Table[T]) insertAll(ctx context.Context, items []T) error {
	for i, item := range items {
		if err := n.Insert(ctx, item); err != nil {
			return fmt.Errorf("insert item %d: %w", i, err)
		}
	}
	return nil
}

// QueryOne returns the first item matching c, or nil when nothing matches.
func (n *Table[T]) QueryOne(ctx context.Context, c Clause) (*T, error) {
	stmt := fmt.Sprintf("SELECT data FROM `%s` WHERE %s ORDER BY rowid LIMIT 1", n.name, c.Clause())

	var data string
	err := n.exec.QueryRowContext(ctx, stmt, c.Values()...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryMany returns every item matching c in insertion order.
func (n *Table[T]) QueryMany(ctx context.Context, c Clause) ([]T, error) {
	return n.QueryManyWithPagination(ctx, c, 0, 0)
}

// QueryManyWithPagination returns at most limit items matching c, skipping the
// first offset. A zero limit means no limit.
func (n *Table[T]) QueryManyWithPagination(ctx context.Context, c Clause, limit, offset int) ([]T, error) {
	stmt := fmt.Sprintf("SELECT data FROM `%s` WHERE %s ORDER BY rowid", n.name, c.Clause())
	args := c.Values()

	if limit > 0 || offset > 0 {
		if limit <= 0 {
			limit = -1
		}
		stmt += " LIMIT ? OFFSET ?"
		args = append(append([]any{}, args...), limit, max(offset, 0))
	}

	rows, err := n.exec.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var result T
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Update replaces every item matching c with newVal and returns the number of rows
// changed.
func (n *Table[T]) Update(ctx context.Context, c Clause, newVal T) (int64, error) {
	b, err := json.Marshal(newVal)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf("UPDATE `%s` SET data = ? WHERE %s", n.name, c.Clause())
	args := append([]any{string(b)}, c.Values()...)

	res, err := n.exec.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes every item matching c and returns the number of rows removed.
func (n *Table[T]) Delete(ctx context.Context, c Clause) (int64, error) {
	stmt := fmt.Sprintf("DELETE FROM `%s` WHERE %s", n.name, c.Clause())

	res, err := n.exec.ExecContext(ctx, stmt, c.Values()...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
