// Package snapshot keeps records in a single JSON or YAML file that is rewritten
// after every change.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dioad/records"
)

// Format is the on-disk encoding of a snapshot.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

// FormatFor picks the format from the file extension; anything that is not .yaml or
// .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// File is a records.Backend that mirrors the collection in memory and overwrites
// the whole file on every change.
type File[T any] struct {
	mu      sync.Mutex
	path    string
	format  Format
	records []records.Record[T]
	loaded  bool
}

var _ records.Backend[struct{}] = &File[struct{}]{}

// New returns a backend for the file at path. The file is created on the first write.
func New[T any](path string) *File[T] {
	return &File[T]{path: path, format: FormatFor(path)}
}

// Path returns the file path.
func (f *File[T]) Path() string {
	return f.path
}

// Load reads the file on first use and returns a copy of the records.
func (f *File[T]) Load(ctx context.Context) ([]records.Record[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}
	return slices.Clone(f.records), nil
}

func (f *File[T]) load() error {
	rs, err := ReadFile[T](f.path)
	if err != nil {
		return err
	}
	f.records = rs
	f.loaded = true
	return nil
}

func (f *File[T]) ensureLoaded() error {
	if f.loaded {
		return nil
	}
	return f.load()
}

func (f *File[T]) indexOf(id string) int {
	return slices.IndexFunc(f.records, func(r records.Record[T]) bool { return r.ID == id })
}

// commit writes next to disk and adopts it as the mirror only once the write has
// succeeded.
func (f *File[T]) commit(next []records.Record[T]) error {
	if err := writeFile(f.path, f.format, next); err != nil {
		return err
	}
	f.records = next
	return nil
}

// Insert appends r and rewrites the file.
func (f *File[T]) Insert(ctx context.Context, r records.Record[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureLoaded(); err != nil {
		return err
	}
	if f.indexOf(r.ID) >= 0 {
		return fmt.Errorf("snapshot: insert %s: duplicate id", r.ID)
	}

	next := append(slices.Clone(f.records), r)
	return f.commit(next)
}

// Update replaces the record with the id of r and rewrites the file.
func (f *File[T]) Update(ctx context.Context, r records.Record[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureLoaded(); err != nil {
		return err
	}

	i := f.indexOf(r.ID)
	if i < 0 {
		return fmt.Errorf("%w: id %s", records.ErrNotFound, r.ID)
	}

	next := slices.Clone(f.records)
	next[i] = r
	return f.commit(next)
}

// Delete removes the record with the given id and rewrites the file.
func (f *File[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureLoaded(); err != nil {
		return err
	}

	i := f.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: id %s", records.ErrNotFound, id)
	}

	next := slices.Delete(slices.Clone(f.records), i, i+1)
	return f.commit(next)
}

// ReadFile decodes the snapshot at path. A missing or empty file holds no records.
func ReadFile[T any](path string) ([]records.Record[T], error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return []records.Record[T]{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	rs := []records.Record[T]{}
	if len(bytes.TrimSpace(b)) == 0 {
		return rs, nil
	}

	switch FormatFor(path) {
	case YAML:
		err = yaml.Unmarshal(b, &rs)
	default:
		err = json.Unmarshal(b, &rs)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	if rs == nil {
		rs = []records.Record[T]{}
	}
	return rs, nil
}

// WriteFile replaces the snapshot at path with rs.
func WriteFile[T any](path string, rs []records.Record[T]) error {
	return writeFile(path, FormatFor(path), rs)
}

func encode[T any](format Format, rs []records.Record[T]) ([]byte, error) {
	if rs == nil {
		rs = []records.Record[T]{}
	}

	if format == YAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rs); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	b, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// writeFile writes to a temporary file next to path and renames it into place, so
// readers never observe a partially written snapshot.
func writeFile[T any](path string, format Format, rs []records.Record[T]) error {
	b, err := encode(format, rs)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", path, err)
	}
	return nil
}
