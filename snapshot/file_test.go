package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dioad/records"
)

type note struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

func helperPath(t *testing.T, name string) string {
	t.Helper()

	return filepath.Join(t.TempDir(), name)
}

func helperOpen(ctx context.Context, t *testing.T, path string) *records.Store[note] {
	t.Helper()

	s, err := records.Open[note](ctx, New[note](path))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"notes.json", JSON},
		{"notes.yaml", YAML},
		{"notes.YML", YAML},
		{"notes", JSON},
		{"dir.yaml/notes.db", JSON},
	}

	for _, test := range tests {
		if got := FormatFor(test.path); got != test.expected {
			t.Errorf("%s: expected %s got %s", test.path, test.expected, got)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"notes.json", "notes.yaml"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := helperPath(t, name)

			s := helperOpen(ctx, t, path)

			a, err := s.Create(ctx, note{Title: "shopping", Content: "milk"})
			if err != nil {
				t.Fatal(err)
			}
			b, err := s.Create(ctx, note{Title: "todo", Content: "write tests"})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.Update(ctx, a.ID, records.Patch{"content": "milk, eggs"}); err != nil {
				t.Fatal(err)
			}

			reopened := helperOpen(ctx, t, path)

			list, err := reopened.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 {
				t.Fatalf("expected 2 records got %d", len(list))
			}
			if list[0].ID != a.ID || list[0].Data.Content != "milk, eggs" {
				t.Errorf("unexpected first record %+v", list[0])
			}
			if list[1].ID != b.ID || !list[1].Created.Equal(b.Created) {
				t.Errorf("unexpected second record %+v", list[1])
			}

			if err := reopened.Delete(ctx, a.ID); err != nil {
				t.Fatal(err)
			}

			rs, err := ReadFile[note](path)
			if err != nil {
				t.Fatal(err)
			}
			if len(rs) != 1 || rs[0].ID != b.ID {
				t.Errorf("expected only %s on disk got %+v", b.ID, rs)
			}
		})
	}
}

func TestFileMissingAndEmpty(t *testing.T) {
	ctx := context.Background()

	missing := helperPath(t, "missing.json")
	rs, err := New[note](missing).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rs == nil || len(rs) != 0 {
		t.Errorf("expected empty slice got %v", rs)
	}

	empty := helperPath(t, "empty.yaml")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rs, err = ReadFile[note](empty)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 0 {
		t.Errorf("expected no records got %v", rs)
	}
}

func TestFileCorrupt(t *testing.T) {
	path := helperPath(t, "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := records.Open[note](context.Background(), New[note](path)); err == nil {
		t.Fatal("expected error got nil")
	}
}

func TestFileNotFound(t *testing.T) {
	ctx := context.Background()
	f := New[note](helperPath(t, "notes.json"))

	if err := f.Update(ctx, records.Record[note]{ID: "1"}); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected ErrNotFound got %v", err)
	}
	if err := f.Delete(ctx, "1"); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected ErrNotFound got %v", err)
	}
}

func TestFileWriteFailureKeepsMirror(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// a directory in place of the target makes the final rename fail
	path := filepath.Join(dir, "notes.json")
	f := New[note](path)
	if _, err := f.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "keep"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	err := f.Insert(ctx, records.Record[note]{ID: "1", Created: time.Now().UTC()})
	if err == nil {
		t.Fatal("expected error got nil")
	}
	if len(f.records) != 0 {
		t.Errorf("expected mirror unchanged got %v", f.records)
	}
}

func TestWriteFileYAMLLayout(t *testing.T) {
	path := helperPath(t, "notes.yaml")
	at := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	err := WriteFile(path, []records.Record[note]{
		{ID: "1700000000000", Data: note{Title: "A", Content: "B"}, Created: at, Updated: at},
	})
	if err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`id: "1700000000000"`, "title: A", "content: B"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected %q in\n%s", want, b)
		}
	}
}
