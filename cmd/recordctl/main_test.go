package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dioad/records"
	"github.com/dioad/records/entity"
	"github.com/dioad/records/snapshot"
)

func helperEnv(t *testing.T) string {
	t.Helper()

	for _, k := range []string{
		"RECORDS_ENV", "RECORDS_LOG_LEVEL", "RECORDS_BACKEND", "RECORDS_PATH",
		"RECORDS_FORMAT", "RECORDS_POSTGRES_DSN", "RECORDS_ID_SCHEME", "RECORDS_NEWEST_FIRST",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func helperConfig(t *testing.T, dir, backend, path string) string {
	t.Helper()

	cfg := filepath.Join(dir, "recordctl.yaml")
	content := "log:\n  level: error\nstore:\n  backend: " + backend + "\n  path: " + path + "\n"
	if err := os.WriteFile(cfg, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg
}

func helperRun(t *testing.T, cfg string, args ...string) (string, string, int) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--config", cfg}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func helperAdd(t *testing.T, cfg string, args ...string) string {
	t.Helper()

	out, errOut, code := helperRun(t, cfg, args...)
	if code != 0 {
		t.Fatalf("%v: exit %d: %s", args, code, errOut)
	}
	return strings.TrimSpace(out)
}

func TestNotesLifecycle(t *testing.T) {
	dir := helperEnv(t)
	cfg := helperConfig(t, dir, "file", filepath.Join(dir, "data"))

	id := helperAdd(t, cfg, "notes", "add", "--set", "title=groceries", "--set", "content=milk")
	if id == "" {
		t.Fatal("expected an id")
	}

	out, _, code := helperRun(t, cfg, "notes", "list")
	if code != 0 || !strings.Contains(out, id) || !strings.Contains(out, "groceries") {
		t.Fatalf("unexpected list (exit %d):\n%s", code, out)
	}

	out, errOut, code := helperRun(t, cfg, "notes", "edit", id, "--set", "title=errands")
	if code != 0 {
		t.Fatalf("edit: exit %d: %s", code, errOut)
	}
	if want := "updated note " + id; strings.TrimSpace(out) != want {
		t.Errorf("expected %q got %q", want, out)
	}

	out, _, code = helperRun(t, cfg, "notes", "show", id)
	if code != 0 || !strings.Contains(out, "title: errands") || !strings.Contains(out, "content: milk") {
		t.Fatalf("unexpected show (exit %d):\n%s", code, out)
	}

	if _, errOut, code := helperRun(t, cfg, "notes", "rm", id); code != 0 {
		t.Fatalf("rm: exit %d: %s", code, errOut)
	}

	_, errOut, code = helperRun(t, cfg, "notes", "show", id)
	if code != 1 {
		t.Errorf("expected exit 1 got %d", code)
	}
	if want := "note " + id + " not found"; strings.TrimSpace(errOut) != want {
		t.Errorf("expected %q got %q", want, errOut)
	}

	out, _, _ = helperRun(t, cfg, "notes", "list")
	if strings.TrimSpace(out) != "no records" {
		t.Errorf("expected empty list got %q", out)
	}
}

func TestNotFoundOnEveryOperation(t *testing.T) {
	dir := helperEnv(t)
	cfg := helperConfig(t, dir, "file", filepath.Join(dir, "data"))

	tests := [][]string{
		{"posts", "show", "42"},
		{"posts", "edit", "42", "--set", "title=x"},
		{"posts", "rm", "42"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args[:2], " "), func(t *testing.T) {
			_, errOut, code := helperRun(t, cfg, args...)
			if code != 1 || strings.TrimSpace(errOut) != "post 42 not found" {
				t.Errorf("expected not found, got exit %d %q", code, errOut)
			}
		})
	}
}

func TestAddValidation(t *testing.T) {
	dir := helperEnv(t)
	cfg := helperConfig(t, dir, "memory", "")

	_, errOut, code := helperRun(t, cfg, "posts", "add")
	if code != 1 {
		t.Fatalf("expected exit 1 got %d", code)
	}
	if want := "content is required\ntitle is required\n"; errOut != want {
		t.Errorf("expected %q got %q", want, errOut)
	}
}

func TestEditRejectsUnknownField(t *testing.T) {
	dir := helperEnv(t)
	cfg := helperConfig(t, dir, "file", filepath.Join(dir, "data"))

	id := helperAdd(t, cfg, "notes", "add", "--set", "title=a")

	_, errOut, code := helperRun(t, cfg, "notes", "edit", id, "--set", "colour=red")
	if code != 1 || !strings.Contains(errOut, "invalid patch") {
		t.Errorf("expected invalid patch, got exit %d %q", code, errOut)
	}

	_, errOut, code = helperRun(t, cfg, "notes", "edit", id, "--set", "title=")
	if code != 1 || strings.TrimSpace(errOut) != "title is required" {
		t.Errorf("expected validation error, got exit %d %q", code, errOut)
	}

	out, _, _ := helperRun(t, cfg, "notes", "show", id)
	if !strings.Contains(out, "title: a") {
		t.Errorf("failed edits must not change the note:\n%s", out)
	}
}

func TestTransactionsBalance(t *testing.T) {
	dir := helperEnv(t)
	cfg := helperConfig(t, dir, "file", filepath.Join(dir, "data"))

	helperAdd(t, cfg, "transactions", "add", "--set", "name=salary", "--set", "amount=100.5")
	helperAdd(t, cfg, "transactions", "add", "--set", "name=rent", "--set", "amount=-50")

	out, errOut, code := helperRun(t, cfg, "transactions", "balance")
	if code != 0 {
		t.Fatalf("balance: exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "2 transactions, balance R$ ") || !strings.HasSuffix(strings.TrimSpace(out), " C") {
		t.Errorf("unexpected balance %q", out)
	}

	_, errOut, code = helperRun(t, cfg, "transactions", "add", "--set", "name=typo", "--set", "amount=ten")
	if code != 1 || !strings.Contains(errOut, "invalid patch") {
		t.Errorf("expected invalid amount to fail, got exit %d %q", code, errOut)
	}
}

func TestMigrate(t *testing.T) {
	dir := helperEnv(t)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	src := filepath.Join(dir, "notes.json")
	err := snapshot.WriteFile(src, []records.Record[entity.Note]{
		{ID: "1700000000000", Data: entity.Note{Title: "first"}, Created: created, Updated: created},
		{ID: "1700000000001", Data: entity.Note{Title: "second"}, Created: created, Updated: created},
	})
	if err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	db := filepath.Join(dir, "records.db")
	cfg := helperConfig(t, dir, "sqlite", db)

	out, errOut, code := helperRun(t, cfg, "migrate", "--from", src, "--to", db, "--kind", "notes")
	if code != 0 {
		t.Fatalf("migrate: exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "migrated 2 notes") {
		t.Errorf("unexpected output %q", out)
	}

	out, _, code = helperRun(t, cfg, "notes", "show", "1700000000001")
	if code != 0 || !strings.Contains(out, "title: second") {
		t.Fatalf("unexpected show (exit %d):\n%s", code, out)
	}

	// a second import of the same ids fails as a whole
	_, _, code = helperRun(t, cfg, "migrate", "--from", src, "--to", db, "--kind", "notes")
	if code != 1 {
		t.Errorf("expected duplicate migrate to fail, got exit %d", code)
	}

	_, errOut, code = helperRun(t, cfg, "migrate", "--from", src, "--to", db, "--kind", "memos")
	if code != 1 || !strings.Contains(errOut, "unknown kind") {
		t.Errorf("expected unknown kind, got exit %d %q", code, errOut)
	}
}

func TestParseSets(t *testing.T) {
	p, err := parseSets[entity.Transaction]([]string{"name=42", "amount=-12.5"})
	if err != nil {
		t.Fatalf("parseSets: %v", err)
	}
	if p["name"] != "42" {
		t.Errorf("name: expected string 42 got %#v", p["name"])
	}
	if p["amount"] != -12.5 {
		t.Errorf("amount: expected -12.5 got %#v", p["amount"])
	}

	f, err := parseSets[records.Fields]([]string{"amount=3", "note=a=b"})
	if err != nil {
		t.Fatalf("parseSets: %v", err)
	}
	if f["amount"] != "3" || f["note"] != "a=b" {
		t.Errorf("fields: unexpected %#v", f)
	}

	for _, bad := range []string{"title", "=x"} {
		if _, err := parseSets[entity.Note]([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		zero     string
		value    string
		expected any
	}{
		{`""`, "1", "1"},
		{`0`, "1.5", 1.5},
		{`0`, "x", "x"},
		{`false`, "true", true},
		{`false`, "maybe", "maybe"},
		{``, "7", "7"},
	}

	for _, test := range tests {
		if got := coerce([]byte(test.zero), test.value); got != test.expected {
			t.Errorf("coerce(%s, %q): expected %#v got %#v", test.zero, test.value, test.expected, got)
		}
	}
}
