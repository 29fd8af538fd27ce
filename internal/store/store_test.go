package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brindlecode/codemem/internal/store"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := store.Config{BaseDir: t.TempDir()}
	s, err := store.New(cfg)
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(store.Config{BaseDir: dir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Close()

	path := filepath.Join(dir, ".claude", "memory", "memory.db")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file at %s: %v", path, err)
	}
}

func TestNew_IdempotentReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := store.Config{BaseDir: dir}

	s1, err := store.New(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s1.StoreEntry(store.Entry{Key: "a", Namespace: "ns", Content: "hello"}); err != nil {
		t.Fatalf("store entry: %v", err)
	}
	s1.Close()

	s2, err := store.New(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	n, err := s2.Count("ns")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry to survive reopen, got %d", n)
	}
}

func TestRequireInit_BeforeInitialize(t *testing.T) {
	s := &store.Store{}
	if _, err := s.Get("missing"); err == nil {
		t.Fatal("expected ErrNotInitialized for an unready store")
	}
}
