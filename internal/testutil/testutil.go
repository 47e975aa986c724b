// Package testutil provides shared test helpers for setting up stores and loggers.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/studycards/internal/storage"
)

// TestStore creates a file-backed store in a temporary directory.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestLogger returns a logger that discards everything.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// PutDocument writes raw content under key, failing the test on error.
func PutDocument(t *testing.T, store storage.Provider, key, content string) {
	t.Helper()
	if err := store.Put(key, []byte(content)); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}
