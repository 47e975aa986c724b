// Package storage defines the key-value document store behind card sets and stars.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known document keys.
const (
	KeyCardSets = "studyCardSets"
	KeyStarred  = "studyCardStarred"
)

// Provider stores whole JSON documents under string keys.
type Provider interface {
	// Get returns the stored bytes for key. A missing key yields an error
	// matching apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Put overwrites the document stored under key.
	Put(key string, value []byte) error
	// Close releases any resources held by the provider.
	Close() error
}

// Backend drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the provider for driver. For DriverFile path is a directory
// and is created if missing; for DriverSQLite it is the database file.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case DriverFile, "":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create store dir: %w", err)
		}
		return NewFS(path)
	case DriverSQLite:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("storage: create db dir: %w", err)
			}
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
