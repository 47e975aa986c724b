// Package star tracks which canonical card positions the user has starred.
package star

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/starford/studycards/internal/storage"
)

// Key returns the composite key addressing a starred entry.
func Key(setName string, index int) string {
	return setName + ":" + strconv.Itoa(index)
}

// Starred is a snapshot of the starred mapping. Only true values are meaningful.
type Starred map[string]bool

// Has reports whether the card at index of setName is starred.
func (s Starred) Has(setName string, index int) bool {
	return s[Key(setName, index)]
}

// Tracker reads and writes the starred mapping. Indices are not validated
// against any set; an out-of-range entry stays inert until the index exists.
type Tracker struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewTracker creates a tracker backed by store.
func NewTracker(store storage.Provider, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Load returns the persisted starred mapping. Missing or unreadable
// documents yield an empty mapping.
func (t *Tracker) Load() (Starred, error) {
	starred := Starred{}
	_, err := storage.LoadJSON(t.store, storage.KeyStarred, &starred)

	var corrupt *storage.CorruptError
	switch {
	case errors.As(err, &corrupt):
		t.logger.Warn("star: stored starred cards unreadable, falling back to empty",
			slog.String("error", err.Error()))
		return Starred{}, nil
	case err != nil:
		return nil, fmt.Errorf("star: load: %w", err)
	}
	if starred == nil {
		starred = Starred{}
	}
	return starred, nil
}

// IsStarred reports whether the card at index of setName is starred.
func (t *Tracker) IsStarred(setName string, index int) (bool, error) {
	starred, err := t.Load()
	if err != nil {
		return false, err
	}
	return starred.Has(setName, index), nil
}

// Toggle flips the starred state of the card at index of setName, persists
// the mapping and returns the new state.
func (t *Tracker) Toggle(setName string, index int) (bool, error) {
	starred, err := t.Load()
	if err != nil {
		return false, err
	}
	key := Key(setName, index)
	if starred[key] {
		delete(starred, key)
	} else {
		starred[key] = true
	}
	if err := storage.SaveJSON(t.store, storage.KeyStarred, starred); err != nil {
		return false, fmt.Errorf("star: save: %w", err)
	}
	return starred[key], nil
}
