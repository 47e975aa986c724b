// Package cardset persists the card-set mapping. Every operation reads the
// whole mapping, applies one change and writes the whole mapping back.
package cardset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/models"
	"github.com/starford/studycards/internal/storage"
)

// Repository reads and writes the card-set mapping through a storage.Provider.
type Repository struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewRepository creates a repository backed by store.
func NewRepository(store storage.Provider, logger *slog.Logger) *Repository {
	return &Repository{store: store, logger: logger}
}

// Load returns the persisted mapping. The first load ever seeds and persists
// an empty mapping. An unreadable document is logged and treated as empty.
// Cards stored without an ID are given one and the mapping is re-persisted.
func (r *Repository) Load() (*models.CardSets, error) {
	sets := models.NewCardSets()
	found, err := storage.LoadJSON(r.store, storage.KeyCardSets, sets)

	var corrupt *storage.CorruptError
	switch {
	case errors.As(err, &corrupt):
		r.logger.Warn("cardset: stored card sets unreadable, falling back to empty",
			slog.String("error", err.Error()))
		return models.NewCardSets(), nil
	case err != nil:
		return nil, fmt.Errorf("cardset: load: %w", err)
	case !found:
		r.logger.Debug("cardset: seeding empty card sets")
		if err := r.save(sets); err != nil {
			return nil, err
		}
		return sets, nil
	}

	if ensureIDs(sets) {
		r.logger.Debug("cardset: assigned ids to legacy cards")
		if err := r.save(sets); err != nil {
			return nil, err
		}
	}
	return sets, nil
}

// AddOrReplaceSet stores cards under name, overwriting any existing set.
func (r *Repository) AddOrReplaceSet(name string, cards []models.Card) (*models.CardSets, error) {
	sets, err := r.Load()
	if err != nil {
		return nil, err
	}
	cards = append([]models.Card{}, cards...)
	models.EnsureIDs(cards)
	sets.Set(name, cards)
	if err := r.save(sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// DeleteSet removes the named set. Deleting a missing set is a no-op.
func (r *Repository) DeleteSet(name string) (*models.CardSets, error) {
	sets, err := r.Load()
	if err != nil {
		return nil, err
	}
	sets.Delete(name)
	if err := r.save(sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// AppendCard adds card to the end of the named set.
func (r *Repository) AppendCard(name string, card models.Card) (*models.CardSets, error) {
	sets, err := r.Load()
	if err != nil {
		return nil, err
	}
	cards, ok := sets.Get(name)
	if !ok {
		return nil, fmt.Errorf("cardset: set %q: %w", name, apperr.ErrNotFound)
	}
	cards = append(append([]models.Card{}, cards...), card)
	models.EnsureIDs(cards)
	sets.Set(name, cards)
	if err := r.save(sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// RemoveCard removes card from the named set, locating it with
// models.IndexOf. It returns the canonical index that was removed.
func (r *Repository) RemoveCard(name string, card models.Card) (*models.CardSets, int, error) {
	sets, err := r.Load()
	if err != nil {
		return nil, -1, err
	}
	cards, ok := sets.Get(name)
	if !ok {
		return nil, -1, fmt.Errorf("cardset: set %q: %w", name, apperr.ErrNotFound)
	}
	idx := models.IndexOf(cards, card)
	if idx < 0 {
		return nil, -1, fmt.Errorf("cardset: card in %q: %w", name, apperr.ErrNotFound)
	}
	remaining := make([]models.Card, 0, len(cards)-1)
	remaining = append(remaining, cards[:idx]...)
	remaining = append(remaining, cards[idx+1:]...)
	sets.Set(name, remaining)
	if err := r.save(sets); err != nil {
		return nil, -1, err
	}
	return sets, idx, nil
}

func (r *Repository) save(sets *models.CardSets) error {
	if err := storage.SaveJSON(r.store, storage.KeyCardSets, sets); err != nil {
		return fmt.Errorf("cardset: save: %w", err)
	}
	return nil
}

func ensureIDs(sets *models.CardSets) bool {
	changed := false
	for _, name := range sets.Names() {
		cards, _ := sets.Get(name)
		if models.EnsureIDs(cards) {
			changed = true
		}
	}
	return changed
}
