// Package study drives a single-card study session over the persisted card
// sets: set selection, navigation, flipping, shuffling, starring, card
// editing and bulk import/export.
package study

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/cardset"
	"github.com/starford/studycards/internal/models"
	"github.com/starford/studycards/internal/star"
)

// Session is the transient study state. Cards is a working copy of the
// active set, possibly shuffled or filtered; it never aliases the canonical
// mapping.
type Session struct {
	SetName string
	Active  bool
	Cards   []models.Card
	Index   int
	Flipped bool
}

// SetSummary describes one set for listings.
type SetSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// View is what a surface renders after each command.
type View struct {
	SetName string       `json:"set_name"`
	Active  bool         `json:"active"`
	Index   int          `json:"index"`
	Total   int          `json:"total"`
	Card    *models.Card `json:"card,omitempty"`
	Flipped bool         `json:"flipped"`
	Starred bool         `json:"starred"`
	Sets    []SetSummary `json:"sets"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for diagnostics such as skipped imports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRand sets the random source used by Shuffle.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		c.intn = r.IntN
	}
}

// Controller owns the study session and a cached copy of the canonical
// mapping. Commands are serialised; each runs to completion before the next.
type Controller struct {
	mu sync.Mutex

	sets   *cardset.Repository
	stars  *star.Tracker
	logger *slog.Logger
	intn   func(n int) int

	canon   *models.CardSets
	session Session
}

// New loads the canonical mapping and activates its first set, if any.
func New(sets *cardset.Repository, stars *star.Tracker, opts ...Option) (*Controller, error) {
	c := &Controller{
		sets:   sets,
		stars:  stars,
		logger: slog.Default(),
		intn:   rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}

	canon, err := sets.Load()
	if err != nil {
		return nil, fmt.Errorf("study: load card sets: %w", err)
	}
	c.canon = canon
	c.activateFirst()
	return c, nil
}

// Session returns a copy of the current session state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	s.Cards = cloneCards(s.Cards)
	return s
}

// Sets lists the canonical sets in insertion order.
func (c *Controller) Sets() []SetSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaries()
}

// View returns a render snapshot of the session.
func (c *Controller) View() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		SetName: c.session.SetName,
		Active:  c.session.Active,
		Index:   c.session.Index,
		Total:   len(c.session.Cards),
		Flipped: c.session.Flipped,
		Sets:    c.summaries(),
	}
	if !c.session.Active || len(c.session.Cards) == 0 {
		return v, nil
	}

	card := c.session.Cards[c.session.Index]
	v.Card = &card
	if idx := c.canonicalIndex(card); idx >= 0 {
		starred, err := c.stars.IsStarred(c.session.SetName, idx)
		if err != nil {
			return v, err
		}
		v.Starred = starred
	}
	return v, nil
}

// ChangeSet makes name the active set with a fresh copy of its canonical cards.
func (c *Controller) ChangeSet(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.canon.Get(name); !ok {
		return fmt.Errorf("study: set %q: %w", name, apperr.ErrNotFound)
	}
	c.activate(name)
	return nil
}

// Next moves to the following card. It reports whether the position changed;
// the last card does not wrap around.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Index >= len(c.session.Cards)-1 {
		return false
	}
	c.session.Index++
	c.session.Flipped = false
	return true
}

// Prev moves to the preceding card. It reports whether the position changed.
func (c *Controller) Prev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Index <= 0 {
		return false
	}
	c.session.Index--
	c.session.Flipped = false
	return true
}

// Flip turns the current card over and returns true when the back is shown.
func (c *Controller) Flip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Flipped = !c.session.Flipped
	return c.session.Flipped
}

// DeleteSet removes the named set. When it was the active set the first
// remaining set becomes active, or no set when none remain.
func (c *Controller) DeleteSet(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	canon, err := c.sets.DeleteSet(name)
	if err != nil {
		return err
	}
	c.canon = canon
	if c.session.Active && c.session.SetName == name {
		c.activateFirst()
	}
	return nil
}

// Reload re-reads the canonical mapping from storage, for use after another
// process rewrote it. Working cards that no longer exist are dropped.
func (c *Controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	canon, err := c.sets.Load()
	if err != nil {
		return err
	}
	c.canon = canon

	if !c.session.Active {
		c.activateFirst()
		return nil
	}
	cards, ok := canon.Get(c.session.SetName)
	if !ok {
		c.activateFirst()
		return nil
	}

	kept := make([]models.Card, 0, len(c.session.Cards))
	for _, card := range c.session.Cards {
		if idx := models.IndexOf(cards, card); idx >= 0 {
			kept = append(kept, cards[idx])
		}
	}
	c.session.Cards = kept
	c.clampIndex()
	return nil
}

func (c *Controller) activate(name string) {
	cards, _ := c.canon.Get(name)
	c.session = Session{
		SetName: name,
		Active:  true,
		Cards:   cloneCards(cards),
	}
}

func (c *Controller) activateFirst() {
	if first, ok := c.canon.First(); ok {
		c.activate(first)
		return
	}
	c.session = Session{Cards: []models.Card{}}
}

func (c *Controller) clampIndex() {
	switch {
	case len(c.session.Cards) == 0:
		c.session.Index = 0
	case c.session.Index >= len(c.session.Cards):
		c.session.Index = len(c.session.Cards) - 1
	}
}

// canonicalIndex resolves a working card to its position in the active set.
func (c *Controller) canonicalIndex(card models.Card) int {
	cards, _ := c.canon.Get(c.session.SetName)
	return models.IndexOf(cards, card)
}

func (c *Controller) summaries() []SetSummary {
	names := c.canon.Names()
	out := make([]SetSummary, 0, len(names))
	for _, name := range names {
		cards, _ := c.canon.Get(name)
		out = append(out, SetSummary{Name: name, Count: len(cards)})
	}
	return out
}

func cloneCards(cards []models.Card) []models.Card {
	return append([]models.Card{}, cards...)
}
