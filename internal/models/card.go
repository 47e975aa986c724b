// Package models defines the domain types for studycards.
package models

import (
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Card is a single question/answer pair. ID is assigned when the card first
// enters the system and never changes afterwards; it is not part of the
// card's identity for starring, which stays positional.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	ID       string `json:"id,omitempty"`
}

// NewCard returns a card with a freshly generated ID.
func NewCard(question, answer string) Card {
	return Card{Question: question, Answer: answer, ID: uuid.NewString()}
}

// SameContent reports whether c and o carry the same question and answer.
func (c Card) SameContent(o Card) bool {
	return c.Question == o.Question && c.Answer == o.Answer
}

// EnsureIDs gives every card without an ID, or with an ID already used by an
// earlier card in the slice, a new one. It reports whether anything changed.
func EnsureIDs(cards []Card) bool {
	changed := false
	seen := make(map[string]struct{}, len(cards))
	for i := range cards {
		if _, dup := seen[cards[i].ID]; cards[i].ID == "" || dup {
			cards[i].ID = uuid.NewString()
			changed = true
		}
		seen[cards[i].ID] = struct{}{}
	}
	return changed
}

// CardSets maps set names to their canonical card order. Set names keep the
// order in which they were first inserted, through JSON encoding as well.
type CardSets struct {
	sets *orderedmap.OrderedMap[string, []Card]
}

// NewCardSets returns an empty mapping.
func NewCardSets() *CardSets {
	return &CardSets{sets: orderedmap.New[string, []Card]()}
}

// Len returns the number of sets.
func (s *CardSets) Len() int {
	if s == nil || s.sets == nil {
		return 0
	}
	return s.sets.Len()
}

// Get returns the canonical cards of the named set. The returned slice is
// shared with the mapping; callers that mutate it must clone it first.
func (s *CardSets) Get(name string) ([]Card, bool) {
	if s == nil || s.sets == nil {
		return nil, false
	}
	return s.sets.Get(name)
}

// Set inserts or replaces the named set. A replaced set keeps its position.
func (s *CardSets) Set(name string, cards []Card) {
	if s.sets == nil {
		s.sets = orderedmap.New[string, []Card]()
	}
	if cards == nil {
		cards = []Card{}
	}
	s.sets.Set(name, cards)
}

// Delete removes the named set and reports whether it was present.
func (s *CardSets) Delete(name string) bool {
	if s.sets == nil {
		return false
	}
	_, ok := s.sets.Delete(name)
	return ok
}

// Names returns set names in insertion order.
func (s *CardSets) Names() []string {
	names := make([]string, 0, s.Len())
	if s.Len() == 0 {
		return names
	}
	for pair := s.sets.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// First returns the oldest set name.
func (s *CardSets) First() (string, bool) {
	if s.Len() == 0 {
		return "", false
	}
	return s.sets.Oldest().Key, true
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (s *CardSets) MarshalJSON() ([]byte, error) {
	if s.sets == nil {
		return []byte("{}"), nil
	}
	return s.sets.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (s *CardSets) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, []Card]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			pair.Value = []Card{}
		}
	}
	s.sets = m
	return nil
}

// IndexOf returns the position of c within cards: the card with the same ID
// if there is one, else the first card with the same question and answer,
// else -1.
func IndexOf(cards []Card, c Card) int {
	if c.ID != "" {
		for i := range cards {
			if cards[i].ID == c.ID {
				return i
			}
		}
	}
	for i := range cards {
		if cards[i].SameContent(c) {
			return i
		}
	}
	return -1
}
