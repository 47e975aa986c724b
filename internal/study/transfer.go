package study

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/models"
)

// ExportFilename is the name offered for downloaded exports.
const ExportFilename = "study_cards_export.json"

var (
	errNotArray  = errors.New("cards must be an array")
	errNoValid   = errors.New("no valid cards found")
	errNotScalar = errors.New("not a scalar value")
	nullLiteral  = []byte("null")
)

// ImportSets merges a JSON document of the form {"set": [{question, answer}]}
// into the library and returns how many sets were written. Sets whose value
// is not an array, or which hold no valid card, are skipped with a warning.
// A written set replaces any existing set of the same name. When no set was
// active the first set becomes active.
func (c *Controller) ImportSets(text []byte) (int, error) {
	text = bytes.TrimSpace(text)
	if len(text) == 0 {
		return 0, apperr.ErrEmptyInput
	}

	if !json.Valid(text) {
		var v any
		return 0, fmt.Errorf("%w: %v", apperr.ErrMalformedJSON, json.Unmarshal(text, &v))
	}
	if text[0] != '{' {
		return 0, apperr.ErrInvalidDocument
	}

	doc := orderedmap.New[string, json.RawMessage]()
	if err := doc.UnmarshalJSON(text); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrMalformedJSON, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	replacedActive := false
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		cards, err := parseSet(pair.Value)
		if err != nil {
			c.logger.Warn("study: skipping imported set",
				slog.String("set", pair.Key),
				slog.String("reason", err.Error()))
			continue
		}

		canon, err := c.sets.AddOrReplaceSet(pair.Key, cards)
		if err != nil {
			return added, err
		}
		c.canon = canon
		added++
		if c.session.Active && c.session.SetName == pair.Key {
			replacedActive = true
		}
	}

	if added == 0 {
		return 0, apperr.ErrNoValidSets
	}

	switch {
	case !c.session.Active:
		c.activateFirst()
	case replacedActive:
		c.activate(c.session.SetName)
	}
	c.logger.Info("study: imported card sets", slog.Int("sets", added))
	return added, nil
}

// ExportAll returns the whole mapping as JSON indented by two spaces.
func (c *Controller) ExportAll() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.canon.Len() == 0 {
		return nil, apperr.ErrNothingToExport
	}
	out, err := json.MarshalIndent(c.canon, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("study: export: %w", err)
	}
	return out, nil
}

// parseSet keeps the elements of raw that are objects holding both a
// question and an answer.
func parseSet(raw json.RawMessage) ([]models.Card, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, errNotArray
	}

	cards := make([]models.Card, 0, len(items))
	for _, item := range items {
		if card, ok := parseCard(item); ok {
			cards = append(cards, card)
		}
	}
	if len(cards) == 0 {
		return nil, errNoValid
	}
	return cards, nil
}

func parseCard(raw json.RawMessage) (models.Card, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.Card{}, false
	}
	q, okQ := fields["question"]
	a, okA := fields["answer"]
	if !okQ || !okA {
		return models.Card{}, false
	}
	question, err := scalarText(q)
	if err != nil {
		return models.Card{}, false
	}
	answer, err := scalarText(a)
	if err != nil {
		return models.Card{}, false
	}

	card := models.Card{Question: question, Answer: answer}
	if id, ok := fields["id"]; ok {
		_ = json.Unmarshal(id, &card.ID)
	}
	return card, true
}

// scalarText renders a JSON scalar as card text: strings as-is, numbers and
// booleans as their literal, null as empty. Objects and arrays are rejected.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errNotScalar
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", errNotScalar
	}
	if bytes.Equal(raw, nullLiteral) {
		return "", nil
	}
	return string(raw), nil
}
