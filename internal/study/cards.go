package study

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/models"
)

type cardInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (in cardInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Question, validation.Required),
		validation.Field(&in.Answer, validation.Required),
	)
}

// Shuffle replaces the working sequence with a random permutation of the
// active set, or of its starred cards only. With starredOnly and nothing
// starred it returns apperr.ErrNoStarredCards and changes nothing.
func (c *Controller) Shuffle(starredOnly bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Active {
		return apperr.ErrNoActiveSet
	}
	name := c.session.SetName
	canon, _ := c.canon.Get(name)

	var pool []models.Card
	if starredOnly {
		starred, err := c.stars.Load()
		if err != nil {
			return err
		}
		for i, card := range canon {
			if starred.Has(name, i) {
				pool = append(pool, card)
			}
		}
		if len(pool) == 0 {
			return fmt.Errorf("study: shuffle %q: %w", name, apperr.ErrNoStarredCards)
		}
	} else {
		pool = cloneCards(canon)
	}

	c.permute(pool)
	c.session.Cards = pool
	c.session.Index = 0
	c.session.Flipped = false
	return nil
}

// permute is a Fisher-Yates shuffle from the last index down to 1.
func (c *Controller) permute(cards []models.Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := c.intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// ToggleCurrentCardStar flips the star of the displayed card, addressed by
// its canonical position, and returns the new state.
func (c *Controller) ToggleCurrentCardStar() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Active {
		return false, apperr.ErrNoActiveSet
	}
	if len(c.session.Cards) == 0 {
		return false, apperr.ErrEmptySet
	}

	card := c.session.Cards[c.session.Index]
	idx := c.canonicalIndex(card)
	if idx < 0 {
		c.logger.Warn("study: current card not in canonical set, star skipped",
			slog.String("set", c.session.SetName),
			slog.String("question", card.Question))
		return false, fmt.Errorf("study: current card: %w", apperr.ErrNotFound)
	}
	return c.stars.Toggle(c.session.SetName, idx)
}

// AddCard appends a new card to the active set and to the end of the
// working sequence. Question and answer are trimmed and both required.
func (c *Controller) AddCard(question, answer string) (models.Card, error) {
	in := cardInput{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)}
	if err := in.Validate(); err != nil {
		return models.Card{}, fmt.Errorf("%w: %v", apperr.ErrInvalidCard, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Active {
		return models.Card{}, apperr.ErrNoActiveSet
	}

	card := models.NewCard(in.Question, in.Answer)
	canon, err := c.sets.AppendCard(c.session.SetName, card)
	if err != nil {
		return models.Card{}, err
	}
	c.canon = canon
	c.session.Cards = append(c.session.Cards, card)
	c.session.Flipped = false
	return card, nil
}

// DeleteCard removes the displayed card from the working sequence and the
// same card, located by ID, from the canonical set. Starred entries are not
// renumbered, so stars on later cards shift to their new neighbours.
func (c *Controller) DeleteCard() (models.Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Active {
		return models.Card{}, apperr.ErrNoActiveSet
	}
	if len(c.session.Cards) == 0 {
		return models.Card{}, apperr.ErrEmptySet
	}

	card := c.session.Cards[c.session.Index]
	canon, canonIdx, err := c.sets.RemoveCard(c.session.SetName, card)
	if err != nil {
		return models.Card{}, err
	}
	c.canon = canon
	c.logger.Debug("study: card deleted",
		slog.String("set", c.session.SetName),
		slog.Int("canonical_index", canonIdx))

	c.session.Cards = slices.Delete(c.session.Cards, c.session.Index, c.session.Index+1)
	c.clampIndex()
	c.session.Flipped = false
	return card, nil
}
