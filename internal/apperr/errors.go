// Package apperr holds the sentinel errors shared by the study core and its surfaces.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// Precondition failures. State is left unchanged when one is returned.
	ErrNoActiveSet     = errors.New("no set selected")
	ErrEmptySet        = errors.New("no cards in this set")
	ErrNoStarredCards  = errors.New("no starred cards in this set")
	ErrNothingToExport = errors.New("no card sets to export")

	// Input validation failures.
	ErrEmptyInput      = errors.New("no JSON to import")
	ErrMalformedJSON   = errors.New("error parsing JSON")
	ErrInvalidDocument = errors.New("invalid JSON format: expected an object")
	ErrNoValidSets     = errors.New("no valid card sets found")
	ErrInvalidCard     = errors.New("invalid card")
	ErrUnsupportedFile = errors.New("unsupported import file type")
)

// IsPrecondition reports whether err is one of the precondition failures.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoActiveSet) ||
		errors.Is(err, ErrEmptySet) ||
		errors.Is(err, ErrNoStarredCards) ||
		errors.Is(err, ErrNothingToExport)
}

// IsInvalidInput reports whether err was caused by a bad import document or card.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMalformedJSON) ||
		errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrNoValidSets) ||
		errors.Is(err, ErrInvalidCard) ||
		errors.Is(err, ErrUnsupportedFile)
}

var userFacing = []error{
	ErrNoActiveSet, ErrEmptySet, ErrNoStarredCards, ErrNothingToExport,
	ErrEmptyInput, ErrMalformedJSON, ErrInvalidDocument, ErrNoValidSets,
	ErrInvalidCard, ErrUnsupportedFile,
}

// Message returns the text to show a user for err. For the sentinels above
// it drops the call-site prefixes and keeps any detail appended after the
// sentinel; other errors are returned as is.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range userFacing {
		if !errors.Is(err, sentinel) {
			continue
		}
		if i := strings.Index(msg, sentinel.Error()); i >= 0 {
			return msg[i:]
		}
		return sentinel.Error()
	}
	return msg
}
