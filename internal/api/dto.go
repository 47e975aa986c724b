package api

import (
	"github.com/starford/studycards/internal/study"
)

// SelectSetRequest is the body of PUT /api/session/set.
type SelectSetRequest struct {
	Name string `json:"name" example:"Math"`
}

// ShuffleRequest is the body of POST /api/session/shuffle.
type ShuffleRequest struct {
	StarredOnly bool `json:"starred_only"`
}

// AddCardRequest is the body of POST /api/session/cards.
type AddCardRequest struct {
	Question string `json:"question" example:"1+1"`
	Answer   string `json:"answer" example:"2"`
}

// SessionView is the session snapshot returned by every session route.
type SessionView = study.View

// SetListResponse wraps the set listing.
type SetListResponse struct {
	Sets []study.SetSummary `json:"sets"`
}

// StarResponse is returned after toggling a star.
type StarResponse struct {
	Starred bool        `json:"starred"`
	Session SessionView `json:"session"`
}

// ImportResponse is returned after an import.
type ImportResponse struct {
	Imported int         `json:"imported" example:"2"`
	Session  SessionView `json:"session"`
}
