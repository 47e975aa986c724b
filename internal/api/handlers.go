package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/studycards/internal/study"
)

// Notifier receives change notifications after successful commands.
type Notifier interface {
	PublishSession(view any)
	PublishSetsChanged(reason string)
}

type noopNotifier struct{}

func (noopNotifier) PublishSession(any) {}
func (noopNotifier) PublishSetsChanged(string) {}

// Handler holds API route handlers.
type Handler struct {
	ctrl   *study.Controller
	events Notifier
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(ctrl *study.Controller, events Notifier) *Handler {
	if events == nil {
		events = noopNotifier{}
	}
	return &Handler{ctrl: ctrl, events: events}
}

// viewAfter renders the session after a successful command and notifies
// subscribers. A non-empty setsReason also announces a set list change.
func (h *Handler) viewAfter(w http.ResponseWriter, op, setsReason string) (SessionView, bool) {
	view, err := h.ctrl.View()
	if err != nil {
		writeError(w, op, err)
		return view, false
	}
	h.events.PublishSession(view)
	if setsReason != "" {
		h.events.PublishSetsChanged(setsReason)
	}
	return view, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, op, setsReason string) {
	if view, ok := h.viewAfter(w, op, setsReason); ok {
		writeJSON(w, status, view)
	}
}

// ListSets handles GET /api/sets.
//
//	@Summary	List card sets with their card counts
//	@Tags		sets
//	@Produce	json
//	@Success	200	{object}	SetListResponse
//	@Router		/sets [get]
func (h *Handler) ListSets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SetListResponse{Sets: h.ctrl.Sets()})
}

// DeleteSet handles DELETE /api/sets/{name}.
func (h *Handler) DeleteSet(w http.ResponseWriter, r *http.Request) {
	name := setName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("set name is required"))
		return
	}
	if err := h.ctrl.DeleteSet(name); err != nil {
		writeError(w, "delete set", err)
		return
	}
	h.respond(w, http.StatusOK, "delete set", "delete_set")
}

// GetSession handles GET /api/session.
//
//	@Summary	Current study session
//	@Tags		session
//	@Produce	json
//	@Success	200	{object}	SessionView
//	@Router		/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	view, err := h.ctrl.View()
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SelectSet handles PUT /api/session/set.
func (h *Handler) SelectSet(w http.ResponseWriter, r *http.Request) {
	var req SelectSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.ctrl.ChangeSet(req.Name); err != nil {
		writeError(w, "select set", err)
		return
	}
	h.respond(w, http.StatusOK, "select set", "")
}

// Next handles POST /api/session/next.
func (h *Handler) Next(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Next()
	h.respond(w, http.StatusOK, "next", "")
}

// Prev handles POST /api/session/prev.
func (h *Handler) Prev(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Prev()
	h.respond(w, http.StatusOK, "prev", "")
}

// Flip handles POST /api/session/flip.
func (h *Handler) Flip(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Flip()
	h.respond(w, http.StatusOK, "flip", "")
}

// Shuffle handles POST /api/session/shuffle.
//
//	@Summary	Shuffle the active set, optionally only its starred cards
//	@Tags		session
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ShuffleRequest	false	"Shuffle mode"
//	@Success	200		{object}	SessionView
//	@Failure	409		{object}	errResponse
//	@Router		/session/shuffle [post]
func (h *Handler) Shuffle(w http.ResponseWriter, r *http.Request) {
	var req ShuffleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.ctrl.Shuffle(req.StarredOnly); err != nil {
		writeError(w, "shuffle", err)
		return
	}
	h.respond(w, http.StatusOK, "shuffle", "")
}

// ToggleStar handles POST /api/session/star.
func (h *Handler) ToggleStar(w http.ResponseWriter, _ *http.Request) {
	starred, err := h.ctrl.ToggleCurrentCardStar()
	if err != nil {
		writeError(w, "toggle star", err)
		return
	}
	if view, ok := h.viewAfter(w, "toggle star", ""); ok {
		writeJSON(w, http.StatusOK, StarResponse{Starred: starred, Session: view})
	}
}

// AddCard handles POST /api/session/cards.
//
//	@Summary	Append a card to the active set
//	@Tags		cards
//	@Accept		json
//	@Produce	json
//	@Param		body	body		AddCardRequest	true	"Card"
//	@Success	201		{object}	SessionView
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Router		/session/cards [post]
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req AddCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.ctrl.AddCard(req.Question, req.Answer); err != nil {
		writeError(w, "add card", err)
		return
	}
	h.respond(w, http.StatusCreated, "add card", "add_card")
}

// DeleteCurrentCard handles DELETE /api/session/cards/current.
func (h *Handler) DeleteCurrentCard(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.ctrl.DeleteCard(); err != nil {
		writeError(w, "delete card", err)
		return
	}
	h.respond(w, http.StatusOK, "delete card", "delete_card")
}

// Export handles GET /api/export.
//
//	@Summary	Download every set as one JSON document
//	@Tags		transfer
//	@Produce	json
//	@Success	200
//	@Failure	409	{object}	errResponse
//	@Router		/export [get]
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	data, err := h.ctrl.ExportAll()
	if err != nil {
		writeError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+study.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// setName extracts the {name} route parameter. chi matches on RawPath when
// the request carries one, leaving the parameter escaped; otherwise it is
// already decoded and must not be unescaped again.
func setName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
