package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/flashdeck/internal/service"
)

// DeckHandler serves decks, shared deck search and cloning.
type DeckHandler struct {
	decks  *service.DeckService
	logger *slog.Logger
}

func NewDeckHandler(decks *service.DeckService, logger *slog.Logger) *DeckHandler {
	return &DeckHandler{decks: decks, logger: logger}
}

func deckQuery(r *http.Request) service.DeckQuery {
	q := r.URL.Query()
	return service.DeckQuery{
		Query:      q.Get("q"),
		Limit:      q.Get("limit"),
		Offset:     q.Get("offset"),
		CardCount:  q.Get("card_count"),
		TotalCount: hasFlag(r, "total_count"),
	}
}

type deckRequest struct {
	Name   *string `json:"name"`
	Shared *bool   `json:"shared"`
}

// HandleCreate creates a private deck for the caller.
//
// HTTP: POST /api/decks
func (h *DeckHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req deckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var name string
	if req.Name != nil {
		name = *req.Name
	}
	deck, err := h.decks.Create(r.Context(), CurrentUser(r.Context()), name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

// HandleSearchShared lists shared decks. Anyone may call it; a logged-in
// caller gets due counts in their own timezone.
//
// HTTP: GET /api/decks?q=&limit=&offset=&card_count=&total_count
func (h *DeckHandler) HandleSearchShared(w http.ResponseWriter, r *http.Request) {
	page, err := h.decks.SearchShared(r.Context(), CurrentUser(r.Context()), deckQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: page.Decks, Count: page.Total})
}

// HandleListUserDecks lists every deck of one user.
//
// HTTP: GET /api/users/{id}/decks
func (h *DeckHandler) HandleListUserDecks(w http.ResponseWriter, r *http.Request) {
	page, err := h.decks.SearchUserDecks(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), deckQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: page.Decks, Count: page.Total})
}

// HandleGet returns one deck with the requested counts.
//
// HTTP: GET /api/decks/{id}?card_count=all,new,due
func (h *DeckHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	deck, err := h.decks.Get(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), r.URL.Query().Get("card_count"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// HandleUpdate renames or (un)shares a deck. Leaving out "shared" unshares it.
//
// HTTP: PUT /api/decks/{id}
func (h *DeckHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req deckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	deck, err := h.decks.Update(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), req.Name, req.Shared)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// HandleDelete removes a deck and its cards.
//
// HTTP: DELETE /api/decks/{id}
func (h *DeckHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	deck, err := h.decks.Delete(r.Context(), CurrentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// HandleClone copies a readable deck into a user's collection.
//
// HTTP: POST /api/users/{id}/decks/{deckId}
func (h *DeckHandler) HandleClone(w http.ResponseWriter, r *http.Request) {
	deck, err := h.decks.Clone(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), r.PathValue("deckId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}
