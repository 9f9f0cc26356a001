package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/service"
)

// CardHandler serves the cards of a deck and single-card edits.
type CardHandler struct {
	cards  *service.CardService
	logger *slog.Logger
}

func NewCardHandler(cards *service.CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

type createCardRequest struct {
	Front   string `json:"front"`
	Back    string `json:"back"`
	Reverse bool   `json:"reverse"`
}

// HandleCreate adds a card, and its mirror when reverse is set.
//
// HTTP: POST /api/decks/{id}/cards
func (h *CardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	cards, err := h.cards.Create(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), req.Front, req.Back, req.Reverse)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, DataResponse{Data: cards})
}

// HandleList searches the cards of a deck, or counts them when the count
// flag is present.
//
// HTTP: GET /api/decks/{id}/cards?q=&limit=&offset=&new&due=&revised=&count
func (h *CardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.CardQuery{
		Query:   q.Get("q"),
		OnlyNew: hasFlag(r, "new"),
		Due:     q.Get("due"),
		Revised: q.Get("revised"),
		Limit:   q.Get("limit"),
		Offset:  q.Get("offset"),
	}
	user := CurrentUser(r.Context())
	deckID := r.PathValue("id")

	if hasFlag(r, "count") {
		n, err := h.cards.Count(r.Context(), user, deckID, query)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{Data: n})
		return
	}

	cards, err := h.cards.Search(r.Context(), user, deckID, query)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: cards})
}

// HandleGet returns one card.
//
// HTTP: GET /api/cards/{id}
func (h *CardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Get(r.Context(), CurrentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HandleUpdate patches one card.
//
// HTTP: PUT /api/cards/{id}
func (h *CardHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.CardPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	card, err := h.cards.Update(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HandleBulkUpdate patches many cards, all or nothing.
//
// HTTP: PUT /api/cards
func (h *CardHandler) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var patches []service.CardPatch
	if err := decodeJSON(w, r, &patches); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if patches == nil {
		writeError(w, h.logger, apperror.ValidationFailed("body", "request body must be a list of card updates"))
		return
	}

	cards, err := h.cards.BulkUpdate(r.Context(), CurrentUser(r.Context()), patches)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: cards})
}

// HandleDelete removes one card.
//
// HTTP: DELETE /api/cards/{id}
func (h *CardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Delete(r.Context(), CurrentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}
