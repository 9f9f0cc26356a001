package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/clock"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/policy"
	"github.com/sakif/flashdeck/internal/repository"
)

// CardQuery holds the raw search parameters for the cards of one deck.
// Empty strings mean "not given".
type CardQuery struct {
	Query   string
	OnlyNew bool
	Due     string // ISO-8601; cards with revision_due <= Due
	Revised string // ISO-8601; cards last revised on that date
	Limit   string
	Offset  string
}

// CardPatch is a partial card update. Nil or empty fields keep their value.
// KnowledgeLevel is kept raw so that non-integers can be reported as a
// validation error rather than a decoding failure.
type CardPatch struct {
	ID             string          `json:"id"`
	Front          *string         `json:"front"`
	Back           *string         `json:"back"`
	KnowledgeLevel json.RawMessage `json:"knowledge_level"`
	LastRevised    *string         `json:"last_revised"`
	RevisionDue    *string         `json:"revision_due"`
}

// CardService holds the rules for creating, finding and changing cards.
type CardService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewCardService(store repository.Store, logger *slog.Logger) *CardService {
	return &CardService{store: store, logger: logger}
}

// Create adds a card to a deck the user owns. With reverse it also adds the
// mirrored card (front and back swapped) in the same transaction.
func (s *CardService) Create(ctx context.Context, user *model.User, deckID, front, back string, reverse bool) ([]model.Card, error) {
	var created []model.Card

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		deck, err := tx.Decks().GetByID(ctx, deckID)
		if err != nil {
			return err
		}
		if !policy.CanWriteDeck(user, deck) {
			return apperror.Forbidden("you do not own this deck")
		}

		front, back := strings.TrimSpace(front), strings.TrimSpace(back)
		if front == "" {
			return apperror.ValidationFailed("front", "card front is required")
		}
		if back == "" {
			return apperror.ValidationFailed("back", "card back is required")
		}

		cards := []*model.Card{{DeckID: deck.ID, Front: front, Back: back}}
		if reverse {
			cards = append(cards, &model.Card{DeckID: deck.ID, Front: back, Back: front})
		}
		if err := tx.Cards().CreateBatch(ctx, cards); err != nil {
			return err
		}
		for _, c := range cards {
			created = append(created, *c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}

	s.logger.Info("cards created",
		slog.String("deck_id", deckID),
		slog.Int("count", len(created)),
	)
	return created, nil
}

// Get returns a card from a deck the user can read.
func (s *CardService) Get(ctx context.Context, user *model.User, cardID string) (*model.Card, error) {
	card, err := loadCard(ctx, s.store, cardID)
	if err != nil {
		return nil, err
	}
	deck, err := s.store.Decks().GetByID(ctx, card.DeckID)
	if err != nil {
		return nil, fmt.Errorf("loading deck of card %s: %w", cardID, err)
	}
	if !policy.CanReadCard(user, card, deck) {
		return nil, apperror.Forbidden("you cannot read the deck this card belongs to")
	}
	return card, nil
}

// Search returns the cards of a readable deck matching q, in insertion order.
func (s *CardService) Search(ctx context.Context, user *model.User, deckID string, q CardQuery) ([]model.Card, error) {
	f, err := s.readableFilter(ctx, user, deckID, q)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.Cards().Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("searching cards: %w", err)
	}
	return cards, nil
}

// Count returns how many cards Search would return for the same arguments.
func (s *CardService) Count(ctx context.Context, user *model.User, deckID string, q CardQuery) (int, error) {
	f, err := s.readableFilter(ctx, user, deckID, q)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Cards().Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("counting cards: %w", err)
	}
	return n, nil
}

func (s *CardService) readableFilter(ctx context.Context, user *model.User, deckID string, q CardQuery) (repository.CardFilter, error) {
	deck, err := s.store.Decks().GetByID(ctx, deckID)
	if err != nil {
		return repository.CardFilter{}, err
	}
	if !policy.CanReadDeck(user, deck) {
		return repository.CardFilter{}, apperror.Forbidden("you do not own this deck")
	}

	f := repository.CardFilter{
		DeckID:  deck.ID,
		Query:   q.Query,
		OnlyNew: q.OnlyNew,
	}
	if f.Page, err = parsePage(q.Limit, q.Offset); err != nil {
		return f, err
	}
	if q.Due != "" {
		due, err := parseTimestamp("due", q.Due)
		if err != nil {
			return f, err
		}
		f.DueBefore = &due
	}
	if q.Revised != "" {
		revised, err := parseTimestamp("revised", q.Revised)
		if err != nil {
			return f, err
		}
		f.RevisedOn = &revised
	}
	return f, nil
}

// Update applies patch to one card of a deck the user owns.
func (s *CardService) Update(ctx context.Context, user *model.User, cardID string, patch CardPatch) (*model.Card, error) {
	var updated *model.Card

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		card, err := s.writableCard(ctx, tx, user, cardID, map[string]*model.Deck{})
		if err != nil {
			return err
		}
		if err := applyPatch(card, patch); err != nil {
			return err
		}
		if err := tx.Cards().Update(ctx, card); err != nil {
			return err
		}
		updated = card
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating card %s: %w", cardID, err)
	}
	return updated, nil
}

// BulkUpdate applies every patch in one transaction. The first failing
// entry (missing id, unknown card, card the user cannot write, invalid field)
// aborts the whole batch and nothing is written.
func (s *CardService) BulkUpdate(ctx context.Context, user *model.User, patches []CardPatch) ([]model.Card, error) {
	updated := make([]model.Card, 0, len(patches))

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		decks := map[string]*model.Deck{}
		for i, patch := range patches {
			id := strings.TrimSpace(patch.ID)
			if id == "" {
				return apperror.ValidationFailed("id", fmt.Sprintf("entry %d is missing the id field", i))
			}
			card, err := s.writableCard(ctx, tx, user, id, decks)
			if err != nil {
				return err
			}
			if err := applyPatch(card, patch); err != nil {
				return err
			}
			if err := tx.Cards().Update(ctx, card); err != nil {
				return err
			}
			updated = append(updated, *card)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("bulk card update rejected",
			slog.Int("entries", len(patches)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating cards: %w", err)
	}

	s.logger.Info("cards updated", slog.Int("count", len(updated)))
	return updated, nil
}

// Delete removes a card from a deck the user owns and returns it as it was.
func (s *CardService) Delete(ctx context.Context, user *model.User, cardID string) (*model.Card, error) {
	var deleted *model.Card

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		card, err := s.writableCard(ctx, tx, user, cardID, map[string]*model.Deck{})
		if err != nil {
			return err
		}
		if err := tx.Cards().Delete(ctx, card.ID); err != nil {
			return err
		}
		deleted = card
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deleting card %s: %w", cardID, err)
	}

	s.logger.Info("card deleted", slog.String("id", cardID))
	return deleted, nil
}

// writableCard loads a card and checks the user owns its deck. decks caches
// decks already loaded in this transaction.
func (s *CardService) writableCard(ctx context.Context, tx repository.Tx, user *model.User, cardID string, decks map[string]*model.Deck) (*model.Card, error) {
	card, err := loadCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	deck := decks[card.DeckID]
	if deck == nil {
		if deck, err = tx.Decks().GetByID(ctx, card.DeckID); err != nil {
			return nil, err
		}
		decks[deck.ID] = deck
	}
	if !policy.CanWriteCard(user, card, deck) {
		return nil, apperror.Forbidden(fmt.Sprintf("you do not have permission to change card %s", cardID))
	}
	return card, nil
}

func loadCard(ctx context.Context, tx repository.Tx, cardID string) (*model.Card, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, apperror.ValidationFailed("id", "card ID is required")
	}
	return tx.Cards().GetByID(ctx, cardID)
}

// applyPatch validates patch and writes it onto card. Dates go through the
// clock normalizer; last_revised keeps only the date.
func applyPatch(card *model.Card, patch CardPatch) error {
	if patch.Front != nil {
		front := strings.TrimSpace(*patch.Front)
		if front == "" {
			return apperror.ValidationFailed("front", "card front cannot be empty")
		}
		card.Front = front
	}
	if patch.Back != nil {
		back := strings.TrimSpace(*patch.Back)
		if back == "" {
			return apperror.ValidationFailed("back", "card back cannot be empty")
		}
		card.Back = back
	}

	level, err := parseLevel(patch.KnowledgeLevel)
	if err != nil {
		return err
	}
	if level != nil {
		card.KnowledgeLevel = *level
	}

	if patch.LastRevised != nil && *patch.LastRevised != "" {
		t, err := parseTimestamp("last_revised", *patch.LastRevised)
		if err != nil {
			return err
		}
		d := clock.Date(t)
		card.LastRevised = &d
	}
	if patch.RevisionDue != nil && *patch.RevisionDue != "" {
		t, err := parseTimestamp("revision_due", *patch.RevisionDue)
		if err != nil {
			return err
		}
		t = clock.Normalize(t)
		card.RevisionDue = &t
	}
	return nil
}
