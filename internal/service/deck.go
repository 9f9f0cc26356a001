package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/policy"
	"github.com/sakif/flashdeck/internal/repository"
)

// MaxDeckNameLength bounds deck names.
const MaxDeckNameLength = 200

// DeckQuery holds the raw search parameters for deck listings.
type DeckQuery struct {
	Query      string
	Limit      string
	Offset     string
	CardCount  string // comma separated count categories, e.g. "all,due"
	TotalCount bool   // also report the number of matches before pagination
}

// DeckPage is one page of decks. Total is set only when asked for.
type DeckPage struct {
	Decks []model.Deck
	Total *int
}

// DeckService holds the deck rules: ownership, sharing, counts and cloning.
type DeckService struct {
	store  repository.Store
	counts *CountAggregator
	logger *slog.Logger
}

func NewDeckService(store repository.Store, counts *CountAggregator, logger *slog.Logger) *DeckService {
	return &DeckService{store: store, counts: counts, logger: logger}
}

// Create makes a new private deck owned by user.
func (s *DeckService) Create(ctx context.Context, user *model.User, name string) (*model.Deck, error) {
	name, err := validDeckName(name)
	if err != nil {
		return nil, err
	}

	deck := &model.Deck{UserID: user.ID, Name: name}
	if err := s.store.Decks().Create(ctx, deck); err != nil {
		s.logger.Error("failed to create deck",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating deck: %w", err)
	}

	s.logger.Info("deck created",
		slog.String("id", deck.ID),
		slog.String("user_id", user.ID),
	)
	return deck, nil
}

// Get returns a readable deck with the requested counts, "due" measured in
// the viewer's timezone.
func (s *DeckService) Get(ctx context.Context, user *model.User, deckID, cardCount string) (*model.Deck, error) {
	categories, err := ParseCountCategories(cardCount)
	if err != nil {
		return nil, err
	}

	deck, err := s.store.Decks().GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadDeck(user, deck) {
		return nil, apperror.Forbidden("you do not own this deck")
	}

	if deck.DeckCounts, err = s.counts.CountsFor(ctx, s.store.Cards(), deck.ID, categories, tzOf(user)); err != nil {
		return nil, err
	}
	return deck, nil
}

// SearchShared lists shared decks. viewer may be nil for anonymous callers;
// their "due" counts use UTC.
func (s *DeckService) SearchShared(ctx context.Context, viewer *model.User, q DeckQuery) (*DeckPage, error) {
	return s.search(ctx, viewer, repository.DeckFilter{SharedOnly: true}, q)
}

// SearchUserDecks lists every deck owned by ownerID, shared or not. Only the
// owner or an admin may do so.
func (s *DeckService) SearchUserDecks(ctx context.Context, requester *model.User, ownerID string, q DeckQuery) (*DeckPage, error) {
	owner, err := s.store.Users().GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAdminUser(requester, owner) {
		return nil, apperror.Forbidden("you do not have the right to view this user's decks")
	}
	return s.search(ctx, requester, repository.DeckFilter{UserID: owner.ID}, q)
}

func (s *DeckService) search(ctx context.Context, viewer *model.User, f repository.DeckFilter, q DeckQuery) (*DeckPage, error) {
	categories, err := ParseCountCategories(q.CardCount)
	if err != nil {
		return nil, err
	}
	if f.Page, err = parsePage(q.Limit, q.Offset); err != nil {
		return nil, err
	}
	f.Query = q.Query

	page := &DeckPage{}
	if q.TotalCount {
		total, err := s.store.Decks().Count(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("counting decks: %w", err)
		}
		page.Total = &total
	}

	if page.Decks, err = s.store.Decks().Search(ctx, f); err != nil {
		return nil, fmt.Errorf("searching decks: %w", err)
	}

	for i := range page.Decks {
		d := &page.Decks[i]
		if d.DeckCounts, err = s.counts.CountsFor(ctx, s.store.Cards(), d.ID, categories, tzOf(viewer)); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// Update renames and (un)shares a deck the user owns. A nil name keeps the
// current name. A nil shared unshares the deck: clients that only rename
// must send shared again to keep the deck public.
func (s *DeckService) Update(ctx context.Context, user *model.User, deckID string, name *string, shared *bool) (*model.Deck, error) {
	var updated *model.Deck

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		deck, err := tx.Decks().GetByID(ctx, deckID)
		if err != nil {
			return err
		}
		if !policy.CanWriteDeck(user, deck) {
			return apperror.Forbidden("you do not own this deck")
		}

		if name != nil {
			if deck.Name, err = validDeckName(*name); err != nil {
				return err
			}
		}
		deck.Shared = shared != nil && *shared

		if err := tx.Decks().Update(ctx, deck); err != nil {
			return err
		}
		updated = deck
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating deck %s: %w", deckID, err)
	}

	s.logger.Info("deck updated",
		slog.String("id", updated.ID),
		slog.Bool("shared", updated.Shared),
	)
	return updated, nil
}

// Delete removes a deck the user owns, together with its cards, and returns
// the deck as it was.
func (s *DeckService) Delete(ctx context.Context, user *model.User, deckID string) (*model.Deck, error) {
	var deleted *model.Deck

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		deck, err := tx.Decks().GetByID(ctx, deckID)
		if err != nil {
			return err
		}
		if !policy.CanWriteDeck(user, deck) {
			return apperror.Forbidden("you do not own this deck")
		}
		if err := tx.Decks().Delete(ctx, deck.ID); err != nil {
			return err
		}
		deleted = deck
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deleting deck %s: %w", deckID, err)
	}

	s.logger.Info("deck deleted", slog.String("id", deckID))
	return deleted, nil
}

func validDeckName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "deck name is required")
	}
	if utf8.RuneCountInString(name) > MaxDeckNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("deck name must be %d characters or less", MaxDeckNameLength))
	}
	return name, nil
}

func tzOf(user *model.User) int {
	if user == nil {
		return 0
	}
	return user.TZUTCDelta
}
