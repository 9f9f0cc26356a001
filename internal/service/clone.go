package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/policy"
	"github.com/sakif/flashdeck/internal/repository"
)

var cloneCounts = []string{model.CountAll, model.CountNew, model.CountDue}

// Clone copies sourceDeckID, with all its cards, into targetUserID's
// collection. The requester must be the target user or an admin, and must be
// able to read the source deck.
//
// The copy keeps the deck name, is private, and every card keeps only its
// front and back: study progress starts over. Everything happens in one
// transaction. The returned deck carries all, new and due counts for the
// requester.
func (s *DeckService) Clone(ctx context.Context, requester *model.User, targetUserID, sourceDeckID string) (*model.Deck, error) {
	var clone *model.Deck

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		target, err := tx.Users().GetByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		if !policy.CanAdminUser(requester, target) {
			return apperror.Forbidden("you do not have the right to add decks for this user")
		}

		source, err := tx.Decks().GetByID(ctx, sourceDeckID)
		if err != nil {
			return err
		}
		if !policy.CanReadDeck(requester, source) {
			return apperror.Forbidden("you cannot copy a deck you cannot read")
		}

		sourceCards, err := tx.Cards().Search(ctx, repository.CardFilter{DeckID: source.ID})
		if err != nil {
			return err
		}

		clone = &model.Deck{UserID: target.ID, Name: source.Name}
		if err := tx.Decks().Create(ctx, clone); err != nil {
			return err
		}

		copies := make([]*model.Card, len(sourceCards))
		for i, c := range sourceCards {
			copies[i] = &model.Card{DeckID: clone.ID, Front: c.Front, Back: c.Back}
		}
		if err := tx.Cards().CreateBatch(ctx, copies); err != nil {
			return err
		}

		clone.DeckCounts, err = s.counts.CountsFor(ctx, tx.Cards(), clone.ID, cloneCounts, requester.TZUTCDelta)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cloning deck %s: %w", sourceDeckID, err)
	}

	s.logger.Info("deck cloned",
		slog.String("source_id", sourceDeckID),
		slog.String("clone_id", clone.ID),
		slog.String("user_id", targetUserID),
	)
	return clone, nil
}
