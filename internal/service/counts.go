package service

import (
	"context"
	"fmt"

	"github.com/sakif/flashdeck/internal/clock"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// CountAggregator computes per-deck card counts with COUNT queries, one per
// requested category, never loading the cards themselves.
type CountAggregator struct {
	clock clock.Clock
}

func NewCountAggregator(c clock.Clock) *CountAggregator {
	if c == nil {
		c = clock.System{}
	}
	return &CountAggregator{clock: c}
}

// CountsFor returns the counts of deckID for the given categories. "due" is
// relative to the viewer: a card is due when revision_due <= UTC now +
// tzutcdelta. Categories not asked for stay nil.
func (a *CountAggregator) CountsFor(ctx context.Context, cards repository.CardRepository, deckID string, categories []string, tzutcdelta int) (model.DeckCounts, error) {
	var counts model.DeckCounts

	for _, category := range categories {
		f := repository.CardFilter{DeckID: deckID}
		var dst **int

		switch category {
		case model.CountAll:
			dst = &counts.All
		case model.CountNew:
			f.OnlyNew = true
			dst = &counts.New
		case model.CountDue:
			due := clock.LocalNow(a.clock, tzutcdelta)
			f.DueBefore = &due
			dst = &counts.Due
		default:
			return counts, fmt.Errorf("counting cards: unknown category %q", category)
		}

		n, err := cards.Count(ctx, f)
		if err != nil {
			return counts, fmt.Errorf("counting %s cards of deck %s: %w", category, deckID, err)
		}
		*dst = &n
	}
	return counts, nil
}
