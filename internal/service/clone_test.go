package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/repository"
)

func TestClone_CopiesCardsAndResetsProgress(t *testing.T) {
	e := newTestEnv(t, noon.Add(time.Hour))
	ctx := context.Background()
	john, source := e.germanDeck(t)
	mary := e.user(t, "mary")

	clone, err := e.decks.Clone(ctx, mary, mary.ID, source.ID)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, mary.ID, clone.UserID)
	assert.Equal(t, "German", clone.Name)
	assert.False(t, clone.Shared)
	assert.Equal(t, 2, *clone.All)
	assert.Equal(t, 2, *clone.New)
	assert.Equal(t, 0, *clone.Due)

	cards, err := e.cards.Search(ctx, mary, clone.ID, CardQuery{})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "apfel", cards[0].Front)
	assert.Equal(t, "frau", cards[1].Front)
	assert.Equal(t, "woman", cards[1].Back)
	for _, c := range cards {
		assert.Zero(t, c.KnowledgeLevel)
		assert.Nil(t, c.LastRevised)
		assert.Nil(t, c.RevisionDue)
	}

	// the source is untouched
	orig, err := e.decks.Get(ctx, john, source.ID, "all,new")
	require.NoError(t, err)
	assert.Equal(t, 2, *orig.All)
	assert.Equal(t, 1, *orig.New)
}

func TestClone_Permissions(t *testing.T) {
	e := newTestEnv(t, noon)
	ctx := context.Background()
	john := e.user(t, "john")
	mary := e.user(t, "mary")
	private := e.deck(t, john, "Private", false)
	shared := e.deck(t, john, "Shared", true)

	admin, err := e.users.Create(ctx, "root", "hunter2", true)
	require.NoError(t, err)

	tests := []struct {
		name      string
		requester string
		target    string
		source    string
		wantErr   error
	}{
		{name: "own copy of shared deck", requester: mary.ID, target: mary.ID, source: shared.ID},
		{name: "private deck of someone else", requester: mary.ID, target: mary.ID, source: private.ID, wantErr: apperror.ErrForbidden},
		{name: "into another user's collection", requester: mary.ID, target: john.ID, source: shared.ID, wantErr: apperror.ErrForbidden},
		{name: "admin into another user's collection", requester: admin.ID, target: mary.ID, source: shared.ID},
		{name: "owner copies own private deck", requester: john.ID, target: john.ID, source: private.ID},
		{name: "unknown target", requester: mary.ID, target: "missing", source: shared.ID, wantErr: apperror.ErrNotFound},
		{name: "unknown source", requester: mary.ID, target: mary.ID, source: "missing", wantErr: apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester, err := e.users.Get(ctx, tt.requester)
			require.NoError(t, err)

			_, err = e.decks.Clone(ctx, requester, tt.target, tt.source)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClone_FailureLeavesNoDeck(t *testing.T) {
	store := newTestStore(t)
	ok := newTestEnvWithStore(t, store, noon)
	_, source := ok.germanDeck(t)
	mary := ok.user(t, "mary")

	broken := newTestEnvWithStore(t, failingStore{store}, noon)
	_, err := broken.decks.Clone(context.Background(), mary, mary.ID, source.ID)
	require.ErrorIs(t, err, errDiskFull)

	n, err := store.Decks().Count(context.Background(), repository.DeckFilter{UserID: mary.ID})
	require.NoError(t, err)
	assert.Zero(t, n, "the deck insert must be rolled back with the cards")
}
