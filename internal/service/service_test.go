package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/clock"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
	"github.com/sakif/flashdeck/internal/repository/sqlstore"
)

// noon is the instant the "frau" card of the German deck falls due.
var noon = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store repository.Store
	users *UserService
	decks *DeckService
	cards *CardService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()

	s, err := sqlstore.Open(ctx, sqlstore.Options{Driver: sqlstore.DriverSQLite, DSN: ":memory:"}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

// newTestEnv wires the services over a fresh in-memory store with the clock
// frozen at now.
func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newTestStore(t), now)
}

func newTestEnvWithStore(t *testing.T, store repository.Store, now time.Time) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16", time.Hour)
	require.NoError(t, err)

	logger := discardLogger()
	return &testEnv{
		store: store,
		users: NewUserService(store, auth.NewPasswordServiceForTest(), tokens, logger),
		decks: NewDeckService(store, NewCountAggregator(clock.Fixed(now)), logger),
		cards: NewCardService(store, logger),
	}
}

func (e *testEnv) user(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), username, "hunter2")
	require.NoError(t, err)
	return u
}

func (e *testEnv) deck(t *testing.T, owner *model.User, name string, shared bool) *model.Deck {
	t.Helper()
	ctx := context.Background()
	d, err := e.decks.Create(ctx, owner, name)
	require.NoError(t, err)
	if shared {
		d, err = e.decks.Update(ctx, owner, d.ID, nil, &shared)
		require.NoError(t, err)
	}
	return d
}

func (e *testEnv) card(t *testing.T, owner *model.User, deck *model.Deck, front, back string) *model.Card {
	t.Helper()
	cards, err := e.cards.Create(context.Background(), owner, deck.ID, front, back, false)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	return &cards[0]
}

// germanDeck seeds john's shared German deck: "apfel" is new, "frau" has
// been studied and is due at noon on 2024-03-10.
func (e *testEnv) germanDeck(t *testing.T) (*model.User, *model.Deck) {
	t.Helper()
	john := e.user(t, "john")
	d := e.deck(t, john, "German", true)

	e.card(t, john, d, "apfel", "apple")
	frau := e.card(t, john, d, "frau", "woman")

	_, err := e.cards.Update(context.Background(), john, frau.ID, CardPatch{
		KnowledgeLevel: []byte("1"),
		LastRevised:    ptr("2024-03-09"),
		RevisionDue:    ptr("2024-03-10T12:00:00"),
	})
	require.NoError(t, err)
	return john, d
}

func ptr[T any](v T) *T { return &v }

// failingStore makes every CreateBatch inside a transaction fail, after the
// statements before it have already run.
type failingStore struct{ repository.Store }

func (s failingStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(failingTx{tx})
	})
}

type failingTx struct{ repository.Tx }

func (t failingTx) Cards() repository.CardRepository { return failingCards{t.Tx.Cards()} }

type failingCards struct{ repository.CardRepository }

var errDiskFull = errors.New("disk full")

func (failingCards) CreateBatch(context.Context, []*model.Card) error { return errDiskFull }
