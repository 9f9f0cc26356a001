// Package repository declares the persistence contracts the services depend
// on. The SQL implementation lives in repository/sqlstore.
package repository

import (
	"context"
	"time"

	"github.com/sakif/flashdeck/internal/model"
)

// Page is an optional window over an ordered result.
// Offset is only honoured when Limit is set; a nil Limit returns everything.
type Page struct {
	Limit  *int
	Offset int
}

// Window returns the page as (limit, offset, ok). ok is false when no limit
// was requested, in which case the offset is ignored.
func (p Page) Window() (limit, offset int, ok bool) {
	if p.Limit == nil {
		return 0, 0, false
	}
	return *p.Limit, p.Offset, true
}

// CardFilter selects cards inside one deck. All set fields are ANDed.
type CardFilter struct {
	DeckID    string
	Query     string     // case-insensitive substring of front
	OnlyNew   bool       // knowledge_level = 0
	DueBefore *time.Time // revision_due <= DueBefore
	RevisedOn *time.Time // last_revised = date
	Page
}

// DeckFilter selects decks by owner and/or shared flag.
type DeckFilter struct {
	UserID     string // empty: any owner
	SharedOnly bool
	Query      string // case-insensitive substring of name
	Page
}

// UserFilter selects users by username.
type UserFilter struct {
	Query string
	Page
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Search(ctx context.Context, f UserFilter) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

type DeckRepository interface {
	Create(ctx context.Context, deck *model.Deck) error
	GetByID(ctx context.Context, id string) (*model.Deck, error)
	Search(ctx context.Context, f DeckFilter) ([]model.Deck, error)
	// Count ignores f.Page and counts every matching deck.
	Count(ctx context.Context, f DeckFilter) (int, error)
	Update(ctx context.Context, deck *model.Deck) error
	Delete(ctx context.Context, id string) error
}

type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	CreateBatch(ctx context.Context, cards []*model.Card) error
	GetByID(ctx context.Context, id string) (*model.Card, error)
	Search(ctx context.Context, f CardFilter) ([]model.Card, error)
	// Count applies the same filters and window as Search.
	Count(ctx context.Context, f CardFilter) (int, error)
	Update(ctx context.Context, card *model.Card) error
	Delete(ctx context.Context, id string) error
}

// Tx groups the repositories bound to a single database handle, either the
// pool or an open transaction.
type Tx interface {
	Users() UserRepository
	Decks() DeckRepository
	Cards() CardRepository
}

// Store is the root persistence handle. Its own repositories run against the
// pool; WithTx runs fn against a transaction that commits only if fn returns
// nil. Inside fn only the tx argument may be used.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
