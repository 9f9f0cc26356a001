package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

type deckRepo struct{ conn }

// compile-time check that *deckRepo implements repository.DeckRepository
var _ repository.DeckRepository = (*deckRepo)(nil)

// Decks are always read joined with their owner so the JSON can carry the
// owner's username.
const deckSelect = `SELECT d.id, d.user_id, u.username, d.name, d.shared, d.created_at, d.updated_at
	FROM decks d JOIN users u ON u.id = d.user_id`

// Create inserts deck, assigning its ID and timestamps. Owner is filled in
// from the users table.
func (r *deckRepo) Create(ctx context.Context, deck *model.Deck) error {
	now := time.Now().UTC().Truncate(time.Second)
	deck.ID = xid.New().String()
	deck.CreatedAt = now
	deck.UpdatedAt = now

	_, err := r.exec(ctx,
		`INSERT INTO decks (id, user_id, name, shared, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		deck.ID,
		deck.UserID,
		deck.Name,
		deck.Shared,
		r.d.timeArg(deck.CreatedAt),
		r.d.timeArg(deck.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting deck %q: %w", deck.Name, err)
	}

	if err := r.queryRow(ctx, `SELECT username FROM users WHERE id = ?`, deck.UserID).Scan(&deck.Owner); err != nil {
		return fmt.Errorf("sqlstore: reading owner of deck %s: %w", deck.ID, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no deck has that ID.
func (r *deckRepo) GetByID(ctx context.Context, id string) (*model.Deck, error) {
	d, err := scanDeck(r.queryRow(ctx, deckSelect+` WHERE d.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("deck", id)
		}
		return nil, fmt.Errorf("sqlstore: getting deck %s: %w", id, err)
	}
	return d, nil
}

// Search returns matching decks in creation order.
func (r *deckRepo) Search(ctx context.Context, f repository.DeckFilter) ([]model.Deck, error) {
	where, args := deckWhere(r.d, f)
	q := deckSelect + whereClause(where) + ` ORDER BY d.created_at, d.id`
	q, args = paginate(q, args, f.Page)

	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: searching decks: %w", err)
	}
	defer rows.Close()

	decks := []model.Deck{}
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning deck: %w", err)
		}
		decks = append(decks, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating decks: %w", err)
	}
	return decks, nil
}

// Count returns the number of decks matching f, before pagination.
func (r *deckRepo) Count(ctx context.Context, f repository.DeckFilter) (int, error) {
	where, args := deckWhere(r.d, f)
	n, err := r.count(ctx, `SELECT COUNT(*) FROM decks d`+whereClause(where), args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting decks: %w", err)
	}
	return n, nil
}

// Update writes name and shared. The owner never changes.
func (r *deckRepo) Update(ctx context.Context, deck *model.Deck) error {
	deck.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := r.exec(ctx,
		`UPDATE decks SET name = ?, shared = ?, updated_at = ? WHERE id = ?`,
		deck.Name,
		deck.Shared,
		r.d.timeArg(deck.UpdatedAt),
		deck.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating deck %s: %w", deck.ID, err)
	}
	return expectOne(res, "deck", deck.ID)
}

// Delete removes the deck and, through ON DELETE CASCADE, its cards.
func (r *deckRepo) Delete(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting deck %s: %w", id, err)
	}
	return expectOne(res, "deck", id)
}

func deckWhere(d dialect, f repository.DeckFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, `d.user_id = ?`)
		args = append(args, f.UserID)
	}
	if f.SharedOnly {
		where = append(where, `d.shared = ?`)
		args = append(args, true)
	}
	if f.Query != "" {
		where = append(where, d.contains(`d.name`))
		args = append(args, likePattern(f.Query))
	}
	return where, args
}

func scanDeck(s scanner) (*model.Deck, error) {
	var (
		d                model.Deck
		created, updated nullTime
	)
	if err := s.Scan(&d.ID, &d.UserID, &d.Owner, &d.Name, &d.Shared, &created, &updated); err != nil {
		return nil, err
	}
	d.CreatedAt, d.UpdatedAt = created.Time, updated.Time
	return &d, nil
}
