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

type cardRepo struct{ conn }

// compile-time check that *cardRepo implements repository.CardRepository
var _ repository.CardRepository = (*cardRepo)(nil)

const cardColumns = `id, deck_id, front, back, knowledge_level, last_revised, revision_due, created_at, updated_at`

// Create inserts card, assigning its ID and timestamps.
func (r *cardRepo) Create(ctx context.Context, card *model.Card) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.insert(ctx, card, now)
}

// CreateBatch inserts cards in order, all with the same creation time. It
// should run inside a transaction so a failure part way leaves nothing behind.
func (r *cardRepo) CreateBatch(ctx context.Context, cards []*model.Card) error {
	now := time.Now().UTC().Truncate(time.Second)
	for _, card := range cards {
		if err := r.insert(ctx, card, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *cardRepo) insert(ctx context.Context, card *model.Card, now time.Time) error {
	card.ID = xid.New().String()
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err := r.exec(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.DeckID,
		card.Front,
		card.Back,
		card.KnowledgeLevel,
		r.d.nullDateArg(card.LastRevised),
		r.d.nullTimeArg(card.RevisionDue),
		r.d.timeArg(card.CreatedAt),
		r.d.timeArg(card.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting card into deck %s: %w", card.DeckID, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no card has that ID.
func (r *cardRepo) GetByID(ctx context.Context, id string) (*model.Card, error) {
	c, err := scanCard(r.queryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("card", id)
		}
		return nil, fmt.Errorf("sqlstore: getting card %s: %w", id, err)
	}
	return c, nil
}

// Search returns the deck's matching cards in insertion order.
func (r *cardRepo) Search(ctx context.Context, f repository.CardFilter) ([]model.Card, error) {
	where, args := r.cardWhere(f)
	q := `SELECT ` + cardColumns + ` FROM cards` + whereClause(where) + ` ORDER BY created_at, id`
	q, args = paginate(q, args, f.Page)

	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: searching cards: %w", err)
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning card: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating cards: %w", err)
	}
	return cards, nil
}

// Count counts what Search would return, including the page window, without
// reading the rows.
func (r *cardRepo) Count(ctx context.Context, f repository.CardFilter) (int, error) {
	where, args := r.cardWhere(f)

	q := `SELECT COUNT(*) FROM cards` + whereClause(where)
	if _, _, ok := f.Window(); ok {
		inner := `SELECT id FROM cards` + whereClause(where) + ` ORDER BY created_at, id`
		inner, args = paginate(inner, args, f.Page)
		q = `SELECT COUNT(*) FROM (` + inner + `) AS page`
	}

	n, err := r.count(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting cards: %w", err)
	}
	return n, nil
}

// Update writes every mutable column. deck_id is never rewritten.
func (r *cardRepo) Update(ctx context.Context, card *model.Card) error {
	card.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := r.exec(ctx,
		`UPDATE cards SET front = ?, back = ?, knowledge_level = ?, last_revised = ?, revision_due = ?, updated_at = ?
		 WHERE id = ?`,
		card.Front,
		card.Back,
		card.KnowledgeLevel,
		r.d.nullDateArg(card.LastRevised),
		r.d.nullTimeArg(card.RevisionDue),
		r.d.timeArg(card.UpdatedAt),
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating card %s: %w", card.ID, err)
	}
	return expectOne(res, "card", card.ID)
}

func (r *cardRepo) Delete(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting card %s: %w", id, err)
	}
	return expectOne(res, "card", id)
}

func (r *cardRepo) cardWhere(f repository.CardFilter) ([]string, []any) {
	where := []string{`deck_id = ?`}
	args := []any{f.DeckID}

	if f.Query != "" {
		where = append(where, r.d.contains(`front`))
		args = append(args, likePattern(f.Query))
	}
	if f.OnlyNew {
		where = append(where, `knowledge_level = 0`)
	}
	if f.DueBefore != nil {
		// NULL never compares true, so cards without a due date are never due.
		where = append(where, `revision_due <= ?`)
		args = append(args, r.d.timeArg(*f.DueBefore))
	}
	if f.RevisedOn != nil {
		where = append(where, `last_revised = ?`)
		args = append(args, r.d.dateArg(*f.RevisedOn))
	}
	return where, args
}

func scanCard(s scanner) (*model.Card, error) {
	var (
		c                model.Card
		lastRevised, due nullTime
		created, updated nullTime
	)
	err := s.Scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.KnowledgeLevel,
		&lastRevised, &due, &created, &updated)
	if err != nil {
		return nil, err
	}
	c.LastRevised = lastRevised.Ptr()
	c.RevisionDue = due.Ptr()
	c.CreatedAt, c.UpdatedAt = created.Time, updated.Time
	return &c, nil
}
