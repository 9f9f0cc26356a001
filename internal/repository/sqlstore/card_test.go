package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// germanDeck seeds the deck used throughout: apfel/apple is new and has no
// due date, frau/woman was studied and is due at noon.
func germanDeck(t *testing.T, s *Store) (*model.Deck, *model.Card, *model.Card) {
	t.Helper()
	ctx := context.Background()
	john := createUser(t, s, "john")
	d := createDeck(t, s, john, "German", true)

	apfel := createCard(t, s, d, "apfel", "apple")
	frau := createCard(t, s, d, "frau", "woman")
	frau.KnowledgeLevel = 1
	frau.RevisionDue = ptr(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	frau.LastRevised = ptr(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if err := s.Cards().Update(ctx, frau); err != nil {
		t.Fatalf("failed to update frau: %v", err)
	}
	return d, apfel, frau
}

func searchFronts(t *testing.T, s *Store, f repository.CardFilter) []string {
	t.Helper()
	cards, err := s.Cards().Search(context.Background(), f)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	fronts := make([]string, len(cards))
	for i, c := range cards {
		fronts[i] = c.Front
	}
	return fronts
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestCardCreate_Defaults(t *testing.T) {
	s := newTestStore(t)
	d, apfel, _ := germanDeck(t, s)

	found, err := s.Cards().GetByID(context.Background(), apfel.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.DeckID != d.ID || found.KnowledgeLevel != 0 || found.LastRevised != nil || found.RevisionDue != nil {
		t.Errorf("GetByID() = %+v, want fresh card in deck %s", found, d.ID)
	}
}

func TestCardGetByID_RoundTripsDates(t *testing.T) {
	s := newTestStore(t)
	_, _, frau := germanDeck(t, s)

	found, err := s.Cards().GetByID(context.Background(), frau.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.RevisionDue == nil || !found.RevisionDue.Equal(*frau.RevisionDue) {
		t.Errorf("RevisionDue = %v, want %v", found.RevisionDue, frau.RevisionDue)
	}
	if found.LastRevised == nil || !found.LastRevised.Equal(*frau.LastRevised) {
		t.Errorf("LastRevised = %v, want %v", found.LastRevised, frau.LastRevised)
	}
}

func TestCardCreateBatch_InOneTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	john := createUser(t, s, "john")
	d := createDeck(t, s, john, "German", false)

	batch := []*model.Card{
		{DeckID: d.ID, Front: "eins", Back: "one"},
		{DeckID: d.ID, Front: "zwei", Back: "two"},
		{DeckID: "no-such-deck", Front: "drei", Back: "three"},
	}
	err := s.WithTx(ctx, func(tx repository.Tx) error {
		return tx.Cards().CreateBatch(ctx, batch)
	})
	if err == nil {
		t.Fatal("CreateBatch() with dangling deck error = nil, want foreign key failure")
	}

	n, err := s.Cards().Count(ctx, repository.CardFilter{DeckID: d.ID})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("cards after failed batch = %d, want 0", n)
	}
}

// =========================================================================
// SEARCH / COUNT TESTS
// =========================================================================

func TestCardSearch_Filters(t *testing.T) {
	s := newTestStore(t)
	d, _, _ := germanDeck(t, s)
	noon := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter repository.CardFilter
		want   []string
	}{
		{"all", repository.CardFilter{DeckID: d.ID}, []string{"apfel", "frau"}},
		{"query is case-insensitive", repository.CardFilter{DeckID: d.ID, Query: "FR"}, []string{"frau"}},
		{"only new", repository.CardFilter{DeckID: d.ID, OnlyNew: true}, []string{"apfel"}},
		{"due at the exact instant", repository.CardFilter{DeckID: d.ID, DueBefore: ptr(noon)}, []string{"frau"}},
		{"not yet due", repository.CardFilter{DeckID: d.ID, DueBefore: ptr(noon.Add(-time.Second))}, []string{}},
		{"revised on date", repository.CardFilter{DeckID: d.ID, RevisedOn: ptr(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))}, []string{"frau"}},
		{"revised on other date", repository.CardFilter{DeckID: d.ID, RevisedOn: ptr(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))}, []string{}},
		{"filters are ANDed", repository.CardFilter{DeckID: d.ID, OnlyNew: true, Query: "frau"}, []string{}},
		{"limit 1 offset 1", repository.CardFilter{DeckID: d.ID, Page: repository.Page{Limit: ptr(1), Offset: 1}}, []string{"frau"}},
		{"limit 0", repository.CardFilter{DeckID: d.ID, Page: repository.Page{Limit: ptr(0)}}, []string{}},
		{"offset without limit ignored", repository.CardFilter{DeckID: d.ID, Page: repository.Page{Offset: 1}}, []string{"apfel", "frau"}},
		{"like wildcards are literal", repository.CardFilter{DeckID: d.ID, Query: "%"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchFronts(t, s, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Search() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Search()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}

			n, err := s.Cards().Count(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("Count() = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestCardSearch_ScopedToDeck(t *testing.T) {
	s := newTestStore(t)
	_, _, _ = germanDeck(t, s)
	jane := createUser(t, s, "jane")
	other := createDeck(t, s, jane, "French", false)
	createCard(t, s, other, "pomme", "apple")

	got := searchFronts(t, s, repository.CardFilter{DeckID: other.ID})
	if len(got) != 1 || got[0] != "pomme" {
		t.Errorf("Search() = %v, want [pomme]", got)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestCardUpdate_ClearsDates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, frau := germanDeck(t, s)

	frau.RevisionDue = nil
	frau.LastRevised = nil
	if err := s.Cards().Update(ctx, frau); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := s.Cards().GetByID(ctx, frau.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.RevisionDue != nil || found.LastRevised != nil {
		t.Errorf("dates = %v, %v; want nil", found.RevisionDue, found.LastRevised)
	}
}

func TestCardUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Cards().Update(context.Background(), &model.Card{ID: "missing", Front: "a", Back: "b"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestCardDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, apfel, _ := germanDeck(t, s)

	if err := s.Cards().Delete(ctx, apfel.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Cards().GetByID(ctx, apfel.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Cards().Delete(ctx, apfel.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
