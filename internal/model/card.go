package model

import (
	"encoding/json"
	"time"
)

// Card is one front/back pair inside a deck.
//
// KnowledgeLevel 0 means the card has never been studied ("new").
// RevisionDue is a normalized timestamp, LastRevised a date (midnight UTC).
// A nil RevisionDue is never due.
type Card struct {
	ID             string     `db:"id"`
	DeckID         string     `db:"deck_id"`
	Front          string     `db:"front"`
	Back           string     `db:"back"`
	KnowledgeLevel int        `db:"knowledge_level"`
	LastRevised    *time.Time `db:"last_revised"`
	RevisionDue    *time.Time `db:"revision_due"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

type cardJSON struct {
	ID             string  `json:"id"`
	DeckID         string  `json:"deck_id"`
	Front          string  `json:"front"`
	Back           string  `json:"back"`
	KnowledgeLevel int     `json:"knowledge_level"`
	LastRevised    *string `json:"last_revised"`
	RevisionDue    *string `json:"revision_due"`
}

// MarshalJSON renders study dates as naive ISO-8601 strings: last_revised as
// a date, revision_due as a date-time without an offset.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{
		ID:             c.ID,
		DeckID:         c.DeckID,
		Front:          c.Front,
		Back:           c.Back,
		KnowledgeLevel: c.KnowledgeLevel,
		LastRevised:    formatTime(c.LastRevised, dateLayout),
		RevisionDue:    formatTime(c.RevisionDue, dateTimeLayout),
	})
}

func formatTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(layout)
	return &s
}
