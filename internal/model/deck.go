package model

import "time"

// Deck is a named collection of cards owned by exactly one user.
type Deck struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Owner     string    `json:"user"` // owner username, joined on read
	Name      string    `json:"name"       db:"name"`
	Shared    bool      `json:"shared"     db:"shared"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	DeckCounts
}

// Count categories understood by the count aggregator.
const (
	CountAll = "all"
	CountNew = "new"
	CountDue = "due"
)

// DeckCounts carries the aggregate card counts requested for a deck.
// A nil field was not requested and is left out of the JSON entirely.
type DeckCounts struct {
	All *int `json:"all_count,omitempty"`
	New *int `json:"new_count,omitempty"`
	Due *int `json:"due_count,omitempty"`
}
