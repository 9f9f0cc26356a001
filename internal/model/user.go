// Package model defines the entities stored by flashdeck and their JSON shape.
package model

import "time"

// User is a registered account.
//
// TZUTCDelta is a signed number of seconds such that UTC now + TZUTCDelta is
// the user's local wall clock. It is refreshed on every successful login and
// decides which cards count as due when this user looks at a deck.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"` // bcrypt, never serialized
	Admin        bool      `json:"admin"      db:"admin"`
	TZUTCDelta   int       `json:"tzutcdelta" db:"tzutcdelta"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
