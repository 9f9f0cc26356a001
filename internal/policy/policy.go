// Package policy decides who may read or change which entity.
//
// Each predicate takes the already-resolved requesting user and the target and
// answers with a bool. Turning false into a 403 is the caller's job. A nil user
// is an anonymous viewer: it may read shared decks and nothing else.
package policy

import "github.com/sakif/flashdeck/internal/model"

// CanReadDeck reports whether user may see deck and its cards.
func CanReadDeck(user *model.User, deck *model.Deck) bool {
	if deck == nil {
		return false
	}
	return deck.Shared || isOwner(user, deck)
}

// CanWriteDeck reports whether user may rename, share, delete or add cards to deck.
func CanWriteDeck(user *model.User, deck *model.Deck) bool {
	return deck != nil && isOwner(user, deck)
}

// CanReadCard delegates to the card's deck; card.DeckID must be deck.ID.
func CanReadCard(user *model.User, card *model.Card, deck *model.Deck) bool {
	return card != nil && deck != nil && card.DeckID == deck.ID && CanReadDeck(user, deck)
}

// CanWriteCard delegates to the card's deck; card.DeckID must be deck.ID.
func CanWriteCard(user *model.User, card *model.Card, deck *model.Deck) bool {
	return card != nil && deck != nil && card.DeckID == deck.ID && CanWriteDeck(user, deck)
}

// CanAdminUser reports whether requester may manage target's account and decks.
func CanAdminUser(requester, target *model.User) bool {
	if requester == nil || target == nil {
		return false
	}
	return requester.ID == target.ID || requester.Admin
}

func isOwner(user *model.User, deck *model.Deck) bool {
	return user != nil && user.ID != "" && deck.UserID == user.ID
}
