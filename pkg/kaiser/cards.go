package kaiser

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// NoTrump is the pseudo-suit a no-trump contract declares.
const NoTrump Suit = "NT"

// Suits lists the four real suits in deal order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank represents a card rank. The game uses the 36-card domain 6..A.
type Rank string

const (
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// Ranks lists all ranks in ascending strength order.
var Ranks = []Rank{Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// DeckSize is the number of cards in the live game at all times.
const DeckSize = 36

// rankOrder maps ranks to their trick-taking strength.
var rankOrder = map[Rank]int{
	Six: 0, Seven: 1, Eight: 2, Nine: 3, Ten: 4,
	Jack: 5, Queen: 6, King: 7, Ace: 8,
}

// Card is an immutable playing card value. Cards compare by identity; a
// card never appears twice in a live game.
type Card struct {
	suit Suit
	rank Rank
}

// NewCard creates a card with the given suit and rank.
func NewCard(suit Suit, rank Rank) Card {
	return Card{suit: suit, rank: rank}
}

// Suit returns the card's suit.
func (c Card) Suit() Suit { return c.suit }

// Rank returns the card's rank.
func (c Card) Rank() Rank { return c.rank }

// Strength returns the card's rank order within its suit.
func (c Card) Strength() int { return rankOrder[c.rank] }

// Zero reports whether c is the zero value rather than a real card.
func (c Card) Zero() bool { return c.suit == "" || c.rank == "" }

// String returns a compact representation like "10♥".
func (c Card) String() string {
	return string(c.rank) + string(c.suit)
}

// The two counter cards of the Kaiser family, mapped onto the 36-card
// deck: the trick capturing the 6♥ is worth five extra points, the trick
// capturing the 6♠ loses three.
var (
	BonusCard   = Card{suit: Hearts, rank: Six}
	PenaltyCard = Card{suit: Spades, rank: Six}
)

// cardJSON is the wire/persistence form of a Card.
type cardJSON struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON implements json.Marshaler.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Suit: string(c.suit), Rank: string(c.rank)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj cardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}

	switch cj.Suit {
	case "♠", "s", "S", "spades", "Spades":
		c.suit = Spades
	case "♥", "h", "H", "hearts", "Hearts":
		c.suit = Hearts
	case "♦", "d", "D", "diamonds", "Diamonds":
		c.suit = Diamonds
	case "♣", "c", "C", "clubs", "Clubs":
		c.suit = Clubs
	default:
		return fmt.Errorf("invalid suit: %s", cj.Suit)
	}

	if _, ok := rankOrder[Rank(cj.Rank)]; !ok {
		return fmt.Errorf("invalid rank: %s", cj.Rank)
	}
	c.rank = Rank(cj.Rank)
	return nil
}
