package kaiser

import (
	"fmt"
	"math/rand"
)

// NumSeats is the number of seats in a room.
const NumSeats = 4

// HandSize is the number of cards dealt to each seat.
const HandSize = DeckSize / NumSeats

// Deck represents a shuffled deck of the 36-card domain.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full, shuffled 36-card deck using rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, DeckSize),
		rng:   rng,
	}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards = append(d.cards, Card{suit: suit, rank: rank})
		}
	}
	d.Shuffle()
	return d
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}

// Remaining returns a copy of the remaining cards, top first.
func (d *Deck) Remaining() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// DealRound shuffles a fresh deck from seed and deals HandSize cards to
// each of the four seats. The same seed always produces the same hands,
// which is what crash-recovery replay and the tests rely on.
func DealRound(seed int64) [NumSeats][]Card {
	rng := rand.New(rand.NewSource(seed))
	deck := NewDeck(rng)

	var hands [NumSeats][]Card
	for i := range hands {
		hands[i] = make([]Card, 0, HandSize)
	}
	for i := 0; i < DeckSize; i++ {
		card, ok := deck.Draw()
		if !ok {
			// Cannot happen: the deck holds exactly DeckSize cards.
			panic(fmt.Sprintf("deck exhausted after %d cards", i))
		}
		hands[i%NumSeats] = append(hands[i%NumSeats], card)
	}
	return hands
}
