package kaiser

// TrickCard is one card played into the current trick, tagged with the
// seat that played it.
type TrickCard struct {
	Seat int  `json:"seat"`
	Card Card `json:"card"`
}

// Trick is the ordered list of cards played this trick, at most one per
// seat. It is cleared and scored atomically when full.
type Trick []TrickCard

// Full reports whether every seat has played into the trick.
func (t Trick) Full() bool { return len(t) >= NumSeats }

// LedSuit returns the suit of the first card played, or "" for an empty
// trick.
func (t Trick) LedSuit() Suit {
	if len(t) == 0 {
		return ""
	}
	return t[0].Card.Suit()
}

// Contains reports whether the trick holds the given card.
func (t Trick) Contains(c Card) bool {
	for _, tc := range t {
		if tc.Card == c {
			return true
		}
	}
	return false
}

// hasSuit reports whether hand contains at least one card of suit.
func hasSuit(hand []Card, suit Suit) bool {
	for _, c := range hand {
		if c.Suit() == suit {
			return true
		}
	}
	return false
}

// LegalCards returns the subset of hand that may legally be played into
// trick under trump. The led suit must be followed when held; a seat void
// in the led suit must play trump when holding it (no-trump contracts
// carry no such obligation); otherwise any card goes. Leading is always
// unconstrained. The result is never empty for a non-empty hand.
func LegalCards(hand []Card, trick Trick, trump Suit) []Card {
	if len(trick) == 0 || len(hand) == 0 {
		return append([]Card(nil), hand...)
	}

	led := trick.LedSuit()
	if hasSuit(hand, led) {
		out := make([]Card, 0, len(hand))
		for _, c := range hand {
			if c.Suit() == led {
				out = append(out, c)
			}
		}
		return out
	}

	if trump != NoTrump && trump != led && hasSuit(hand, trump) {
		out := make([]Card, 0, len(hand))
		for _, c := range hand {
			if c.Suit() == trump {
				out = append(out, c)
			}
		}
		return out
	}

	return append([]Card(nil), hand...)
}

// ResolveTrick returns the seat winning a full trick: the highest trump if
// any trump was played, otherwise the highest card of the led suit. Ties
// are impossible because no card is ever duplicated.
func ResolveTrick(trick Trick, trump Suit) (int, error) {
	if !trick.Full() {
		return -1, ErrInvalidAction
	}

	best := trick[0]
	for _, tc := range trick[1:] {
		if beatsCard(tc.Card, best.Card, trick.LedSuit(), trump) {
			best = tc
		}
	}
	return best.Seat, nil
}

// beatsCard reports whether challenger beats incumbent given the led suit
// and trump.
func beatsCard(challenger, incumbent Card, led, trump Suit) bool {
	if trump != NoTrump {
		ct := challenger.Suit() == trump
		it := incumbent.Suit() == trump
		if ct != it {
			return ct
		}
		if ct && it {
			return challenger.Strength() > incumbent.Strength()
		}
	}
	// Neither trumps: only cards of the led suit compete.
	cl := challenger.Suit() == led
	il := incumbent.Suit() == led
	if cl != il {
		return cl
	}
	if !cl {
		return false
	}
	return challenger.Strength() > incumbent.Strength()
}
