package kaiser

import "fmt"

// Contract value bounds.
const (
	MinBid = 7
	MaxBid = 12
)

// Bet is one seat's declaration during the Betting phase: either a pass or
// a contract offer of Value points with a trump suit (or NoTrump).
type Bet struct {
	Seat  int  `json:"seat"`
	Pass  bool `json:"pass,omitempty"`
	Value int  `json:"value,omitempty"`
	Trump Suit `json:"trump,omitempty"`
}

// String returns a short human-readable form, e.g. "seat 2: 9♦" or
// "seat 0: pass".
func (b Bet) String() string {
	if b.Pass {
		return fmt.Sprintf("seat %d: pass", b.Seat)
	}
	if b.Trump == NoTrump {
		return fmt.Sprintf("seat %d: %d no-trump", b.Seat, b.Value)
	}
	return fmt.Sprintf("seat %d: %d%s", b.Seat, b.Value, b.Trump)
}

// Valid reports whether the bet is well-formed.
func (b Bet) Valid() bool {
	if b.Seat < 0 || b.Seat >= NumSeats {
		return false
	}
	if b.Pass {
		return true
	}
	if b.Value < MinBid || b.Value > MaxBid {
		return false
	}
	switch b.Trump {
	case Spades, Hearts, Diamonds, Clubs, NoTrump:
		return true
	}
	return false
}

// Beats reports whether b outranks prev. Bets rank by value; at equal
// value a no-trump declaration outranks a trump one. A pass never beats
// anything and nothing needs to beat a nil high bet.
func (b Bet) Beats(prev *Bet) bool {
	if b.Pass {
		return false
	}
	if prev == nil || prev.Pass {
		return true
	}
	if b.Value != prev.Value {
		return b.Value > prev.Value
	}
	return b.Trump == NoTrump && prev.Trump != NoTrump
}

// LegalBets returns every bet the seat may make given the current high
// bet. Passing is always legal; every well-formed bet that outranks the
// high bet is legal. The result is never empty.
func LegalBets(high *Bet, seat int) []Bet {
	out := []Bet{{Seat: seat, Pass: true}}
	for value := MinBid; value <= MaxBid; value++ {
		for _, trump := range []Suit{Spades, Hearts, Diamonds, Clubs, NoTrump} {
			b := Bet{Seat: seat, Value: value, Trump: trump}
			if b.Beats(high) {
				out = append(out, b)
			}
		}
	}
	return out
}

// legalBet reports whether b is a member of LegalBets(high, b.Seat).
func legalBet(high *Bet, b Bet) bool {
	if !b.Valid() {
		return false
	}
	return b.Pass || b.Beats(high)
}

// HighBet returns the surviving (last non-passing) bet of a betting
// sequence, or nil if everyone passed so far.
func HighBet(bets []Bet) *Bet {
	var high *Bet
	for i := range bets {
		if !bets[i].Pass {
			high = &bets[i]
		}
	}
	return high
}
