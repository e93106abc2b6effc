package kaiser

import (
	"github.com/haldrik/kaiserd/pkg/statemachine"
)

// SeatKind identifies what controls a seat.
type SeatKind string

const (
	SeatVacant SeatKind = "VACANT"
	SeatHuman  SeatKind = "HUMAN"
	SeatBot    SeatKind = "BOT"
)

// SeatStateFn is a seat occupant state function.
type SeatStateFn = statemachine.StateFn[Seat]

// Seat is one of the four game-logic slots in a room. The occupant kind
// (human session vs bot policy) can flip during the game; the hand, bet
// and score data survive the flip.
type Seat struct {
	Index    int
	PlayerID string

	// Live-connection flags, owned by the room loop.
	Connected bool
	Ready     bool
	Acked     bool

	// Game data, disjoint from every other seat and from the trick.
	Hand []Card
	Bet  *Bet

	// Missed decision deadlines since the seat last acted in time.
	Missed int

	sm *statemachine.Machine[Seat]
}

// Occupant state functions. The interesting transitions (takeover,
// reclaim) are dispatched explicitly by the room loop; the states
// themselves are stable.

func seatStateVacant(s *Seat) SeatStateFn { return seatStateVacant }
func seatStateHuman(s *Seat) SeatStateFn  { return seatStateHuman }
func seatStateBot(s *Seat) SeatStateFn    { return seatStateBot }

// NewSeat creates a vacant seat.
func NewSeat(index int) *Seat {
	s := &Seat{Index: index}
	s.sm = statemachine.New(s, seatStateVacant)
	return s
}

// Kind returns the seat's occupant kind.
func (s *Seat) Kind() SeatKind {
	cur := s.sm.Current()
	switch {
	case statemachine.Same(cur, seatStateHuman):
		return SeatHuman
	case statemachine.Same(cur, seatStateBot):
		return SeatBot
	default:
		return SeatVacant
	}
}

// setKind moves the occupant state machine without touching game data.
func (s *Seat) setKind(kind SeatKind) {
	switch kind {
	case SeatHuman:
		s.sm.Dispatch(seatStateHuman)
	case SeatBot:
		s.sm.Dispatch(seatStateBot)
	default:
		s.sm.Dispatch(seatStateVacant)
	}
}

// occupy binds a player identity to a vacant seat.
func (s *Seat) occupy(playerID string) {
	s.PlayerID = playerID
	s.Connected = true
	s.setKind(SeatHuman)
}

// vacate clears the seat back to an unoccupied slot.
func (s *Seat) vacate() {
	s.PlayerID = ""
	s.Connected = false
	s.Ready = false
	s.Acked = false
	s.Missed = 0
	s.Hand = nil
	s.Bet = nil
	s.setKind(SeatVacant)
}

// takeCard removes card from the seat's hand, reporting whether it was
// held.
func (s *Seat) takeCard(card Card) bool {
	for i, c := range s.Hand {
		if c == card {
			s.Hand = append(s.Hand[:i], s.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// holds reports whether the seat's hand contains card.
func (s *Seat) holds(card Card) bool {
	for _, c := range s.Hand {
		if c == card {
			return true
		}
	}
	return false
}

// resetForRound clears per-round seat data.
func (s *Seat) resetForRound() {
	s.Hand = nil
	s.Bet = nil
	s.Acked = false
}
