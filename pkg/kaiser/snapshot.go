package kaiser

import "time"

// SeatSnapshot is the persisted/broadcast form of a Seat.
type SeatSnapshot struct {
	Index     int      `json:"index"`
	Kind      SeatKind `json:"kind"`
	PlayerID  string   `json:"player_id,omitempty"`
	Connected bool     `json:"connected"`
	Ready     bool     `json:"ready"`
	Acked     bool     `json:"acked"`
	Hand      []Card   `json:"hand,omitempty"`
	HandSize  int      `json:"hand_size"`
	Bet       *Bet     `json:"bet,omitempty"`
	Missed    int      `json:"missed"`
}

// Snapshot is a point-in-time copy of the full room state. It is
// sufficient to resume the room after a process restart without replaying
// prior rounds, and doubles as the payload of every outbound event.
type Snapshot struct {
	RoomID      string                 `json:"room_id"`
	Phase       Phase                  `json:"phase"`
	Round       int                    `json:"round"`
	TrickNo     int                    `json:"trick_no"`
	Dealer      int                    `json:"dealer"`
	AwaitedSeat int                    `json:"awaited_seat"`
	DecisionSeq uint64                 `json:"decision_seq"`
	Deadline    time.Time              `json:"deadline,omitempty"`
	Seats       [NumSeats]SeatSnapshot `json:"seats"`
	Trick       Trick                  `json:"trick,omitempty"`
	Bets        []Bet                  `json:"bets,omitempty"`
	Contract    *Bet                   `json:"contract,omitempty"`
	Tallies     [NumTeams]TeamTally    `json:"tallies"`
	Scores      [NumTeams]int          `json:"scores"`
	Won         [NumTeams][]Card       `json:"won,omitempty"`
	RoundSeed   int64                  `json:"round_seed"`
	Deals       int                    `json:"deals"`
	TargetScore int                    `json:"target_score"`
	WinnerTeam  int                    `json:"winner_team"`
}

// ViewFor returns a copy of the snapshot redacted for the given seat:
// every other seat's hand is elided (only its size remains). A negative
// seat produces the spectator view with no hands at all. The deal seed is
// never part of a view.
func (s *Snapshot) ViewFor(seat int) *Snapshot {
	view := *s
	view.RoundSeed = 0
	for i := range view.Seats {
		if i == seat {
			continue
		}
		ss := view.Seats[i]
		ss.Hand = nil
		view.Seats[i] = ss
	}
	return &view
}

// CardCount sums every live card in the snapshot: hands, current trick,
// and captured tricks. After a deal this is always DeckSize.
func (s *Snapshot) CardCount() int {
	n := len(s.Trick)
	for _, seat := range s.Seats {
		n += len(seat.Hand)
	}
	for _, pile := range s.Won {
		n += len(pile)
	}
	return n
}
