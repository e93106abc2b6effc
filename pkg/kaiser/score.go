package kaiser

// NumTeams is the number of partnerships: seats 0+2 against seats 1+3.
const NumTeams = 2

// TeamOf returns the team index for a seat.
func TeamOf(seat int) int { return seat % NumTeams }

// Counter card values and the default game target.
const (
	BonusPoints   = 5
	PenaltyPoints = 3

	// DefaultTargetScore ends the game once a team reaches it.
	DefaultTargetScore = 52
)

// TeamTally accumulates one team's results within a single round.
type TeamTally struct {
	Tricks      int  `json:"tricks"`
	TookBonus   bool `json:"took_bonus"`   // captured the 6♥ trick
	TookPenalty bool `json:"took_penalty"` // captured the 6♠ trick
}

// Points returns the raw round points for the tally: one per trick, plus
// five for the bonus trick, minus three for the penalty trick.
func (tt TeamTally) Points() int {
	pts := tt.Tricks
	if tt.TookBonus {
		pts += BonusPoints
	}
	if tt.TookPenalty {
		pts -= PenaltyPoints
	}
	return pts
}

// recordTrick folds a resolved trick into the winner's tally.
func (tt *TeamTally) recordTrick(trick Trick) {
	tt.Tricks++
	if trick.Contains(BonusCard) {
		tt.TookBonus = true
	}
	if trick.Contains(PenaltyCard) {
		tt.TookPenalty = true
	}
}

// ScoreRound computes each team's score delta for a finished round.
// The contract team scores its points only when they meet or exceed the
// declared value; a failed contract scores minus the declared value.
// No-trump contracts double the contract team's delta either way. The
// defending team always scores its raw points.
func ScoreRound(tallies [NumTeams]TeamTally, contract Bet) [NumTeams]int {
	var deltas [NumTeams]int
	contractTeam := TeamOf(contract.Seat)

	for team := 0; team < NumTeams; team++ {
		pts := tallies[team].Points()
		if team != contractTeam {
			deltas[team] = pts
			continue
		}
		if pts >= contract.Value {
			deltas[team] = pts
		} else {
			deltas[team] = -contract.Value
		}
		if contract.Trump == NoTrump {
			deltas[team] *= 2
		}
	}
	return deltas
}

// GameOver reports whether scores end the game and which team won. When
// both teams cross target in the same round the higher score wins; the
// contract team wins a tie, which cannot otherwise be broken.
func GameOver(scores [NumTeams]int, target int, contractTeam int) (bool, int) {
	over := -1
	for team, s := range scores {
		if s < target {
			continue
		}
		if over == -1 || scores[team] > scores[over] {
			over = team
		} else if scores[team] == scores[over] {
			over = contractTeam
		}
	}
	if over == -1 {
		return false, -1
	}
	return true, over
}
