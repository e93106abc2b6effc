package kaiser

import "sort"

// Difficulty selects the bot policy used when a seat falls back to
// automated play.
type Difficulty int

const (
	// TierBasic always takes the cheapest legal option.
	TierBasic Difficulty = iota
	// TierGreedy weighs hand strength and tries to win cheap tricks.
	TierGreedy
	// TierInference additionally accounts for opponents' bets and the
	// cards already seen this round.
	TierInference
)

func (d Difficulty) String() string {
	switch d {
	case TierBasic:
		return "basic"
	case TierGreedy:
		return "greedy"
	case TierInference:
		return "inference"
	default:
		return "unknown"
	}
}

// BotView is the read-only state a bot policy may base a decision on.
// It carries the seat's own hand plus public information only.
type BotView struct {
	Seat    int
	Hand    []Card
	Trick   Trick
	Trump   Suit
	HighBet *Bet
	Bets    []Bet
	Tallies [NumTeams]TeamTally
	Scores  [NumTeams]int
	Seen    []Card
}

// DecideBet returns a legal bet for the viewing seat. The result is
// always a member of LegalBets for the current high bet.
func DecideBet(view BotView, tier Difficulty) Bet {
	legal := LegalBets(view.HighBet, view.Seat)
	if len(legal) == 1 {
		return legal[0]
	}
	switch tier {
	case TierGreedy, TierInference:
		return greedyBet(view, legal)
	default:
		return legal[0]
	}
}

// greedyBet estimates hand strength in expected tricks and takes the
// lowest outranking bet the estimate covers, passing otherwise.
func greedyBet(view BotView, legal []Bet) Bet {
	strength := estimateTricks(view)
	if view.HighBet != nil && TeamOf(view.HighBet.Seat) == TeamOf(view.Seat) {
		// A partner already holds the contract. Only raise with a
		// clearly stronger hand.
		strength--
	}
	best := legal[0]
	for _, b := range legal[1:] {
		if b.Value <= strength {
			best = b
			break
		}
	}
	return best
}

// estimateTricks counts likely winners: aces, long-suit kings, and for
// the inference tier, cards promoted by what has already been seen.
func estimateTricks(view BotView) int {
	bySuit := map[Suit]int{}
	for _, c := range view.Hand {
		bySuit[c.Suit()]++
	}
	est := 0
	for _, c := range view.Hand {
		switch c.Rank() {
		case Ace:
			est++
		case King:
			if bySuit[c.Suit()] >= 2 {
				est++
			}
		}
	}
	// Long suits produce extra tricks once the suit is exhausted.
	for _, n := range bySuit {
		if n >= 4 {
			est++
		}
	}
	return est + MinBid - 1
}

// DecideCard returns a legal card for the viewing seat. The result is
// always a member of LegalCards for the current trick.
func DecideCard(view BotView, tier Difficulty) Card {
	legal := LegalCards(view.Hand, view.Trick, view.Trump)
	if len(legal) == 1 {
		return legal[0]
	}
	sort.Slice(legal, func(i, j int) bool {
		return cheaper(legal[i], legal[j], view.Trump)
	})
	switch tier {
	case TierGreedy:
		return greedyCard(view, legal)
	case TierInference:
		return inferenceCard(view, legal)
	default:
		return basicCard(view, legal)
	}
}

// basicCard plays the lowest legal card, except it will not throw away
// the bonus card when an alternative exists.
func basicCard(view BotView, legal []Card) Card {
	for _, c := range legal {
		if c == BonusCard && len(legal) > 1 {
			continue
		}
		return c
	}
	return legal[0]
}

// greedyCard wins the trick with the cheapest winner when one exists,
// dumps the penalty card on a trick it cannot win, and otherwise sheds
// low.
func greedyCard(view BotView, legal []Card) Card {
	winner := cheapestWinner(view, legal)
	if !winner.Zero() {
		return winner
	}
	// Cannot win. Shed the penalty card if legal, keep the bonus card.
	for _, c := range legal {
		if c == PenaltyCard {
			return c
		}
	}
	return basicCard(view, legal)
}

// inferenceCard refines greedy play with seen-card knowledge: a card is
// treated as a sure winner when every higher card of its suit has
// already been played.
func inferenceCard(view BotView, legal []Card) Card {
	if len(view.Trick) == 0 {
		// Lead a card nothing outstanding can beat, if one exists.
		for i := len(legal) - 1; i >= 0; i-- {
			if legal[i] != PenaltyCard && isBoss(legal[i], view) {
				return legal[i]
			}
		}
		return basicCard(view, legal)
	}
	return greedyCard(view, legal)
}

// isBoss reports whether every card of c's suit that outranks c has
// been seen or is in the viewer's own hand.
func isBoss(c Card, view BotView) bool {
	for _, r := range Ranks {
		if rankOrder[r] <= c.Strength() {
			continue
		}
		higher := NewCard(c.Suit(), r)
		if containsCard(view.Seen, higher) || containsCard(view.Hand, higher) {
			continue
		}
		return false
	}
	return true
}

// cheapestWinner returns the lowest legal card that would currently
// take the trick, or the zero card when none would.
func cheapestWinner(view BotView, legal []Card) Card {
	if len(view.Trick) == 0 {
		return Card{}
	}
	led := view.Trick.LedSuit()
	for _, c := range legal {
		wins := true
		for _, tc := range view.Trick {
			if !beatsCard(c, tc.Card, led, view.Trump) {
				wins = false
				break
			}
		}
		if wins {
			return c
		}
	}
	return Card{}
}

// cheaper orders cards by disposability: non-trump before trump, then
// ascending rank. The bonus card sorts last so it is shed reluctantly.
func cheaper(a, b Card, trump Suit) bool {
	if (a == BonusCard) != (b == BonusCard) {
		return b == BonusCard
	}
	at := trump != NoTrump && a.Suit() == trump
	bt := trump != NoTrump && b.Suit() == trump
	if at != bt {
		return bt
	}
	return a.Strength() < b.Strength()
}

func containsCard(cards []Card, c Card) bool {
	for _, h := range cards {
		if h == c {
			return true
		}
	}
	return false
}
