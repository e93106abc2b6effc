package kaiser

import "fmt"

// handleAction validates and applies one action. The validation is
// complete before any mutation, so a rejected action leaves the room
// untouched.
func (r *Room) handleAction(a Action) error {
	switch a.Type {
	case actionRestore:
		return r.applyRestore(a.restored)
	case actionSeatBot:
		return r.applySeatBot(a.seat, r.Phase())
	}

	var seat *Seat
	if a.synthetic {
		if a.seat < 0 || a.seat >= NumSeats {
			return fmt.Errorf("%w: seat %d out of range", ErrInvalidAction, a.seat)
		}
		seat = r.seats[a.seat]
	} else {
		seat = r.seatByPlayer(a.PlayerID)
		if seat == nil {
			return fmt.Errorf("%w: unknown player %q", ErrInvalidAction, a.PlayerID)
		}
	}

	phase := r.Phase()
	if a.PhaseExpected != "" && a.PhaseExpected != phase {
		return fmt.Errorf("%w: expected phase %s, room is in %s", ErrInvalidAction, a.PhaseExpected, phase)
	}

	switch a.Type {
	case ActionReady:
		return r.applyReady(seat, phase)
	case ActionBet:
		return r.applyBet(seat, phase, a.Bet)
	case ActionPlayCard:
		return r.applyPlay(seat, phase, a.Card)
	case ActionAckSummary:
		return r.applyAck(seat, phase)
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}
}

// applyReady marks a seat ready during team selection and starts the
// first round once every seat is filled and every human seat is ready.
func (r *Room) applyReady(seat *Seat, phase Phase) error {
	if phase != PhaseTeamSelection {
		return fmt.Errorf("%w: ready only valid during team selection", ErrInvalidAction)
	}
	seat.Ready = true
	r.publish(EventSeatReady, seat.Index)

	if r.allReady() {
		r.startRound()
	}
	return nil
}

// applySeatBot fills a vacant seat with a bot during team selection.
func (r *Room) applySeatBot(idx int, phase Phase) error {
	if phase != PhaseTeamSelection {
		return fmt.Errorf("%w: seats are fixed once the game starts", ErrInvalidAction)
	}
	if idx < 0 || idx >= NumSeats {
		return fmt.Errorf("%w: seat %d out of range", ErrInvalidAction, idx)
	}
	seat := r.seats[idx]
	if seat.Kind() != SeatVacant {
		return ErrSeatOccupied
	}
	seat.setKind(SeatBot)
	seat.Ready = true
	r.publish(EventSeatJoined, idx)

	if r.allReady() {
		r.startRound()
	}
	return nil
}

// allReady reports whether the game can leave team selection: no vacant
// seats, and every human seat has declared ready.
func (r *Room) allReady() bool {
	for _, s := range r.seats {
		switch s.Kind() {
		case SeatVacant:
			return false
		case SeatHuman:
			if !s.Ready {
				return false
			}
		}
	}
	return true
}

// applyBet applies one betting declaration and advances the auction.
func (r *Room) applyBet(seat *Seat, phase Phase, bet *Bet) error {
	if phase != PhaseBetting {
		return fmt.Errorf("%w: no betting in phase %s", ErrInvalidAction, phase)
	}
	if seat.Index != r.turn.awaited() {
		return fmt.Errorf("%w: seat %d acted, seat %d awaited", ErrOutOfTurn, seat.Index, r.turn.awaited())
	}
	if bet == nil {
		return fmt.Errorf("%w: bet action without a bet", ErrInvalidAction)
	}

	b := *bet
	b.Seat = seat.Index
	if !legalBet(HighBet(r.bets), b) {
		return fmt.Errorf("%w: %s does not outbid the current high bet", ErrInvalidAction, b)
	}

	r.bets = append(r.bets, b)
	if b.Pass {
		r.passed[seat.Index] = true
	} else {
		sb := b
		seat.Bet = &sb
	}
	seat.Missed = 0
	r.publish(EventBetPlaced, seat.Index)

	r.advanceBetting(seat.Index)
	return nil
}

// advanceBetting decides whether the auction is over and arms the next
// decision point. The auction ends when every seat besides the high
// bidder has passed; a pass from the high bidder only declines to raise,
// the bet itself stands. A redeal happens only when nobody bid at all.
func (r *Room) advanceBetting(last int) {
	high := HighBet(r.bets)

	if high != nil {
		done := true
		for i, p := range r.passed {
			if i != high.Seat && !p {
				done = false
				break
			}
		}
		if done {
			c := *high
			r.contract = &c
			r.log.Infof("room %s: contract %s", r.cfg.ID, c)
			r.beginPlaying()
			return
		}
	} else {
		all := true
		for _, p := range r.passed {
			if !p {
				all = false
				break
			}
		}
		if all {
			r.log.Infof("room %s: all seats passed, redealing", r.cfg.ID)
			r.publish(EventRedeal, -1)
			r.dealer = (r.dealer + 1) % NumSeats
			r.startRound()
			return
		}
	}

	r.armBet(r.nextBidder(last))
}

// nextBidder returns the next clockwise seat still in the auction.
func (r *Room) nextBidder(from int) int {
	for i := 1; i <= NumSeats; i++ {
		idx := (from + i) % NumSeats
		if !r.passed[idx] {
			return idx
		}
	}
	return from
}

// applyPlay applies one card into the current trick.
func (r *Room) applyPlay(seat *Seat, phase Phase, card *Card) error {
	if phase != PhasePlaying {
		return fmt.Errorf("%w: no card play in phase %s", ErrInvalidAction, phase)
	}
	if seat.Index != r.turn.awaited() {
		return fmt.Errorf("%w: seat %d acted, seat %d awaited", ErrOutOfTurn, seat.Index, r.turn.awaited())
	}
	if card == nil || card.Zero() {
		return fmt.Errorf("%w: play action without a card", ErrInvalidAction)
	}
	if !seat.holds(*card) {
		return fmt.Errorf("%w: seat %d does not hold %s", ErrInvalidAction, seat.Index, card)
	}

	legal := LegalCards(seat.Hand, r.trick, r.contract.Trump)
	ok := false
	for _, c := range legal {
		if c == *card {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s breaks suit-following", ErrInvalidAction, card)
	}

	seat.takeCard(*card)
	r.trick = append(r.trick, TrickCard{Seat: seat.Index, Card: *card})
	seat.Missed = 0
	r.publish(EventCardPlayed, seat.Index)
	r.assertCardCount()

	if r.trick.Full() {
		r.finishTrick()
		return nil
	}
	r.armPlay((r.leader + len(r.trick)) % NumSeats)
	return nil
}

// finishTrick scores a full trick atomically and sets up the next one.
func (r *Room) finishTrick() {
	winner, err := ResolveTrick(r.trick, r.contract.Trump)
	if err != nil {
		// Unreachable: finishTrick is only called on a full trick.
		r.log.Errorf("room %s: trick resolution failed: %v", r.cfg.ID, err)
		return
	}

	team := TeamOf(winner)
	r.tallies[team].recordTrick(r.trick)
	for _, tc := range r.trick {
		r.won[team] = append(r.won[team], tc.Card)
	}
	r.trick = nil
	r.trickNo++
	r.leader = winner
	r.log.Debugf("room %s: trick %d to seat %d (team %d)", r.cfg.ID, r.trickNo, winner, team)
	r.publish(EventTrickResolved, winner)
	r.assertCardCount()

	if len(r.seats[0].Hand) == 0 && len(r.seats[1].Hand) == 0 &&
		len(r.seats[2].Hand) == 0 && len(r.seats[3].Hand) == 0 {
		r.finishRound()
		return
	}
	r.armPlay(winner)
}

// finishRound applies round scoring and moves to the summary, or ends the
// game when a team reaches the target score.
func (r *Room) finishRound() {
	deltas := ScoreRound(r.tallies, *r.contract)
	for t := range r.scores {
		r.scores[t] += deltas[t]
	}
	r.log.Infof("room %s: round %d scored %v, totals %v", r.cfg.ID, r.round, deltas, r.scores)

	for _, s := range r.seats {
		s.Acked = false
	}

	over, winner := GameOver(r.scores, r.cfg.TargetScore, TeamOf(r.contract.Seat))
	if over {
		r.winner = winner
		r.turn.cancel()
		r.phase.Dispatch(roomStateGameOver)
		r.publish(EventGameOver, -1)
		return
	}

	r.phase.Dispatch(roomStateRoundSummary)
	r.turn.arm(-1, decisionSummary, r.cfg.SummaryTimeout)
	r.publish(EventRoundScored, -1)
}

// applyAck records a round-summary acknowledgement from a live human
// seat; once all live humans have acknowledged the next round starts
// without waiting out the timer.
func (r *Room) applyAck(seat *Seat, phase Phase) error {
	if phase != PhaseRoundSummary {
		return fmt.Errorf("%w: nothing to acknowledge in phase %s", ErrInvalidAction, phase)
	}
	seat.Acked = true
	if r.allAcked() {
		r.nextRound()
	}
	return nil
}

// allAcked reports whether every connected human seat has acknowledged
// the round summary.
func (r *Room) allAcked() bool {
	any := false
	for _, s := range r.seats {
		if s.Kind() == SeatHuman && s.Connected {
			any = true
			if !s.Acked {
				return false
			}
		}
	}
	return any
}

// nextRound rotates the dealer and deals the next round.
func (r *Room) nextRound() {
	r.round++
	r.dealer = (r.dealer + 1) % NumSeats
	r.startRound()
}

// startRound resets per-round state, deals deterministically from the
// next derived seed and opens the auction left of the dealer.
func (r *Room) startRound() {
	r.deals++
	r.roundSeed = r.cfg.Seed + int64(r.deals)

	r.trick = nil
	r.trickNo = 0
	r.bets = nil
	r.passed = [NumSeats]bool{}
	r.contract = nil
	r.tallies = [NumTeams]TeamTally{}
	r.won = [NumTeams][]Card{}
	for _, s := range r.seats {
		s.resetForRound()
	}

	hands := DealRound(r.roundSeed)
	for i, s := range r.seats {
		s.Hand = hands[i]
	}
	r.stock = nil
	r.assertCardCount()

	// Arm before publishing so the snapshot carries the awaited seat.
	r.phase.Dispatch(roomStateBetting)
	r.armBet((r.dealer + 1) % NumSeats)
	r.publish(EventPhaseChanged, -1)
}

// beginPlaying transitions from the auction into card play; the contract
// holder leads the first trick.
func (r *Room) beginPlaying() {
	r.leader = r.contract.Seat
	r.phase.Dispatch(roomStatePlaying)
	r.armPlay(r.leader)
	r.publish(EventPhaseChanged, -1)
}

func (r *Room) armBet(seat int) {
	r.turn.arm(seat, decisionBet, r.cfg.BetTimeout)
}

func (r *Room) armPlay(seat int) {
	r.turn.arm(seat, decisionPlay, r.cfg.PlayTimeout)
}

// handleTimer applies a deadline fire. A fire whose sequence number no
// longer matches the current decision point lost the race against a valid
// action and is dropped silently.
func (r *Room) handleTimer(tf timerFired) {
	if r.turn.stale(tf.seq) {
		r.log.Debugf("room %s: dropping stale timer (seq %d, current %d)", r.cfg.ID, tf.seq, r.turn.seq)
		return
	}

	if tf.kind == decisionSummary {
		r.log.Debugf("room %s: summary timer elapsed, advancing", r.cfg.ID)
		r.nextRound()
		return
	}

	r.timeoutSeat(tf.seat, tf.kind)
}

// timeoutSeat handles a seat missing its decision deadline: a connected
// human gets a one-shot emergency fallback action and keeps the seat; a
// disconnected seat, or one that has exhausted the configured miss limit,
// is handed to a bot for the rest of the room's life.
func (r *Room) timeoutSeat(idx int, kind decisionKind) {
	if idx < 0 || idx >= NumSeats {
		r.log.Errorf("room %s: %s deadline fired for invalid seat %d", r.cfg.ID, kind, idx)
		return
	}
	seat := r.seats[idx]
	seat.Missed++

	if seat.Kind() == SeatHuman && (!seat.Connected || seat.Missed >= r.cfg.MissedLimit) {
		r.log.Infof("room %s: seat %d handed to bot (connected=%v, missed=%d)",
			r.cfg.ID, idx, seat.Connected, seat.Missed)
		seat.setKind(SeatBot)
		r.publish(EventSeatBotTakeover, idx)
		// runBots picks the seat up from here.
		return
	}

	r.log.Infof("room %s: seat %d missed %s deadline, applying fallback", r.cfg.ID, idx, kind)
	r.publish(EventTimeoutFallback, idx)
	a, err := r.botActionFor(idx, kind)
	if err != nil {
		r.log.Errorf("room %s: fallback synthesis failed: %v", r.cfg.ID, err)
		return
	}
	missed := seat.Missed
	if err := r.handleAction(a); err != nil {
		r.log.Errorf("room %s: fallback apply failed: %v", r.cfg.ID, err)
		return
	}
	// The apply path clears the miss counter for real actions; a fallback
	// still counts against the takeover threshold.
	seat.Missed = missed
}

// botActionFor synthesizes a legal action for a seat via the bot policy.
func (r *Room) botActionFor(idx int, kind decisionKind) (Action, error) {
	view := r.botView(idx)
	switch kind {
	case decisionBet:
		b := DecideBet(view, r.cfg.BotTier)
		return Action{Type: ActionBet, Bet: &b, synthetic: true, seat: idx}, nil
	case decisionPlay:
		c := DecideCard(view, r.cfg.BotTier)
		return Action{Type: ActionPlayCard, Card: &c, synthetic: true, seat: idx}, nil
	default:
		return Action{}, fmt.Errorf("no decision pending for seat %d", idx)
	}
}

// botView assembles the read-only state a bot policy may see: its own
// hand plus everything public.
func (r *Room) botView(idx int) BotView {
	trump := NoTrump
	if r.contract != nil {
		trump = r.contract.Trump
	}
	var seen []Card
	for t := range r.won {
		seen = append(seen, r.won[t]...)
	}
	return BotView{
		Seat:    idx,
		Hand:    append([]Card(nil), r.seats[idx].Hand...),
		Trick:   append(Trick(nil), r.trick...),
		Trump:   trump,
		HighBet: HighBet(r.bets),
		Bets:    append([]Bet(nil), r.bets...),
		Tallies: r.tallies,
		Scores:  r.scores,
		Seen:    seen,
	}
}

// runBots lets bot-controlled seats act until a human seat is awaited or
// the phase stops requiring input. Bounded: every iteration consumes one
// decision point.
func (r *Room) runBots() {
	for {
		idx := r.turn.awaited()
		if idx < 0 {
			return
		}
		kind := r.turn.kind
		if kind != decisionBet && kind != decisionPlay {
			return
		}
		if r.seats[idx].Kind() != SeatBot {
			return
		}
		a, err := r.botActionFor(idx, kind)
		if err != nil {
			r.log.Errorf("room %s: bot synthesis failed: %v", r.cfg.ID, err)
			return
		}
		if err := r.handleAction(a); err != nil {
			r.log.Errorf("room %s: bot action rejected: %v", r.cfg.ID, err)
			return
		}
	}
}

// handleSession applies a session lifecycle change.
func (r *Room) handleSession(ev sessionEvent) {
	seat := r.seatByPlayer(ev.playerID)
	if seat == nil {
		return
	}

	switch ev.kind {
	case sessDisconnected:
		if !seat.Connected {
			return
		}
		seat.Connected = false
		r.log.Infof("room %s: seat %d disconnected, grace window running", r.cfg.ID, seat.Index)
		r.publish(EventSeatDisconnected, seat.Index)

	case sessGraceExpired:
		if seat.Connected {
			// Reconnected before expiry; the event is stale.
			return
		}
		if seat.Kind() != SeatHuman {
			return
		}
		r.log.Infof("room %s: grace expired, seat %d handed to bot", r.cfg.ID, seat.Index)
		seat.setKind(SeatBot)
		r.publish(EventSeatBotTakeover, seat.Index)
		if r.Phase() == PhaseRoundSummary && r.allAcked() {
			r.nextRound()
		}

	case sessLeft:
		if r.Phase() == PhaseTeamSelection {
			r.log.Infof("room %s: %s left, seat %d vacated", r.cfg.ID, ev.playerID, seat.Index)
			seat.vacate()
			r.publish(EventSeatLeft, seat.Index)
			return
		}
		if seat.Kind() != SeatHuman {
			return
		}
		// Leaving mid-game skips the grace window; the seat goes
		// straight to a bot. The player may still reclaim it via a
		// later bind while the room lives.
		r.log.Infof("room %s: %s left mid-game, seat %d handed to bot", r.cfg.ID, ev.playerID, seat.Index)
		seat.Connected = false
		seat.setKind(SeatBot)
		r.publish(EventSeatBotTakeover, seat.Index)
		if r.Phase() == PhaseRoundSummary && r.allAcked() {
			r.nextRound()
		}
	}
}

// handleBind attaches a player identity to a seat. Re-binding an owned
// seat never mutates game data; it only restores liveness and, if a bot
// had taken over, returns control to the human.
func (r *Room) handleBind(playerID string) (int, error) {
	if playerID == "" {
		return -1, fmt.Errorf("%w: empty player id", ErrInvalidAction)
	}

	if seat := r.seatByPlayer(playerID); seat != nil {
		if seat.Connected && seat.Kind() == SeatHuman {
			// Idempotent rebind of a live seat.
			return seat.Index, nil
		}
		seat.Connected = true
		seat.Missed = 0
		if seat.Kind() == SeatBot {
			seat.setKind(SeatHuman)
			r.log.Infof("room %s: seat %d reclaimed by %s", r.cfg.ID, seat.Index, playerID)
			r.publish(EventSeatReclaimed, seat.Index)
		} else {
			r.publish(EventSeatReconnected, seat.Index)
		}
		return seat.Index, nil
	}

	if r.Phase() != PhaseTeamSelection {
		return -1, fmt.Errorf("%w: game in progress", ErrInvalidAction)
	}
	for _, seat := range r.seats {
		if seat.Kind() == SeatVacant {
			seat.occupy(playerID)
			r.log.Infof("room %s: %s seated at %d", r.cfg.ID, playerID, seat.Index)
			r.publish(EventSeatJoined, seat.Index)
			return seat.Index, nil
		}
	}
	return -1, ErrRoomFull
}

// applyRestore rebuilds loop-owned state from a persisted snapshot.
func (r *Room) applyRestore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidAction)
	}

	r.round = snap.Round
	r.trickNo = snap.TrickNo
	r.dealer = snap.Dealer
	r.deals = snap.Deals
	r.roundSeed = snap.RoundSeed
	r.trick = append(Trick(nil), snap.Trick...)
	r.bets = append([]Bet(nil), snap.Bets...)
	r.passed = [NumSeats]bool{}
	for _, b := range r.bets {
		if b.Pass {
			r.passed[b.Seat] = true
		}
	}
	if snap.Contract != nil {
		c := *snap.Contract
		r.contract = &c
	}
	r.tallies = snap.Tallies
	r.scores = snap.Scores
	r.winner = snap.WinnerTeam
	for t := range r.won {
		r.won[t] = append([]Card(nil), snap.Won[t]...)
	}

	for i, ss := range snap.Seats {
		seat := r.seats[i]
		seat.PlayerID = ss.PlayerID
		seat.Ready = ss.Ready
		seat.Acked = ss.Acked
		seat.Missed = ss.Missed
		seat.Hand = append([]Card(nil), ss.Hand...)
		if ss.Bet != nil {
			b := *ss.Bet
			seat.Bet = &b
		}
		seat.setKind(ss.Kind)
		// Connections do not survive a restart; humans must rebind and
		// the grace machinery covers those who don't.
		seat.Connected = false
	}

	switch {
	case len(r.trick) > 0:
		r.leader = r.trick[0].Seat
	case snap.AwaitedSeat >= 0 && snap.AwaitedSeat < NumSeats:
		r.leader = snap.AwaitedSeat
	case r.contract != nil:
		r.leader = r.contract.Seat
	}

	switch snap.Phase {
	case PhaseBetting:
		r.phase.Set(roomStateBetting)
		r.armBet(r.restoredBidder(snap))
	case PhasePlaying:
		r.phase.Set(roomStatePlaying)
		r.armPlay(r.restoredPlayer(snap))
	case PhaseRoundSummary:
		r.phase.Set(roomStateRoundSummary)
		r.turn.arm(-1, decisionSummary, r.cfg.SummaryTimeout)
	case PhaseGameOver:
		r.phase.Set(roomStateGameOver)
	default:
		r.phase.Set(roomStateTeamSelection)
	}

	if p := snap.Phase; p == PhaseBetting || p == PhasePlaying || p == PhaseRoundSummary {
		r.assertCardCount()
	}

	r.log.Infof("room %s: restored at phase %s, round %d", r.cfg.ID, snap.Phase, snap.Round)
	r.publish(EventPhaseChanged, -1)
	return nil
}

// restoredBidder returns the seat to await when resuming an auction.
// A snapshot taken before the decision point was armed carries no
// awaited seat, so it is derived from the auction itself.
func (r *Room) restoredBidder(snap *Snapshot) int {
	if s := snap.AwaitedSeat; s >= 0 && s < NumSeats {
		return s
	}
	if len(r.bets) == 0 {
		return (r.dealer + 1) % NumSeats
	}
	return r.nextBidder(r.bets[len(r.bets)-1].Seat)
}

// restoredPlayer returns the seat to await when resuming card play.
func (r *Room) restoredPlayer(snap *Snapshot) int {
	if s := snap.AwaitedSeat; s >= 0 && s < NumSeats {
		return s
	}
	return (r.leader + len(r.trick)) % NumSeats
}
