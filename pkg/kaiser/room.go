package kaiser

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"

	"github.com/haldrik/kaiserd/pkg/statemachine"
)

// RoomStateFn is a room phase state function.
type RoomStateFn = statemachine.StateFn[Room]

// Phase state functions. Transitions are dispatched explicitly by the
// room loop at the moments the rules define; the states themselves are
// stable so the machine always reports a phase.

func roomStateTeamSelection(r *Room) RoomStateFn { return roomStateTeamSelection }
func roomStateBetting(r *Room) RoomStateFn       { return roomStateBetting }
func roomStatePlaying(r *Room) RoomStateFn       { return roomStatePlaying }
func roomStateRoundSummary(r *Room) RoomStateFn  { return roomStateRoundSummary }
func roomStateGameOver(r *Room) RoomStateFn      { return roomStateGameOver }

// RoomConfig holds the externally supplied knobs of a room. Timeouts and
// the takeover threshold are consumed, never computed, here.
type RoomConfig struct {
	ID  string
	Log slog.Logger

	BetTimeout     time.Duration // deadline for a bet decision
	PlayTimeout    time.Duration // deadline for a card decision
	SummaryTimeout time.Duration // auto-advance out of RoundSummary

	// MissedLimit is how many missed deadlines a connected human seat may
	// accumulate before it is permanently handed to a bot.
	MissedLimit int

	TargetScore int
	BotTier     Difficulty
	Seed        int64 // base seed; each round derives its own
	QueueSize   int
}

func (cfg *RoomConfig) applyDefaults() {
	if cfg.BetTimeout == 0 {
		cfg.BetTimeout = 30 * time.Second
	}
	if cfg.PlayTimeout == 0 {
		cfg.PlayTimeout = 30 * time.Second
	}
	if cfg.SummaryTimeout == 0 {
		cfg.SummaryTimeout = 15 * time.Second
	}
	if cfg.MissedLimit == 0 {
		cfg.MissedLimit = 3
	}
	if cfg.TargetScore == 0 {
		cfg.TargetScore = DefaultTargetScore
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 64
	}
}

// Internal queue event kinds.
type eventKind int

const (
	evAction eventKind = iota
	evTimer
	evSession
	evBind
	evQuery
	evStop
)

type sessionEventKind int

const (
	sessDisconnected sessionEventKind = iota
	sessGraceExpired
	sessLeft
)

type sessionEvent struct {
	kind     sessionEventKind
	playerID string
}

type bindRequest struct {
	playerID string
	reply    chan bindResult
}

type bindResult struct {
	seat int
	err  error
}

type queryRequest struct {
	reply chan *Snapshot
}

// roomEvent is one entry of the room's serialized event queue. Every
// inbound action, timer fire and session event flows through it; FIFO
// order at the queue is the authoritative arbiter of races.
type roomEvent struct {
	kind   eventKind
	action Action
	timer  timerFired
	sess   sessionEvent
	bind   *bindRequest
	query  *queryRequest
	reply  chan error
}

// Room is the authoritative state of one game instance. A single
// goroutine owns it: every mutation happens inside the run loop, so no
// lock guards the game data.
type Room struct {
	cfg RoomConfig
	log slog.Logger

	seats [NumSeats]*Seat
	phase *statemachine.Machine[Room]

	round     int
	trickNo   int
	dealer    int
	leader    int
	deals     int
	stock     []Card // deck remainder after the deal (empty: the deal exhausts the deck)
	trick     Trick
	bets      []Bet
	passed    [NumSeats]bool
	contract  *Bet
	tallies   [NumTeams]TeamTally
	won       [NumTeams][]Card
	scores    [NumTeams]int
	winner    int
	roundSeed int64

	turn     *turnManager
	eventMgr *EventManager

	events chan roomEvent
	done   chan struct{}

	createdAt time.Time
}

// NewRoom creates a room and starts its event loop.
func NewRoom(cfg RoomConfig) *Room {
	cfg.applyDefaults()
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}

	r := &Room{
		cfg:       cfg,
		log:       cfg.Log,
		winner:    -1,
		eventMgr:  &EventManager{},
		events:    make(chan roomEvent, cfg.QueueSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	for i := range r.seats {
		r.seats[i] = NewSeat(i)
	}
	r.phase = statemachine.New(r, roomStateTeamSelection)
	r.turn = newTurnManager(r.postTimer)

	go r.run()
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.cfg.ID }

// CreatedAt returns when the room was created.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Phase returns the current phase, derived from the phase machine.
func (r *Room) Phase() Phase {
	cur := r.phase.Current()
	switch {
	case statemachine.Same(cur, roomStateBetting):
		return PhaseBetting
	case statemachine.Same(cur, roomStatePlaying):
		return PhasePlaying
	case statemachine.Same(cur, roomStateRoundSummary):
		return PhaseRoundSummary
	case statemachine.Same(cur, roomStateGameOver):
		return PhaseGameOver
	default:
		return PhaseTeamSelection
	}
}

// SetEventChannel wires the outbound event channel.
func (r *Room) SetEventChannel(ch chan<- RoomEvent) {
	r.eventMgr.SetChannel(ch)
}

// Submit applies a player action through the serialized queue and returns
// the validation result to the caller only.
func (r *Room) Submit(ctx context.Context, a Action) error {
	reply := make(chan error, 1)
	ev := roomEvent{kind: evAction, action: a, reply: reply}
	select {
	case r.events <- ev:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bind attaches a player identity to its seat, or to the first vacant
// seat during team selection. Rebinding a live seat is a no-op returning
// the same seat.
func (r *Room) Bind(ctx context.Context, playerID string) (int, error) {
	req := &bindRequest{playerID: playerID, reply: make(chan bindResult, 1)}
	select {
	case r.events <- roomEvent{kind: evBind, bind: req}:
	case <-r.done:
		return -1, ErrRoomClosed
	case <-ctx.Done():
		return -1, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.seat, res.err
	case <-r.done:
		return -1, ErrRoomClosed
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// AddBot fills a vacant seat with a bot. Only allowed during team
// selection; bots are marked ready immediately.
func (r *Room) AddBot(ctx context.Context, seat int) error {
	return r.Submit(ctx, Action{Type: actionSeatBot, synthetic: true, seat: seat})
}

// Snapshot returns a copy of the authoritative state.
func (r *Room) Snapshot(ctx context.Context) (*Snapshot, error) {
	req := &queryRequest{reply: make(chan *Snapshot, 1)}
	select {
	case r.events <- roomEvent{kind: evQuery, query: req}:
	case <-r.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-r.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PostSession delivers a session lifecycle change into the room queue.
func (r *Room) PostSession(kind sessionDelivery, playerID string) {
	var k sessionEventKind
	switch kind {
	case SessionDisconnected:
		k = sessDisconnected
	case SessionGraceExpired:
		k = sessGraceExpired
	case SessionLeft:
		k = sessLeft
	default:
		return
	}
	select {
	case r.events <- roomEvent{kind: evSession, sess: sessionEvent{kind: k, playerID: playerID}}:
	case <-r.done:
	}
}

// sessionDelivery is the exported surface of session event kinds.
type sessionDelivery int

const (
	SessionDisconnected sessionDelivery = iota
	SessionGraceExpired
	SessionLeft
)

// Stop terminates the event loop. Idempotent.
func (r *Room) Stop() {
	select {
	case r.events <- roomEvent{kind: evStop}:
	case <-r.done:
	}
}

// Done is closed when the loop has terminated.
func (r *Room) Done() <-chan struct{} { return r.done }

// postTimer delivers a deadline fire into the queue. Never blocks the
// timer goroutine; the loop drains fast and the queue is buffered, so a
// drop can only happen while the room is being torn down.
func (r *Room) postTimer(tf timerFired) {
	select {
	case r.events <- roomEvent{kind: evTimer, timer: tf}:
	default:
		r.log.Warnf("room %s: timer fire dropped (queue full)", r.cfg.ID)
	}
}

// run is the single authoritative loop. Events are applied strictly in
// arrival order; whichever of a racing action/timer pair is dequeued
// first wins and the other is dropped as stale.
func (r *Room) run() {
	defer close(r.done)
	for ev := range r.events {
		switch ev.kind {
		case evAction:
			err := r.handleAction(ev.action)
			if ev.reply != nil {
				ev.reply <- err
			}
		case evTimer:
			r.handleTimer(ev.timer)
		case evSession:
			r.handleSession(ev.sess)
		case evBind:
			seat, err := r.handleBind(ev.bind.playerID)
			ev.bind.reply <- bindResult{seat: seat, err: err}
		case evQuery:
			ev.query.reply <- r.buildSnapshot()
		case evStop:
			r.turn.cancel()
			r.log.Debugf("room %s: loop stopped", r.cfg.ID)
			return
		}
		r.runBots()
	}
}

// publish emits an outbound event with a fresh snapshot.
func (r *Room) publish(t EventType, seat int) {
	r.eventMgr.Publish(RoomEvent{
		Type:     t,
		RoomID:   r.cfg.ID,
		Seat:     seat,
		Snapshot: r.buildSnapshot(),
	})
}

// buildSnapshot copies the room state. Loop-owned.
func (r *Room) buildSnapshot() *Snapshot {
	snap := &Snapshot{
		RoomID:      r.cfg.ID,
		Phase:       r.Phase(),
		Round:       r.round,
		TrickNo:     r.trickNo,
		Dealer:      r.dealer,
		AwaitedSeat: r.turn.awaited(),
		DecisionSeq: r.turn.seq,
		Deadline:    r.turn.deadline,
		Trick:       append(Trick(nil), r.trick...),
		Bets:        append([]Bet(nil), r.bets...),
		Tallies:     r.tallies,
		Scores:      r.scores,
		RoundSeed:   r.roundSeed,
		Deals:       r.deals,
		TargetScore: r.cfg.TargetScore,
		WinnerTeam:  r.winner,
	}
	if r.contract != nil {
		c := *r.contract
		snap.Contract = &c
	}
	for i, s := range r.seats {
		ss := SeatSnapshot{
			Index:     s.Index,
			Kind:      s.Kind(),
			PlayerID:  s.PlayerID,
			Connected: s.Connected,
			Ready:     s.Ready,
			Acked:     s.Acked,
			Hand:      append([]Card(nil), s.Hand...),
			HandSize:  len(s.Hand),
			Missed:    s.Missed,
		}
		if s.Bet != nil {
			b := *s.Bet
			ss.Bet = &b
		}
		snap.Seats[i] = ss
	}
	for t := range r.won {
		snap.Won[t] = append([]Card(nil), r.won[t]...)
	}
	return snap
}

// seatByPlayer resolves a player identity to its seat, or nil.
func (r *Room) seatByPlayer(playerID string) *Seat {
	if playerID == "" {
		return nil
	}
	for _, s := range r.seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

// assertCardCount verifies the 36-card invariant after a deal. Violations
// indicate a bug in the apply path, never a player input problem.
func (r *Room) assertCardCount() {
	n := len(r.trick) + len(r.stock)
	for _, s := range r.seats {
		n += len(s.Hand)
	}
	for t := range r.won {
		n += len(r.won[t])
	}
	if n != DeckSize {
		r.log.Errorf("room %s: card count invariant broken: %d cards in play", r.cfg.ID, n)
	}
}

// RestoreRoom rebuilds a room from a persisted snapshot and starts its
// loop. Timers restart fresh; the decision point is re-armed for the
// awaited seat.
func RestoreRoom(cfg RoomConfig, snap *Snapshot) (*Room, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	r := NewRoom(cfg)

	restore := make(chan error, 1)
	r.events <- roomEvent{kind: evAction, reply: restore, action: Action{
		Type:      actionRestore,
		synthetic: true,
		seat:      -1,
		restored:  snap,
	}}
	if err := <-restore; err != nil {
		r.Stop()
		return nil, err
	}
	return r, nil
}
