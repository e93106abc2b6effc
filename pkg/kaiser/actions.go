package kaiser

// Phase is the externally visible room phase.
type Phase string

const (
	PhaseTeamSelection Phase = "TEAM_SELECTION"
	PhaseBetting       Phase = "BETTING"
	PhasePlaying       Phase = "PLAYING"
	PhaseRoundSummary  Phase = "ROUND_SUMMARY"
	PhaseGameOver      Phase = "GAME_OVER"
)

// ActionType identifies an inbound player action.
type ActionType string

const (
	ActionReady      ActionType = "ready"
	ActionBet        ActionType = "bet"
	ActionPlayCard   ActionType = "play_card"
	ActionAckSummary ActionType = "ack_summary"
)

// Action is the inbound action message. PlayerID identifies the actor;
// the room resolves it to a seat. PhaseExpected guards against stale
// clients: when set and mismatching the current phase the action is
// rejected without mutation.
type Action struct {
	RoomID        string     `json:"room_id"`
	PlayerID      string     `json:"player_id"`
	PhaseExpected Phase      `json:"phase_expected,omitempty"`
	Type          ActionType `json:"type"`
	Bet           *Bet       `json:"bet,omitempty"`
	Card          *Card      `json:"card,omitempty"`

	// synthetic marks actions produced inside the room (bot decisions,
	// timeout fallbacks). They are pre-resolved to a seat and skip the
	// identity lookup.
	synthetic bool
	seat      int

	// restored carries the snapshot of an internal restore request.
	restored *Snapshot
}

// Internal action types: restore rebuilds room state from a persisted
// snapshot, seat_bot fills a vacant seat with a bot policy.
const (
	actionRestore ActionType = "restore"
	actionSeatBot ActionType = "seat_bot"
)

// EventType classifies an outbound room event.
type EventType string

const (
	EventSeatJoined       EventType = "seat_joined"
	EventSeatLeft         EventType = "seat_left"
	EventSeatReady        EventType = "seat_ready"
	EventPhaseChanged     EventType = "phase_changed"
	EventBetPlaced        EventType = "bet_placed"
	EventRedeal           EventType = "redeal"
	EventCardPlayed       EventType = "card_played"
	EventTrickResolved    EventType = "trick_resolved"
	EventRoundScored      EventType = "round_scored"
	EventGameOver         EventType = "game_over"
	EventSeatDisconnected EventType = "seat_disconnected"
	EventSeatReconnected  EventType = "seat_reconnected"
	EventSeatBotTakeover  EventType = "seat_bot_takeover"
	EventSeatReclaimed    EventType = "seat_reclaimed"
	EventTimeoutFallback  EventType = "timeout_fallback"
)

// RoomEvent is an outbound state delta published on the room's event
// channel. Snapshot is the full authoritative state; the transport layer
// derives per-seat redacted views from it before broadcasting.
type RoomEvent struct {
	Type     EventType
	RoomID   string
	Seat     int // acting seat, or -1
	Snapshot *Snapshot
}

// EventManager publishes room events to an abstract channel without ever
// blocking the room loop.
type EventManager struct {
	ch chan<- RoomEvent
}

// SetChannel sets the outbound channel.
func (em *EventManager) SetChannel(ch chan<- RoomEvent) { em.ch = ch }

// Publish sends an event, dropping it if the channel is full or unset.
func (em *EventManager) Publish(ev RoomEvent) {
	if em.ch == nil {
		return
	}
	select {
	case em.ch <- ev:
	default:
		// Receiver is saturated; gameplay never waits on fanout.
	}
}
