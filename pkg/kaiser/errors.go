package kaiser

import "errors"

// Error taxonomy for everything a room can reject. Room state is never
// mutated when one of these is returned; they are reported to the acting
// player only.
var (
	// ErrInvalidAction marks an action that is illegal per the rules for
	// the current phase (bad bet, card not in hand, suit not followed,
	// stale phaseExpected, ...).
	ErrInvalidAction = errors.New("invalid action")

	// ErrOutOfTurn marks an action from a seat that is not currently
	// awaited.
	ErrOutOfTurn = errors.New("out of turn")

	// ErrStaleEvent marks an event superseded by a race-winning event at
	// the same decision point. Stale events are dropped silently.
	ErrStaleEvent = errors.New("stale event")

	// ErrSessionExpired marks a session whose grace window has elapsed.
	ErrSessionExpired = errors.New("session expired")

	// ErrRoomClosed marks an action submitted to a room whose event loop
	// has stopped.
	ErrRoomClosed = errors.New("room closed")

	// ErrSeatOccupied is returned when joining a seat that already has an
	// occupant bound to a different identity.
	ErrSeatOccupied = errors.New("seat occupied")

	// ErrRoomFull is returned when no vacant seat remains.
	ErrRoomFull = errors.New("room full")
)
