package kaiser

import (
	"time"
)

// decisionKind names the kind of input a decision point awaits.
type decisionKind string

const (
	decisionNone    decisionKind = ""
	decisionBet     decisionKind = "bet"
	decisionPlay    decisionKind = "play"
	decisionSummary decisionKind = "summary"
)

// timerFired is the event a deadline posts into the room queue. It carries
// the sequence number of the decision point it was armed for; the room
// drops it as stale when the decision point has since advanced.
type timerFired struct {
	seq  uint64
	kind decisionKind
	seat int
}

// turnManager tracks the single awaited decision point of a room and its
// deadline. Exactly one timer is active per room at any time; arming a new
// deadline cancels the previous one first, so timers never overlap. All
// methods are called from the room loop only; the time.AfterFunc callback
// merely posts back into that loop.
type turnManager struct {
	seq      uint64
	seat     int
	kind     decisionKind
	deadline time.Time
	timer    *time.Timer
	post     func(timerFired)
}

func newTurnManager(post func(timerFired)) *turnManager {
	return &turnManager{seat: -1, post: post}
}

// arm starts the deadline for a new decision point and returns its
// sequence number.
func (tm *turnManager) arm(seat int, kind decisionKind, d time.Duration) uint64 {
	tm.cancel()
	tm.seq++
	tm.seat = seat
	tm.kind = kind
	tm.deadline = time.Now().Add(d)

	seq := tm.seq
	tm.timer = time.AfterFunc(d, func() {
		tm.post(timerFired{seq: seq, kind: kind, seat: seat})
	})
	return seq
}

// cancel stops the active deadline, if any, before the next one starts.
func (tm *turnManager) cancel() {
	if tm.timer != nil {
		tm.timer.Stop()
		tm.timer = nil
	}
	tm.seat = -1
	tm.kind = decisionNone
	tm.deadline = time.Time{}
}

// stale reports whether seq no longer addresses the current decision
// point.
func (tm *turnManager) stale(seq uint64) bool {
	return seq != tm.seq || tm.timer == nil
}

// awaited returns the seat whose input is awaited, or -1.
func (tm *turnManager) awaited() int { return tm.seat }
