package kaiser

import (
	"context"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
)

// DefaultGracePeriod is how long a disconnected player keeps exclusive
// control of their seat before a bot takes over.
const DefaultGracePeriod = 60 * time.Second

// Session is one live attachment of a player to a room. A player has at
// most one session per room; a reconnect replaces the connection id
// under the same session.
type Session struct {
	ID       string
	PlayerID string
	ConnID   string
	RoomID   string
	Seat     int

	lastSeen       time.Time
	disconnectedAt time.Time
	graceTimer     *time.Timer
}

// LastSeen reports when the session last showed signs of life.
func (s *Session) LastSeen() time.Time { return s.lastSeen }

// SessionManager owns the player-to-room attachments and the grace
// windows of disconnected players. It never touches game state directly;
// expirations are delivered into the room queue and resolved there, so a
// reconnect racing an expiry is settled by queue order.
type SessionManager struct {
	mu       sync.Mutex
	log      slog.Logger
	grace    time.Duration
	sessions map[string]*Session // keyed by playerID
}

// NewSessionManager creates a session manager with the given grace
// period; zero means DefaultGracePeriod.
func NewSessionManager(log slog.Logger, grace time.Duration) *SessionManager {
	if log == nil {
		log = slog.Disabled
	}
	if grace == 0 {
		grace = DefaultGracePeriod
	}
	return &SessionManager{
		log:      log,
		grace:    grace,
		sessions: make(map[string]*Session),
	}
}

// Bind attaches a player to a room seat and returns the session. Called
// both for first joins and reconnects; the room decides which one it is.
// A pending grace timer for the player is cancelled.
func (sm *SessionManager) Bind(ctx context.Context, room *Room, playerID, connID string) (*Session, error) {
	seat, err := room.Bind(ctx, playerID)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[playerID]
	if !ok {
		s = &Session{
			ID:       uuid.NewString(),
			PlayerID: playerID,
			RoomID:   room.ID(),
			Seat:     seat,
		}
		sm.sessions[playerID] = s
	}
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.ConnID = connID
	s.RoomID = room.ID()
	s.Seat = seat
	s.lastSeen = time.Now()
	s.disconnectedAt = time.Time{}
	sm.log.Debugf("session %s: %s bound to room %s seat %d", s.ID, playerID, room.ID(), seat)
	return s, nil
}

// MarkDisconnected starts the grace window for a player's session. The
// room is told immediately so it can flag the seat; the takeover only
// happens if the window elapses without a rebind. A disconnect for a
// stale connection id is ignored.
func (sm *SessionManager) MarkDisconnected(room *Room, playerID, connID string) {
	sm.mu.Lock()
	s, ok := sm.sessions[playerID]
	if !ok || (connID != "" && s.ConnID != connID) {
		sm.mu.Unlock()
		return
	}
	s.disconnectedAt = time.Now()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	s.graceTimer = time.AfterFunc(sm.grace, func() {
		room.PostSession(SessionGraceExpired, playerID)
	})
	sm.mu.Unlock()

	sm.log.Infof("session %s: %s disconnected, grace %s", s.ID, playerID, sm.grace)
	room.PostSession(SessionDisconnected, playerID)
}

// Heartbeat refreshes a session's last-seen time. Heartbeats from a
// stale connection id are ignored.
func (sm *SessionManager) Heartbeat(playerID, connID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[playerID]
	if !ok || (connID != "" && s.ConnID != connID) {
		return
	}
	s.lastSeen = time.Now()
}

// Leave ends a player's attachment to a room. The room vacates the seat
// during team selection or hands it to a bot mid-game; either way the
// session and any pending grace timer are gone.
func (sm *SessionManager) Leave(room *Room, playerID string) {
	sm.mu.Lock()
	if s, ok := sm.sessions[playerID]; ok {
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
		delete(sm.sessions, playerID)
	}
	sm.mu.Unlock()
	room.PostSession(SessionLeft, playerID)
}

// Lookup returns the player's session, or nil.
func (sm *SessionManager) Lookup(playerID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.sessions[playerID]
}

// Drop removes a player's session and cancels any pending grace timer.
func (sm *SessionManager) Drop(playerID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.sessions[playerID]; ok {
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
		delete(sm.sessions, playerID)
	}
}

// Close cancels every pending grace timer. Used on shutdown.
func (sm *SessionManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, s := range sm.sessions {
		if s.graceTimer != nil {
			s.graceTimer.Stop()
			s.graceTimer = nil
		}
	}
}
