package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/haldrik/kaiserd/pkg/kaiser"
)

// ErrRoomNotFound is returned for operations naming an unknown room.
var ErrRoomNotFound = errors.New("room not found")

// saveRetries bounds the async persistence retry loop.
const saveRetries = 3

// Config holds the server-level knobs. Room defaults are applied to
// every room the server creates.
type Config struct {
	DB         Store
	LogBackend *logging.LogBackend

	GracePeriod    time.Duration
	BetTimeout     time.Duration
	PlayTimeout    time.Duration
	SummaryTimeout time.Duration
	MissedLimit    int
	TargetScore    int
	BotTier        kaiser.Difficulty
}

// Server owns the room registry, the session manager and the event
// pipeline. Rooms run their own loops; the server only routes.
type Server struct {
	cfg        Config
	log        slog.Logger
	logBackend *logging.LogBackend
	db         Store

	rooms map[string]*kaiser.Room
	mu    sync.RWMutex

	sessions *kaiser.SessionManager

	// Shared outbound channel every room publishes into; pumped into the
	// event processor.
	roomEvents chan kaiser.RoomEvent
	pumpDone   chan struct{}

	// Per-room save serialization for the async persistence path.
	saveMutexes map[string]*sync.Mutex
	saveMu      sync.RWMutex
	saveWg      sync.WaitGroup

	eventProcessor *EventProcessor
	broadcaster    Broadcaster
	stopOnce       sync.Once
}

// NewServer creates a server, starts the event pipeline and restores
// persisted rooms.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:         cfg,
		log:         cfg.LogBackend.Logger("SERVER"),
		logBackend:  cfg.LogBackend,
		db:          cfg.DB,
		rooms:       make(map[string]*kaiser.Room),
		roomEvents:  make(chan kaiser.RoomEvent, 256),
		pumpDone:    make(chan struct{}),
		saveMutexes: make(map[string]*sync.Mutex),
		broadcaster: &LogBroadcaster{log: cfg.LogBackend.Logger("CAST")},
	}
	s.sessions = kaiser.NewSessionManager(cfg.LogBackend.Logger("SESS"), cfg.GracePeriod)

	s.eventProcessor = NewEventProcessor(s, 1000, 3)
	s.eventProcessor.Start()
	go s.pumpRoomEvents()

	if err := s.loadAllRooms(); err != nil {
		s.log.Errorf("Failed to load persisted rooms: %v", err)
	}

	return s
}

// SetBroadcaster replaces the outbound notification sink. Call before
// rooms start producing events.
func (s *Server) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Stop shuts down every room, the event pipeline and the session
// manager, then waits for in-flight saves. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *Server) stop() {
	s.mu.Lock()
	rooms := make([]*kaiser.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
		<-r.Done()
	}
	s.sessions.Close()

	close(s.pumpDone)
	if s.eventProcessor != nil {
		s.eventProcessor.Stop()
	}
	s.saveWg.Wait()
}

// pumpRoomEvents moves room events into the worker queue. Rooms never
// block on this path; the channel is buffered and the processor drops
// under overload.
func (s *Server) pumpRoomEvents() {
	for {
		select {
		case <-s.pumpDone:
			return
		case ev := <-s.roomEvents:
			s.eventProcessor.PublishEvent(ev)
		}
	}
}

// roomConfig builds the per-room configuration from server defaults.
func (s *Server) roomConfig(roomID string) kaiser.RoomConfig {
	return kaiser.RoomConfig{
		ID:             roomID,
		Log:            s.logBackend.Logger("ROOM"),
		BetTimeout:     s.cfg.BetTimeout,
		PlayTimeout:    s.cfg.PlayTimeout,
		SummaryTimeout: s.cfg.SummaryTimeout,
		MissedLimit:    s.cfg.MissedLimit,
		TargetScore:    s.cfg.TargetScore,
		BotTier:        s.cfg.BotTier,
	}
}

// CreateRoom creates a room, seats the creating player and returns the
// room id and seat.
func (s *Server) CreateRoom(ctx context.Context, playerID, connID string) (string, int, error) {
	roomID := uuid.NewString()
	room := kaiser.NewRoom(s.roomConfig(roomID))
	room.SetEventChannel(s.roomEvents)

	s.mu.Lock()
	s.rooms[roomID] = room
	s.mu.Unlock()

	sess, err := s.sessions.Bind(ctx, room, playerID, connID)
	if err != nil {
		room.Stop()
		s.mu.Lock()
		delete(s.rooms, roomID)
		s.mu.Unlock()
		return "", -1, err
	}

	s.log.Infof("Room %s created by %s (seat %d)", roomID, playerID, sess.Seat)
	return roomID, sess.Seat, nil
}

// JoinRoom seats a player in a room. Reconnection to an owned seat is
// tried first; otherwise the player takes the first vacant seat during
// team selection.
func (s *Server) JoinRoom(ctx context.Context, roomID, playerID, connID string) (int, error) {
	room, err := s.getRoom(roomID)
	if err != nil {
		return -1, err
	}
	sess, err := s.sessions.Bind(ctx, room, playerID, connID)
	if err != nil {
		return -1, err
	}
	return sess.Seat, nil
}

// AddBot fills a vacant seat in a room with a bot.
func (s *Server) AddBot(ctx context.Context, roomID string, seat int) error {
	room, err := s.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.AddBot(ctx, seat)
}

// SubmitAction routes a player action to its room and returns the
// validation result. Any inbound action also counts as a heartbeat.
func (s *Server) SubmitAction(ctx context.Context, a kaiser.Action) error {
	room, err := s.getRoom(a.RoomID)
	if err != nil {
		return err
	}
	s.sessions.Heartbeat(a.PlayerID, "")
	return room.Submit(ctx, a)
}

// Heartbeat refreshes a player's session liveness without touching game
// state.
func (s *Server) Heartbeat(playerID, connID string) {
	s.sessions.Heartbeat(playerID, connID)
}

// LeaveRoom removes a player from a room and drops their session. Their
// seat is vacated before the game starts, or handed to a bot mid-game.
func (s *Server) LeaveRoom(roomID, playerID string) error {
	room, err := s.getRoom(roomID)
	if err != nil {
		return err
	}
	s.sessions.Leave(room, playerID)
	return nil
}

// Disconnect marks a player's connection dead and starts the grace
// window. The seat survives; a rebind within the window reclaims it
// untouched.
func (s *Server) Disconnect(roomID, playerID, connID string) {
	room, err := s.getRoom(roomID)
	if err != nil {
		return
	}
	s.sessions.MarkDisconnected(room, playerID, connID)
}

// RoomSnapshot returns the full authoritative snapshot of a room. The
// caller redacts before showing it to a player.
func (s *Server) RoomSnapshot(ctx context.Context, roomID string) (*kaiser.Snapshot, error) {
	room, err := s.getRoom(roomID)
	if err != nil {
		return nil, err
	}
	return room.Snapshot(ctx)
}

// ListRooms returns the ids of every live room.
func (s *Server) ListRooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}

// CloseRoom stops a room's loop and removes it from the registry. Its
// persisted snapshots survive for restore.
func (s *Server) CloseRoom(roomID string) error {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if ok {
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	room.Stop()
	return nil
}

func (s *Server) getRoom(roomID string) (*kaiser.Room, error) {
	s.mu.RLock()
	room, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return room, nil
}

// saveRoomStateAsync persists a snapshot without blocking the event
// pipeline. Saves for the same room are serialized by a per-room mutex;
// a failed save is retried a bounded number of times and then logged.
// Gameplay never waits on or fails from persistence.
func (s *Server) saveRoomStateAsync(roomID string, snap *kaiser.Snapshot, reason string) {
	s.saveMu.Lock()
	saveMutex, exists := s.saveMutexes[roomID]
	if !exists {
		saveMutex = &sync.Mutex{}
		s.saveMutexes[roomID] = saveMutex
	}
	s.saveMu.Unlock()

	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()
		saveMutex.Lock()
		defer saveMutex.Unlock()

		var err error
		for attempt := 1; attempt <= saveRetries; attempt++ {
			err = s.db.SaveSnapshot(roomID, snap.Round, snap)
			if err == nil {
				s.log.Debugf("Saved room %s round %d (trigger: %s)", roomID, snap.Round, reason)
				return
			}
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		s.log.Errorf("Failed to save room %s after %d attempts (%s): %v",
			roomID, saveRetries, reason, err)
	}()
}
