package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/haldrik/kaiserd/pkg/kaiser"
	"github.com/haldrik/kaiserd/pkg/server/internal/db"
)

// Store defines the persistence operations the server needs. Snapshots
// are fire-and-forget crash-recovery state; match results feed the stats
// subsystem.
type Store interface {
	// SaveSnapshot persists the room's current state, replacing any
	// earlier snapshot for the same room and round.
	SaveSnapshot(roomID string, round int, snap *kaiser.Snapshot) error
	// LoadLatestSnapshot returns the most recent snapshot for a room.
	LoadLatestSnapshot(roomID string) (*kaiser.Snapshot, error)
	// DeleteRoom removes a room and all of its snapshots.
	DeleteRoom(roomID string) error
	// GetAllRoomIDs lists every room with persisted state.
	GetAllRoomIDs() ([]string, error)

	// RecordMatchResult appends one finished game to the history.
	RecordMatchResult(res *db.MatchResult) error
	// GetMatchResults returns the recorded history for a room.
	GetMatchResults(roomID string) ([]*db.MatchResult, error)

	// Close closes the store.
	Close() error
}

// NewStore opens the sqlite-backed store at dbPath, creating the parent
// directory if needed.
func NewStore(dbPath string) (Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %v", err)
	}
	return db.NewDB(dbPath)
}

// loadAllRooms restores every persisted room on startup. A room that
// fails to restore is logged and skipped; one broken snapshot never
// blocks the rest.
func (s *Server) loadAllRooms() error {
	roomIDs, err := s.db.GetAllRoomIDs()
	if err != nil {
		return fmt.Errorf("failed to list persisted rooms: %v", err)
	}
	if len(roomIDs) == 0 {
		s.log.Infof("No persisted rooms found")
		return nil
	}

	loaded := 0
	for _, roomID := range roomIDs {
		if err := s.restoreRoom(roomID); err != nil {
			s.log.Errorf("Failed to restore room %s: %v", roomID, err)
			continue
		}
		loaded++
	}
	s.log.Infof("Restored %d of %d persisted rooms", loaded, len(roomIDs))
	return nil
}

// restoreRoom rebuilds one room from its latest snapshot and registers
// it.
func (s *Server) restoreRoom(roomID string) error {
	snap, err := s.db.LoadLatestSnapshot(roomID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %v", err)
	}

	cfg := s.roomConfig(roomID)
	room, err := kaiser.RestoreRoom(cfg, snap)
	if err != nil {
		return fmt.Errorf("failed to rebuild room: %v", err)
	}
	room.SetEventChannel(s.roomEvents)

	s.mu.Lock()
	s.rooms[roomID] = room
	s.mu.Unlock()

	s.log.Infof("Restored room %s at phase %s, round %d", roomID, snap.Phase, snap.Round)
	return nil
}
