package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/haldrik/kaiserd/pkg/kaiser"
)

// MatchResult is one finished game, recorded for the stats subsystem.
type MatchResult struct {
	ID         int64
	RoomID     string
	WinnerTeam int
	Scores     [kaiser.NumTeams]int
	Rounds     int
	FinishedAt string
}

// DB represents the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	// Create rooms table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Create snapshots table; one row per room and round, the state
	// column holds the replayable JSON snapshot
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS room_snapshots (
			room_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			state TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (room_id, round),
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)
	`)
	if err != nil {
		return err
	}

	// Create match results table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			winner_team INTEGER NOT NULL,
			score_team0 INTEGER NOT NULL,
			score_team1 INTEGER NOT NULL,
			rounds INTEGER NOT NULL,
			finished_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	return nil
}

// SaveSnapshot persists a room snapshot, replacing the one for the same
// round if present.
func (db *DB) SaveSnapshot(roomID string, round int, snap *kaiser.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO rooms (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, roomID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO room_snapshots (room_id, round, state, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id, round) DO UPDATE SET
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`, roomID, round, string(state))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadLatestSnapshot returns the snapshot of a room's most recent round.
func (db *DB) LoadLatestSnapshot(roomID string) (*kaiser.Snapshot, error) {
	var state string
	err := db.QueryRow(`
		SELECT state FROM room_snapshots
		WHERE room_id = ?
		ORDER BY round DESC LIMIT 1
	`, roomID).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no snapshot for room %s", roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %v", err)
	}

	var snap kaiser.Snapshot
	if err := json.Unmarshal([]byte(state), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %v", err)
	}
	return &snap, nil
}

// DeleteRoom removes a room and its snapshots.
func (db *DB) DeleteRoom(roomID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM room_snapshots WHERE room_id = ?", roomID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM rooms WHERE id = ?", roomID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAllRoomIDs lists every room with persisted state.
func (db *DB) GetAllRoomIDs() ([]string, error) {
	rows, err := db.Query("SELECT id FROM rooms ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordMatchResult appends one finished game to the history.
func (db *DB) RecordMatchResult(res *MatchResult) error {
	result, err := db.Exec(`
		INSERT INTO match_results (room_id, winner_team, score_team0, score_team1, rounds)
		VALUES (?, ?, ?, ?, ?)
	`, res.RoomID, res.WinnerTeam, res.Scores[0], res.Scores[1], res.Rounds)
	if err != nil {
		return err
	}
	res.ID, _ = result.LastInsertId()
	return nil
}

// GetMatchResults returns the recorded history for a room.
func (db *DB) GetMatchResults(roomID string) ([]*MatchResult, error) {
	rows, err := db.Query(`
		SELECT id, room_id, winner_team, score_team0, score_team1, rounds, finished_at
		FROM match_results WHERE room_id = ? ORDER BY id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %v", err)
	}
	defer rows.Close()

	var out []*MatchResult
	for rows.Next() {
		res := &MatchResult{}
		if err := rows.Scan(&res.ID, &res.RoomID, &res.WinnerTeam,
			&res.Scores[0], &res.Scores[1], &res.Rounds, &res.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
