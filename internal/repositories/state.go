// package repositories provides the sqlite-backed resume state for
// playlist-creation runs.
//
// A run's state survives the process: if a migration is interrupted after
// the destination playlist was created, the next run for the same source
// playlist reuses it and skips tracks already confirmed added.
package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// RunState is the persisted state of one source playlist's migration.
type RunState struct {
	SourcePlaylistID string
	RunID            string
	DestPlaylistID   string
	DestPlaylistName string
	UpdatedAt        time.Time
}

// StateStore persists run state and confirmed-added track keys. A nil
// *StateStore is valid and turns every method into a no-op, degrading to
// purely in-memory run-scoped behavior.
type StateStore struct {
	db *sql.DB
}

// NewStateStore creates a StateStore over an open database connection.
func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// Lookup returns the stored run state for a source playlist, or nil when no
// run has been recorded.
func (s *StateStore) Lookup(sourcePlaylistID string) (*RunState, error) {
	if s == nil {
		return nil, nil
	}

	query := `
		SELECT playlist_id, run_id, dest_playlist_id, dest_playlist_name, updated_at
		FROM run_state
		WHERE playlist_id = ?
	`

	var state RunState
	err := s.db.QueryRow(query, sourcePlaylistID).Scan(
		&state.SourcePlaylistID,
		&state.RunID,
		&state.DestPlaylistID,
		&state.DestPlaylistName,
		&state.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run state: %w", err)
	}

	return &state, nil
}

// Begin records a new run for a source playlist, replacing any previous run
// and clearing its added-track keys.
func (s *StateStore) Begin(sourcePlaylistID, runID, destID, destName string) error {
	if s == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM added_tracks WHERE playlist_id = ?`, sourcePlaylistID)
	if err != nil {
		return fmt.Errorf("failed to clear added tracks: %w", err)
	}

	query := `
		INSERT INTO run_state (playlist_id, run_id, dest_playlist_id, dest_playlist_name, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(playlist_id) DO UPDATE SET
			run_id = excluded.run_id,
			dest_playlist_id = excluded.dest_playlist_id,
			dest_playlist_name = excluded.dest_playlist_name,
			updated_at = excluded.updated_at
	`
	_, err = tx.Exec(query, sourcePlaylistID, runID, destID, destName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record run state: %w", err)
	}

	return tx.Commit()
}

// MarkAdded records a confirmed-added composite track key for a playlist.
func (s *StateStore) MarkAdded(sourcePlaylistID, key string) error {
	if s == nil {
		return nil
	}

	query := `
		INSERT INTO added_tracks (playlist_id, track_key, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id, track_key) DO NOTHING
	`
	if _, err := s.db.Exec(query, sourcePlaylistID, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record added track: %w", err)
	}
	return nil
}

// AddedKeys returns the confirmed-added composite keys for a playlist.
func (s *StateStore) AddedKeys(sourcePlaylistID string) (map[string]struct{}, error) {
	if s == nil {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT track_key FROM added_tracks WHERE playlist_id = ?`, sourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query added tracks: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan added track: %w", err)
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

// Clear removes a playlist's run state and added-track keys, typically after
// a run completes cleanly.
func (s *StateStore) Clear(sourcePlaylistID string) error {
	if s == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM added_tracks WHERE playlist_id = ?`, sourcePlaylistID); err != nil {
		return fmt.Errorf("failed to clear added tracks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM run_state WHERE playlist_id = ?`, sourcePlaylistID); err != nil {
		return fmt.Errorf("failed to clear run state: %w", err)
	}

	return tx.Commit()
}
