package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncState is the process-wide sync bookkeeping singleton.
type SyncState struct {
	LastFullSyncAt        *time.Time
	IsSyncing             bool
	LastError             *string
	TotalVideosInPlaylist int
	DownloadedVideos      int
	WatchedVideos         int
	RemotePlaylistID      *string
}

// SyncState returns the singleton sync state, creating it with defaults on
// first access.
func (s *Store) SyncState() (*SyncState, error) {
	st := &SyncState{}
	err := s.db.QueryRow(`
		SELECT last_full_sync_at, is_syncing, last_error,
			total_videos_in_playlist, downloaded_videos_count,
			watched_videos_count, remote_playlist_id
		FROM sync_state WHERE id = 1`,
	).Scan(&st.LastFullSyncAt, &st.IsSyncing, &st.LastError,
		&st.TotalVideosInPlaylist, &st.DownloadedVideos,
		&st.WatchedVideos, &st.RemotePlaylistID)

	if err == sql.ErrNoRows {
		if _, err := s.db.Exec("INSERT INTO sync_state (id) VALUES (1)"); err != nil {
			return nil, fmt.Errorf("init sync state: %w", mapSQLiteError(err))
		}
		return &SyncState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return st, nil
}

func (s *Store) ensureSyncState() error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO sync_state (id) VALUES (1)")
	if err != nil {
		return fmt.Errorf("ensure sync state: %w", err)
	}
	return nil
}

// StartSync marks a sync as in progress and clears the last error.
func (s *Store) StartSync() error {
	if err := s.ensureSyncState(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE sync_state SET is_syncing = 1, last_error = NULL WHERE id = 1")
	if err != nil {
		return fmt.Errorf("start sync: %w", err)
	}
	return nil
}

// CompleteSync records a successful sync along with refreshed counters.
func (s *Store) CompleteSync(totalRemote int, playlistID string) error {
	if err := s.ensureSyncState(); err != nil {
		return err
	}
	_, completed, watched, err := s.Counts()
	if err != nil {
		return err
	}

	var pid *string
	if playlistID != "" {
		pid = &playlistID
	}
	_, err = s.db.Exec(`
		UPDATE sync_state SET is_syncing = 0, last_error = NULL,
			last_full_sync_at = ?, total_videos_in_playlist = ?,
			downloaded_videos_count = ?, watched_videos_count = ?,
			remote_playlist_id = COALESCE(?, remote_playlist_id)
		WHERE id = 1`,
		time.Now(), totalRemote, completed, watched, pid)
	if err != nil {
		return fmt.Errorf("complete sync: %w", err)
	}
	return nil
}

// FailSync records a failed sync with its error text.
func (s *Store) FailSync(msg string) error {
	if err := s.ensureSyncState(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE sync_state SET is_syncing = 0, last_error = ? WHERE id = 1", msg)
	if err != nil {
		return fmt.Errorf("fail sync: %w", err)
	}
	return nil
}
