package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store provides access to the video catalog.
type Store struct {
	db *sql.DB
}

// NewStore creates a new catalog store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const videoColumns = `video_id, title, description, thumbnail_url, channel_name,
	total_duration_secs, added_to_playlist_at, file_path, download_status,
	download_progress, downloaded_at, watched, last_position_secs, is_deleted, deleted_at`

func scanVideo(row interface{ Scan(...any) error }) (*Video, error) {
	v := &Video{}
	var desc sql.NullString
	err := row.Scan(&v.VideoID, &v.Title, &desc, &v.ThumbnailURL, &v.ChannelName,
		&v.TotalDurationSecs, &v.AddedToPlaylistAt, &v.FilePath, &v.DownloadStatus,
		&v.DownloadProgress, &v.DownloadedAt, &v.Watched, &v.LastPositionSecs,
		&v.IsDeleted, &v.DeletedAt)
	if err != nil {
		return nil, err
	}
	v.Description = desc.String
	return v, nil
}

// Upsert inserts a video or, if it already exists, refreshes its remote
// metadata (title, description, thumbnail, channel). Download state and
// playback state are never touched by an upsert; duration is only set
// once it is known.
func (s *Store) Upsert(v *Video) error {
	if v.AddedToPlaylistAt.IsZero() {
		v.AddedToPlaylistAt = time.Now()
	}
	if v.DownloadStatus == "" {
		v.DownloadStatus = StatusPending
	}
	_, err := s.db.Exec(`
		INSERT INTO videos (video_id, title, description, thumbnail_url, channel_name,
			total_duration_secs, added_to_playlist_at, download_status, download_progress)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			thumbnail_url = excluded.thumbnail_url,
			channel_name = excluded.channel_name,
			total_duration_secs = CASE
				WHEN videos.total_duration_secs = 0 THEN excluded.total_duration_secs
				ELSE videos.total_duration_secs
			END`,
		v.VideoID, v.Title, v.Description, v.ThumbnailURL, v.ChannelName,
		v.TotalDurationSecs, v.AddedToPlaylistAt, v.DownloadStatus, v.DownloadProgress,
	)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.VideoID, mapSQLiteError(err))
	}
	return nil
}

// Get retrieves a video by id.
// Returns ErrNotFound if the video does not exist.
func (s *Store) Get(id string) (*Video, error) {
	row := s.db.QueryRow("SELECT "+videoColumns+" FROM videos WHERE video_id = ?", id)
	v, err := scanVideo(row)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, mapSQLiteError(err))
	}
	return v, nil
}

// List returns videos matching the specified filter, ordered by when they
// were added to the playlist.
func (s *Store) List(f Filter) ([]*Video, error) {
	var conditions []string
	var args []any

	if f.Status != nil {
		conditions = append(conditions, "download_status = ?")
		args = append(args, *f.Status)
	}
	if f.Deleted != nil {
		conditions = append(conditions, "is_deleted = ?")
		args = append(args, *f.Deleted)
	}
	if f.Watched != nil {
		conditions = append(conditions, "watched = ?")
		args = append(args, *f.Watched)
	}
	if f.Downloadable {
		conditions = append(conditions, "download_status IN (?, ?)", "is_deleted = 0", "watched = 0")
		args = append(args, StatusPending, StatusFailed)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + videoColumns + " FROM videos " + whereClause + " ORDER BY added_to_playlist_at, video_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return results, nil
}

func (s *Store) checkTransition(v *Video, to Status) error {
	if !v.DownloadStatus.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v.DownloadStatus, to)
	}
	return nil
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

// Claim moves a video out of pending (or failed) into downloading so that
// no other operation can pick it up.
func (s *Store) Claim(v *Video) error {
	if err := s.checkTransition(v, StatusDownloading); err != nil {
		return err
	}
	result, err := s.db.Exec(
		"UPDATE videos SET download_status = ? WHERE video_id = ?",
		StatusDownloading, v.VideoID)
	if err != nil {
		return fmt.Errorf("claim video %s: %w", v.VideoID, mapSQLiteError(err))
	}
	if err := checkAffected(result, v.VideoID); err != nil {
		return err
	}
	v.DownloadStatus = StatusDownloading
	return nil
}

// MarkCompleted records a finished download: status completed, progress 1.0,
// file path and completion timestamp set.
func (s *Store) MarkCompleted(v *Video, path string) error {
	if err := s.checkTransition(v, StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	result, err := s.db.Exec(`
		UPDATE videos SET download_status = ?, download_progress = 1.0,
			file_path = ?, downloaded_at = ?
		WHERE video_id = ?`,
		StatusCompleted, path, now, v.VideoID)
	if err != nil {
		return fmt.Errorf("complete video %s: %w", v.VideoID, mapSQLiteError(err))
	}
	if err := checkAffected(result, v.VideoID); err != nil {
		return err
	}
	v.DownloadStatus = StatusCompleted
	v.DownloadProgress = 1.0
	v.FilePath = &path
	v.DownloadedAt = &now
	return nil
}

// MarkFailed records a failed download: status failed, progress reset.
func (s *Store) MarkFailed(v *Video) error {
	if err := s.checkTransition(v, StatusFailed); err != nil {
		return err
	}
	result, err := s.db.Exec(`
		UPDATE videos SET download_status = ?, download_progress = 0,
			file_path = NULL, downloaded_at = NULL
		WHERE video_id = ?`,
		StatusFailed, v.VideoID)
	if err != nil {
		return fmt.Errorf("fail video %s: %w", v.VideoID, mapSQLiteError(err))
	}
	if err := checkAffected(result, v.VideoID); err != nil {
		return err
	}
	v.DownloadStatus = StatusFailed
	v.DownloadProgress = 0
	v.FilePath = nil
	v.DownloadedAt = nil
	return nil
}

// ResetPending returns a video to the pending state, clearing progress,
// file path and completion timestamp. Used for stuck-download recovery and
// failed-video resets during sync.
func (s *Store) ResetPending(v *Video) error {
	if err := s.checkTransition(v, StatusPending); err != nil {
		return err
	}
	result, err := s.db.Exec(`
		UPDATE videos SET download_status = ?, download_progress = 0,
			file_path = NULL, downloaded_at = NULL
		WHERE video_id = ?`,
		StatusPending, v.VideoID)
	if err != nil {
		return fmt.Errorf("reset video %s: %w", v.VideoID, mapSQLiteError(err))
	}
	if err := checkAffected(result, v.VideoID); err != nil {
		return err
	}
	v.DownloadStatus = StatusPending
	v.DownloadProgress = 0
	v.FilePath = nil
	v.DownloadedAt = nil
	return nil
}

// SetProgress persists the current download progress for a video.
func (s *Store) SetProgress(id string, progress float64) error {
	result, err := s.db.Exec(
		"UPDATE videos SET download_progress = ? WHERE video_id = ?", progress, id)
	if err != nil {
		return fmt.Errorf("set progress %s: %w", id, mapSQLiteError(err))
	}
	return checkAffected(result, id)
}

// SoftDelete marks a video as deleted while keeping its record so future
// syncs will not resurrect it. Download state is reset per the catalog
// invariants. Returns the previous file path, if any, so the caller can
// remove the file from disk.
func (s *Store) SoftDelete(id string) (*string, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	oldPath := v.FilePath

	_, err = s.db.Exec(`
		UPDATE videos SET is_deleted = 1, deleted_at = ?,
			download_status = ?, download_progress = 0,
			file_path = NULL, downloaded_at = NULL
		WHERE video_id = ?`,
		time.Now(), StatusPending, id)
	if err != nil {
		return nil, fmt.Errorf("soft delete %s: %w", id, mapSQLiteError(err))
	}
	return oldPath, nil
}

// Restore clears the deleted flag so the video can be picked up by sync again.
func (s *Store) Restore(id string) error {
	result, err := s.db.Exec(
		"UPDATE videos SET is_deleted = 0, deleted_at = NULL WHERE video_id = ?", id)
	if err != nil {
		return fmt.Errorf("restore %s: %w", id, mapSQLiteError(err))
	}
	return checkAffected(result, id)
}

// PermanentDelete removes a video record entirely.
// This operation is idempotent - no error is returned if the video does not exist.
// The caller is responsible for removing the media file beforehand.
func (s *Store) PermanentDelete(id string) error {
	_, err := s.db.Exec("DELETE FROM videos WHERE video_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	return nil
}

// SetWatched sets the watched flag directly.
func (s *Store) SetWatched(id string, watched bool) error {
	result, err := s.db.Exec(
		"UPDATE videos SET watched = ? WHERE video_id = ?", watched, id)
	if err != nil {
		return fmt.Errorf("set watched %s: %w", id, mapSQLiteError(err))
	}
	return checkAffected(result, id)
}

// UpdatePlayback records the playback position for a video. Crossing the
// completion threshold marks the video watched and resets the position to 0.
func (s *Store) UpdatePlayback(id string, positionSecs int) error {
	if positionSecs < 0 {
		positionSecs = 0
	}
	v, err := s.Get(id)
	if err != nil {
		return err
	}

	watched := v.Watched
	if v.TotalDurationSecs > 0 &&
		float64(positionSecs) >= watchedThreshold*float64(v.TotalDurationSecs) {
		watched = true
		positionSecs = 0
	}

	_, err = s.db.Exec(
		"UPDATE videos SET last_position_secs = ?, watched = ? WHERE video_id = ?",
		positionSecs, watched, id)
	if err != nil {
		return fmt.Errorf("update playback %s: %w", id, mapSQLiteError(err))
	}
	return nil
}

// Counts returns catalog counters for the sync state: total non-deleted
// videos, completed downloads, and watched videos.
func (s *Store) Counts() (total, completed, watched int, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN download_status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN watched = 1 THEN 1 ELSE 0 END), 0)
		FROM videos WHERE is_deleted = 0`,
		StatusCompleted,
	).Scan(&total, &completed, &watched)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count videos: %w", err)
	}
	return total, completed, watched, nil
}
