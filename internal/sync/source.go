package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/offtube/offtube/internal/catalog"
)

// Source supplies the current remote playlist contents. The metadata
// provider itself lives outside this program; what arrives here is the
// already-resolved video list.
type Source interface {
	Fetch(ctx context.Context) ([]*catalog.Video, error)
}

// FileSource reads a playlist snapshot exported as a JSON file. The
// snapshot is an array of video entries in playlist order.
type FileSource struct {
	Path string
}

type snapshotEntry struct {
	VideoID           string    `json:"video_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ThumbnailURL      string    `json:"thumbnail_url"`
	ChannelName       string    `json:"channel_name"`
	DurationSecs      int       `json:"duration_secs"`
	AddedToPlaylistAt time.Time `json:"added_to_playlist_at"`
}

// Fetch loads and decodes the snapshot file.
func (s *FileSource) Fetch(_ context.Context) ([]*catalog.Video, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read playlist snapshot: %w", err)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode playlist snapshot %s: %w", s.Path, err)
	}

	videos := make([]*catalog.Video, 0, len(entries))
	for _, e := range entries {
		if e.VideoID == "" {
			return nil, fmt.Errorf("playlist snapshot %s: entry with empty video_id", s.Path)
		}
		added := e.AddedToPlaylistAt
		if added.IsZero() {
			added = time.Now().UTC()
		}
		videos = append(videos, &catalog.Video{
			VideoID:           e.VideoID,
			Title:             e.Title,
			Description:       e.Description,
			ThumbnailURL:      e.ThumbnailURL,
			ChannelName:       e.ChannelName,
			TotalDurationSecs: e.DurationSecs,
			AddedToPlaylistAt: added,
		})
	}
	return videos, nil
}
