// internal/catalog/testutil_test.go
package catalog

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/offtube/offtube/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func newTestVideo(id string) *Video {
	return &Video{
		VideoID:           id,
		Title:             "Video " + id,
		ChannelName:       "channel",
		TotalDurationSecs: 600,
		AddedToPlaylistAt: time.Now().Add(-time.Hour),
	}
}

// addVideo inserts a video and drives it to the requested status.
func addVideo(t *testing.T, s *Store, id string, status Status) *Video {
	t.Helper()
	v := newTestVideo(id)
	if err := s.Upsert(v); err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
	switch status {
	case StatusPending:
	case StatusDownloading:
		mustClaim(t, s, v)
	case StatusCompleted:
		mustClaim(t, s, v)
		if err := s.MarkCompleted(v, "/videos/"+id+".mp4"); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	case StatusFailed:
		mustClaim(t, s, v)
		if err := s.MarkFailed(v); err != nil {
			t.Fatalf("fail %s: %v", id, err)
		}
	}
	return v
}

func mustClaim(t *testing.T, s *Store, v *Video) {
	t.Helper()
	if err := s.Claim(v); err != nil {
		t.Fatalf("claim %s: %v", v.VideoID, err)
	}
}

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}
