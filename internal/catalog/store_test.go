package catalog

import (
	"errors"
	"testing"
	"time"
)

func TestStore_UpsertAndGet(t *testing.T) {
	s := NewStore(setupTestDB(t))

	v := newTestVideo("abc123")
	if err := s.Upsert(v); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get("abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != v.Title {
		t.Errorf("Title = %q, want %q", got.Title, v.Title)
	}
	if got.DownloadStatus != StatusPending {
		t.Errorf("DownloadStatus = %q, want pending", got.DownloadStatus)
	}
	if got.FilePath != nil {
		t.Errorf("FilePath = %v, want nil", *got.FilePath)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s := NewStore(setupTestDB(t))

	_, err := s.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_Upsert_RefreshesMetadataOnly(t *testing.T) {
	s := NewStore(setupTestDB(t))
	v := addVideo(t, s, "abc123", StatusCompleted)

	update := newTestVideo("abc123")
	update.Title = "New Title"
	update.TotalDurationSecs = 999
	if err := s.Upsert(update); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get("abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "New Title" {
		t.Errorf("Title = %q, want refreshed title", got.Title)
	}
	if got.DownloadStatus != StatusCompleted {
		t.Errorf("DownloadStatus = %q, upsert must not touch status", got.DownloadStatus)
	}
	if got.FilePath == nil || *got.FilePath != *v.FilePath {
		t.Error("FilePath changed by upsert")
	}
	// Duration was already known; it must not be overwritten.
	if got.TotalDurationSecs != 600 {
		t.Errorf("TotalDurationSecs = %d, want 600", got.TotalDurationSecs)
	}
}

func TestStore_Upsert_FillsUnknownDuration(t *testing.T) {
	s := NewStore(setupTestDB(t))

	v := newTestVideo("abc123")
	v.TotalDurationSecs = 0
	if err := s.Upsert(v); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	update := newTestVideo("abc123")
	update.TotalDurationSecs = 720
	if err := s.Upsert(update); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, _ := s.Get("abc123")
	if got.TotalDurationSecs != 720 {
		t.Errorf("TotalDurationSecs = %d, want 720", got.TotalDurationSecs)
	}
}

func TestStore_StatusLifecycle(t *testing.T) {
	s := NewStore(setupTestDB(t))
	v := addVideo(t, s, "abc123", StatusPending)

	if err := s.Claim(v); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.MarkCompleted(v, "/videos/abc123.mp4"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got, _ := s.Get("abc123")
	if got.DownloadStatus != StatusCompleted {
		t.Errorf("DownloadStatus = %q, want completed", got.DownloadStatus)
	}
	if got.DownloadProgress != 1.0 {
		t.Errorf("DownloadProgress = %v, want 1.0", got.DownloadProgress)
	}
	if got.FilePath == nil || *got.FilePath != "/videos/abc123.mp4" {
		t.Error("FilePath not recorded")
	}
	if got.DownloadedAt == nil {
		t.Error("DownloadedAt not recorded")
	}
}

func TestStore_InvalidTransitions(t *testing.T) {
	s := NewStore(setupTestDB(t))

	v := addVideo(t, s, "pending1", StatusPending)
	if err := s.MarkCompleted(v, "/x.mp4"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending -> completed = %v, want ErrInvalidTransition", err)
	}
	if err := s.MarkFailed(v); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending -> failed = %v, want ErrInvalidTransition", err)
	}

	done := addVideo(t, s, "done1", StatusCompleted)
	if err := s.Claim(done); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed -> downloading = %v, want ErrInvalidTransition", err)
	}
}

func TestStore_MarkFailed_ClearsProgressAndPath(t *testing.T) {
	s := NewStore(setupTestDB(t))
	v := addVideo(t, s, "abc123", StatusDownloading)

	if err := s.SetProgress("abc123", 0.4); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if err := s.MarkFailed(v); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, _ := s.Get("abc123")
	if got.DownloadStatus != StatusFailed || got.DownloadProgress != 0 {
		t.Errorf("after fail: status=%q progress=%v", got.DownloadStatus, got.DownloadProgress)
	}
	if got.FilePath != nil {
		t.Error("FilePath should be cleared on failure")
	}
}

func TestStore_ResetPending_FromFailedAndStuck(t *testing.T) {
	s := NewStore(setupTestDB(t))

	failed := addVideo(t, s, "failed1", StatusFailed)
	if err := s.ResetPending(failed); err != nil {
		t.Fatalf("ResetPending(failed): %v", err)
	}

	stuck := addVideo(t, s, "stuck1", StatusDownloading)
	if err := s.ResetPending(stuck); err != nil {
		t.Fatalf("ResetPending(downloading): %v", err)
	}

	for _, id := range []string{"failed1", "stuck1"} {
		got, _ := s.Get(id)
		if got.DownloadStatus != StatusPending || got.DownloadProgress != 0 {
			t.Errorf("%s: status=%q progress=%v, want pending/0", id, got.DownloadStatus, got.DownloadProgress)
		}
	}
}

func TestStore_List_DownloadableFilter(t *testing.T) {
	s := NewStore(setupTestDB(t))

	addVideo(t, s, "pending1", StatusPending)
	addVideo(t, s, "failed1", StatusFailed)
	addVideo(t, s, "done1", StatusCompleted)
	addVideo(t, s, "active1", StatusDownloading)

	addVideo(t, s, "deleted1", StatusPending)
	if _, err := s.SoftDelete("deleted1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	addVideo(t, s, "watched1", StatusPending)
	if err := s.SetWatched("watched1", true); err != nil {
		t.Fatalf("SetWatched: %v", err)
	}

	got, err := s.List(Filter{Downloadable: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := make(map[string]bool)
	for _, v := range got {
		ids[v.VideoID] = true
	}
	if len(got) != 2 || !ids["pending1"] || !ids["failed1"] {
		t.Errorf("downloadable set = %v, want {pending1, failed1}", ids)
	}
}

func TestStore_List_OrderedByAddedAt(t *testing.T) {
	s := NewStore(setupTestDB(t))

	for i, id := range []string{"c", "a", "b"} {
		v := newTestVideo(id)
		v.AddedToPlaylistAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := s.Upsert(v); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	got, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 || got[0].VideoID != "c" || got[1].VideoID != "a" || got[2].VideoID != "b" {
		t.Errorf("order wrong: %v %v %v", got[0].VideoID, got[1].VideoID, got[2].VideoID)
	}
}

func TestStore_SoftDelete_ResetsStateAndReturnsPath(t *testing.T) {
	s := NewStore(setupTestDB(t))
	addVideo(t, s, "abc123", StatusCompleted)

	oldPath, err := s.SoftDelete("abc123")
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if oldPath == nil || *oldPath != "/videos/abc123.mp4" {
		t.Errorf("oldPath = %v, want /videos/abc123.mp4", oldPath)
	}

	got, _ := s.Get("abc123")
	if !got.IsDeleted || got.DeletedAt == nil {
		t.Error("video not marked deleted")
	}
	if got.DownloadStatus != StatusPending || got.DownloadProgress != 0 || got.FilePath != nil {
		t.Error("soft delete must reset download state")
	}
}

func TestStore_Restore(t *testing.T) {
	s := NewStore(setupTestDB(t))
	addVideo(t, s, "abc123", StatusCompleted)
	if _, err := s.SoftDelete("abc123"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	if err := s.Restore("abc123"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, _ := s.Get("abc123")
	if got.IsDeleted || got.DeletedAt != nil {
		t.Error("video still deleted after restore")
	}
	if !got.Downloadable() {
		t.Error("restored video should be downloadable again")
	}
}

func TestStore_PermanentDelete_Idempotent(t *testing.T) {
	s := NewStore(setupTestDB(t))
	addVideo(t, s, "abc123", StatusPending)

	if err := s.PermanentDelete("abc123"); err != nil {
		t.Fatalf("PermanentDelete: %v", err)
	}
	if _, err := s.Get("abc123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	// Deleting again is not an error.
	if err := s.PermanentDelete("abc123"); err != nil {
		t.Errorf("second PermanentDelete: %v", err)
	}
}

func TestStore_UpdatePlayback_ThresholdMarksWatched(t *testing.T) {
	s := NewStore(setupTestDB(t))
	addVideo(t, s, "abc123", StatusCompleted) // 600s duration

	if err := s.UpdatePlayback("abc123", 300); err != nil {
		t.Fatalf("UpdatePlayback: %v", err)
	}
	got, _ := s.Get("abc123")
	if got.Watched || got.LastPositionSecs != 300 {
		t.Errorf("mid-playback: watched=%v position=%d", got.Watched, got.LastPositionSecs)
	}

	// 95% of 600s = 570s
	if err := s.UpdatePlayback("abc123", 580); err != nil {
		t.Fatalf("UpdatePlayback: %v", err)
	}
	got, _ = s.Get("abc123")
	if !got.Watched {
		t.Error("crossing the threshold should mark watched")
	}
	if got.LastPositionSecs != 0 {
		t.Errorf("position = %d, want 0 after completion", got.LastPositionSecs)
	}
}

func TestStore_Counts(t *testing.T) {
	s := NewStore(setupTestDB(t))

	addVideo(t, s, "a", StatusCompleted)
	addVideo(t, s, "b", StatusPending)
	addVideo(t, s, "c", StatusFailed)
	if err := s.SetWatched("a", true); err != nil {
		t.Fatalf("SetWatched: %v", err)
	}
	addVideo(t, s, "d", StatusPending)
	if _, err := s.SoftDelete("d"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	total, completed, watched, err := s.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if total != 3 || completed != 1 || watched != 1 {
		t.Errorf("Counts = %d/%d/%d, want 3/1/1", total, completed, watched)
	}
}
