package repair

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/offtube/offtube/internal/catalog"
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

func newTestRepairer(t *testing.T) (*Repairer, *catalog.Store, string) {
	t.Helper()
	store := catalog.NewStore(setupTestDB(t))
	dir := t.TempDir()
	return NewRepairer(store, dir, nil), store, dir
}

func addVideo(t *testing.T, store *catalog.Store, id, title string) *catalog.Video {
	t.Helper()
	v := &catalog.Video{
		VideoID:           id,
		Title:             title,
		TotalDurationSecs: 600,
		AddedToPlaylistAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Upsert(v))
	return v
}

func complete(t *testing.T, store *catalog.Store, v *catalog.Video, path string) {
	t.Helper()
	require.NoError(t, store.Claim(v))
	require.NoError(t, store.MarkCompleted(v, path))
}

func writeMedia(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))
	return path
}

func TestRun_ResetsCompletedWithMissingFile(t *testing.T) {
	r, store, dir := newTestRepairer(t)

	gone := addVideo(t, store, "aaa", "Vanished Video")
	complete(t, store, gone, filepath.Join(dir, "Vanished Video.mp4")) // never written

	kept := addVideo(t, store, "bbb", "Still Here")
	complete(t, store, kept, writeMedia(t, dir, "Still Here.mp4"))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa"}, report.ResetMissing)
	assert.Empty(t, report.Reattached)
	assert.Empty(t, report.Unmatched)

	got, _ := store.Get("aaa")
	assert.Equal(t, catalog.StatusPending, got.DownloadStatus)
	assert.Nil(t, got.FilePath)
	got, _ = store.Get("bbb")
	assert.Equal(t, catalog.StatusCompleted, got.DownloadStatus)
}

func TestRun_ReattachesOrphanBySimilarTitle(t *testing.T) {
	r, store, dir := newTestRepairer(t)

	addVideo(t, store, "aaa", "My Favorite Documentary")
	addVideo(t, store, "bbb", "Something Else Entirely Different")
	// Stem differs slightly from the sanitized title, as after a manual rename.
	orphan := writeMedia(t, dir, "My Favorite Documentry.mp4")

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Reattached, 1)
	assert.Equal(t, "aaa", report.Reattached[0].VideoID)
	assert.Equal(t, orphan, report.Reattached[0].FilePath)
	assert.GreaterOrEqual(t, report.Reattached[0].Score, matchThreshold)

	got, _ := store.Get("aaa")
	assert.Equal(t, catalog.StatusCompleted, got.DownloadStatus)
	require.NotNil(t, got.FilePath)
	assert.Equal(t, orphan, *got.FilePath)

	got, _ = store.Get("bbb")
	assert.Equal(t, catalog.StatusPending, got.DownloadStatus)
}

func TestRun_UnmatchedOrphanIsReported(t *testing.T) {
	r, store, dir := newTestRepairer(t)

	addVideo(t, store, "aaa", "Cooking With Gas")
	orphan := writeMedia(t, dir, "Completely Unrelated Recording.mp4")

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Reattached)
	assert.Equal(t, []string{orphan}, report.Unmatched)

	got, _ := store.Get("aaa")
	assert.Equal(t, catalog.StatusPending, got.DownloadStatus)
}

func TestRun_DeletedVideosNeverReattach(t *testing.T) {
	r, store, dir := newTestRepairer(t)

	addVideo(t, store, "aaa", "Gone But On Disk")
	_, err := store.SoftDelete("aaa")
	require.NoError(t, err)
	orphan := writeMedia(t, dir, "Gone But On Disk.mp4")

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Reattached)
	assert.Equal(t, []string{orphan}, report.Unmatched)
}

func TestRun_OrphanClaimedByBestScorer(t *testing.T) {
	r, store, dir := newTestRepairer(t)

	addVideo(t, store, "aaa", "Morning Routine Part 1")
	addVideo(t, store, "bbb", "Morning Routine Part 2")
	writeMedia(t, dir, "Morning Routine Part 2.mp4")

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Reattached, 1)
	assert.Equal(t, "bbb", report.Reattached[0].VideoID)

	got, _ := store.Get("aaa")
	assert.Equal(t, catalog.StatusPending, got.DownloadStatus)
}

func TestRun_IgnoresNonMediaAndSubdirs(t *testing.T) {
	r, store, dir := newTestRepairer(t)
	addVideo(t, store, "aaa", "Some Video")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Some Video.mp4.d"), 0o755))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Reattached)
	assert.Empty(t, report.Unmatched)
}

func TestRun_MissingDownloadDir(t *testing.T) {
	store := catalog.NewStore(setupTestDB(t))
	r := NewRepairer(store, "/nonexistent/videos", nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.ResetMissing)
	assert.Empty(t, report.Unmatched)
}
