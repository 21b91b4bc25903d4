// internal/download/testutil_test.go
package download

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/fetch"
	"github.com/offtube/offtube/internal/migrations"
	"github.com/offtube/offtube/internal/netpolicy"
)

// stubFetcher is a scriptable Fetcher. Status and Download consume their
// queues; an empty queue yields the configured fallback.
type stubFetcher struct {
	mu sync.Mutex

	healthErr   error
	healthCalls int

	statuses    []*fetch.RemoteStatus
	statusErrs  []error
	statusCalls int

	downloads     []downloadResult
	downloadCalls int
}

type downloadResult struct {
	data []byte
	body io.ReadCloser
	err  error
}

func (f *stubFetcher) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthCalls++
	return f.healthErr
}

func (f *stubFetcher) Status(ctx context.Context, videoID string) (*fetch.RemoteStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		return nil, err
	}
	if len(f.statuses) == 0 {
		return &fetch.RemoteStatus{VideoID: videoID, State: fetch.StateUnknown}, nil
	}
	st := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return st, nil
}

func (f *stubFetcher) Download(ctx context.Context, videoID string, quality fetch.Quality) (*fetch.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	if len(f.downloads) == 0 {
		return nil, fetch.ErrServiceUnavailable
	}
	res := f.downloads[0]
	f.downloads = f.downloads[1:]
	if res.err != nil {
		return nil, res.err
	}
	body := res.body
	length := int64(len(res.data))
	if body == nil {
		body = io.NopCloser(bytes.NewReader(res.data))
	} else {
		length = -1
	}
	return &fetch.Stream{Body: body, ContentLength: length}, nil
}

func (f *stubFetcher) calls() (health, status, download int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthCalls, f.statusCalls, f.downloadCalls
}

// slowBody yields chunks with a delay, so tests can cancel mid-transfer.
type slowBody struct {
	chunks int
	delay  time.Duration
}

func (b *slowBody) Read(p []byte) (int, error) {
	if b.chunks == 0 {
		return 0, io.EOF
	}
	b.chunks--
	time.Sleep(b.delay)
	n := copy(p, bytes.Repeat([]byte("x"), 1024))
	return n, nil
}

func (b *slowBody) Close() error { return nil }

// fixedDetector reports a constant connectivity.
type fixedDetector struct {
	conn netpolicy.Connectivity
}

func (d *fixedDetector) Detect() netpolicy.Connectivity { return d.conn }

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

// newTestOrchestrator wires an orchestrator against an in-memory catalog,
// a wifi connection, and timing dialed down for tests.
func newTestOrchestrator(t *testing.T, f *stubFetcher) (*Orchestrator, *catalog.Store, string) {
	t.Helper()
	store := catalog.NewStore(setupTestDB(t))
	dir := t.TempDir()
	gate := netpolicy.NewGate(&fixedDetector{conn: netpolicy.ConnectivityWifi})

	orch := NewOrchestrator(f, store, gate, nil, Config{
		DownloadDir:    dir,
		Quality:        fetch.Quality1080,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		HealthTimeout:  time.Second,
		PollInterval:   5 * time.Millisecond,
		QueuePoll:      5 * time.Millisecond,
		QueueWaitCap:   500 * time.Millisecond,
		MinPlausible:   64,
	}, nil)
	return orch, store, dir
}

func addPending(t *testing.T, store *catalog.Store, id, title string) *catalog.Video {
	t.Helper()
	v := &catalog.Video{
		VideoID:           id,
		Title:             title,
		TotalDurationSecs: 600,
		AddedToPlaylistAt: time.Now().Add(-time.Hour),
	}
	if err := store.Upsert(v); err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
	return v
}
