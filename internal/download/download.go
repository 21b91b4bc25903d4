// Package download drives videos through the download state machine:
// pending -> downloading -> completed or failed, with retry, backoff,
// server-side queue awareness, and cancellation.
package download

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/events"
	"github.com/offtube/offtube/internal/fetch"
	"github.com/offtube/offtube/internal/netpolicy"
	"github.com/offtube/offtube/internal/progress"
)

// Sentinel errors for the download package. All of these resolve to a
// status transition or a skipped video; none escape the batch boundary.
var (
	// ErrPolicyDenied means the network policy refused the transfer.
	// Not a failure - the video stays pending.
	ErrPolicyDenied = errors.New("network policy denied download")

	// ErrCancelled means the caller cancelled the operation.
	ErrCancelled = errors.New("download cancelled")

	// ErrQueueTimeout means the queue-wait cap elapsed before the remote
	// service finished the video.
	ErrQueueTimeout = errors.New("queue wait timed out")

	// ErrEmptyFile means the transfer produced an empty file.
	ErrEmptyFile = errors.New("downloaded file is empty")

	// ErrRetriesExhausted wraps the last attempt error once the retry
	// budget is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Fetcher is the remote fetch service surface the orchestrator needs.
type Fetcher interface {
	Health(ctx context.Context) error
	Status(ctx context.Context, videoID string) (*fetch.RemoteStatus, error)
	Download(ctx context.Context, videoID string, quality fetch.Quality) (*fetch.Stream, error)
}

// Config tunes the orchestrator.
type Config struct {
	DownloadDir    string
	Quality        fetch.Quality
	WifiOnly       bool
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	HealthTimeout  time.Duration
	PollInterval   time.Duration // status polling while awaiting response headers
	QueuePoll      time.Duration // status polling during queue-wait
	QueueWaitCap   time.Duration // overall queue-wait (and blocked-wait) budget
	MinPlausible   int64         // bytes below which an existing file is a stale partial
}

func (c *Config) applyDefaults() {
	if c.Quality == "" {
		c.Quality = fetch.Quality1080
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 5 * time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 90 * time.Second
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = 10 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.QueuePoll == 0 {
		c.QueuePoll = 3 * time.Second
	}
	if c.QueueWaitCap == 0 {
		c.QueueWaitCap = 300 * time.Second
	}
	if c.MinPlausible == 0 {
		c.MinPlausible = 100 * 1024
	}
}

// Orchestrator drives downloads for catalog videos. Batch processing is
// strictly sequential; one orchestrator never runs two transfers against
// the remote service at once.
type Orchestrator struct {
	client  Fetcher
	store   *catalog.Store
	gate    *netpolicy.Gate
	bus     *events.Bus
	cfg     Config
	log     *slog.Logger
	cancels *cancelRegistry
	track   *trackerRegistry
}

// NewOrchestrator creates a download orchestrator.
func NewOrchestrator(client Fetcher, store *catalog.Store, gate *netpolicy.Gate,
	bus *events.Bus, cfg Config, log *slog.Logger) *Orchestrator {

	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	if gate == nil {
		gate = netpolicy.NewGate(nil)
	}
	return &Orchestrator{
		client:  client,
		store:   store,
		gate:    gate,
		bus:     bus,
		cfg:     cfg,
		log:     log.With("component", "download"),
		cancels: newCancelRegistry(),
		track:   newTrackerRegistry(),
	}
}

// Tracker returns the progress tracker for an in-flight video, or nil if
// none is active.
func (o *Orchestrator) Tracker(videoID string) *progress.Tracker {
	return o.track.get(videoID)
}

// Cancel requests cancellation of an in-flight download. It never fails;
// cancelling an unknown video is a no-op.
func (o *Orchestrator) Cancel(videoID string) {
	o.cancels.cancel(videoID)
}

// CancelAll requests cancellation of every in-flight download.
func (o *Orchestrator) CancelAll() {
	o.cancels.cancelAll()
}

// publish emits an event on the bus, if one is configured.
func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if o.bus != nil {
		_ = o.bus.Publish(ctx, e)
	}
}

// reportProgress feeds the tracker and, when the throttle lets the value
// through, persists it and emits a progress event. Terminal values go
// through finishProgress instead.
func (o *Orchestrator) reportProgress(ctx context.Context, videoID string, value float64) {
	t := o.track.get(videoID)
	if t == nil || !t.Publish(value) {
		return
	}
	if err := o.store.SetProgress(videoID, value); err != nil {
		o.log.Warn("persist progress failed", "video_id", videoID, "error", err)
	}
	o.publish(ctx, &events.DownloadProgressed{
		BaseEvent: events.NewBaseEvent(events.EventDownloadProgressed, videoID, ""),
		Progress:  value,
	})
}
