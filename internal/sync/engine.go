// Package sync reconciles the remote playlist against the local catalog
// and hands the resulting pending set to the download orchestrator.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/download"
	"github.com/offtube/offtube/internal/events"
)

// SyncResult reports the outcome of one reconciliation pass. Partial
// catalog mutations stay committed even on failure; reconciliation is
// idempotent, so a re-run converges to the same end state.
type SyncResult struct {
	Success          bool
	TotalVideos      int
	NewVideos        int
	PendingDownloads int
	Err              error

	// Downloads is non-nil when auto-download kicked off a batch. The
	// caller may Wait on it or ignore it; batch errors never propagate
	// into the sync result.
	Downloads *BatchTask
}

// Engine drives playlist reconciliation.
type Engine struct {
	store      *catalog.Store
	orch       *download.Orchestrator
	bus        *events.Bus
	playlistID string
	log        *slog.Logger
}

// NewEngine creates a sync engine. orch may be nil when auto-download is
// never requested.
func NewEngine(store *catalog.Store, orch *download.Orchestrator, bus *events.Bus,
	playlistID string, log *slog.Logger) *Engine {

	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:      store,
		orch:       orch,
		bus:        bus,
		playlistID: playlistID,
		log:        log.With("component", "sync"),
	}
}

// Reconcile applies a freshly fetched remote video list to the catalog:
// new videos are inserted as pending, failed and stuck-downloading videos
// are reset to pending, soft-deleted videos are never resurrected, and
// pending/completed videos only get their metadata refreshed. The remote
// list is deduplicated by id with the last occurrence winning.
func (e *Engine) Reconcile(ctx context.Context, remote []*catalog.Video, autoDownload bool) *SyncResult {
	res := &SyncResult{}

	if err := e.store.StartSync(); err != nil {
		return e.fail(ctx, res, fmt.Errorf("start sync: %w", err))
	}
	e.publish(ctx, &events.SyncStarted{
		BaseEvent:  events.NewBaseEvent(events.EventSyncStarted, "", "playlist sync started"),
		PlaylistID: e.playlistID,
	})

	remote = dedupe(remote)
	res.TotalVideos = len(remote)

	locals, err := e.store.List(catalog.Filter{})
	if err != nil {
		return e.fail(ctx, res, fmt.Errorf("list catalog: %w", err))
	}
	existing := make(map[string]*catalog.Video, len(locals))
	deleted := make(map[string]bool)
	for _, v := range locals {
		existing[v.VideoID] = v
		if v.IsDeleted {
			deleted[v.VideoID] = true
		}
	}

	for _, rv := range remote {
		if deleted[rv.VideoID] {
			continue
		}

		local, ok := existing[rv.VideoID]
		if !ok {
			rv.DownloadStatus = catalog.StatusPending
			if err := e.store.Upsert(rv); err != nil {
				return e.fail(ctx, res, fmt.Errorf("insert %s: %w", rv.VideoID, err))
			}
			res.NewVideos++
			continue
		}

		// Metadata refresh only; status and progress are untouched.
		if err := e.store.Upsert(rv); err != nil {
			return e.fail(ctx, res, fmt.Errorf("refresh %s: %w", rv.VideoID, err))
		}

		switch local.DownloadStatus {
		case catalog.StatusFailed:
			if err := e.store.ResetPending(local); err != nil {
				return e.fail(ctx, res, fmt.Errorf("reset failed %s: %w", rv.VideoID, err))
			}
		case catalog.StatusDownloading:
			// A prior run ended mid-download; nothing is driving it now.
			e.log.Warn("resetting stuck download", "video_id", rv.VideoID)
			if err := e.store.ResetPending(local); err != nil {
				return e.fail(ctx, res, fmt.Errorf("reset stuck %s: %w", rv.VideoID, err))
			}
		}
	}

	if err := e.store.CompleteSync(res.TotalVideos, e.playlistID); err != nil {
		return e.fail(ctx, res, fmt.Errorf("complete sync: %w", err))
	}

	pending, err := e.store.List(catalog.Filter{Downloadable: true})
	if err != nil {
		return e.fail(ctx, res, fmt.Errorf("count pending: %w", err))
	}
	res.PendingDownloads = len(pending)
	res.Success = true

	e.publish(ctx, &events.SyncCompleted{
		BaseEvent: events.NewBaseEvent(events.EventSyncCompleted, "",
			fmt.Sprintf("sync complete: %d videos, %d new, %d pending",
				res.TotalVideos, res.NewVideos, res.PendingDownloads)),
		TotalVideos:      res.TotalVideos,
		NewVideos:        res.NewVideos,
		PendingDownloads: res.PendingDownloads,
	})
	e.log.Info("reconcile complete",
		"total", res.TotalVideos, "new", res.NewVideos, "pending", res.PendingDownloads)

	if autoDownload && res.PendingDownloads > 0 && e.orch != nil {
		res.Downloads = e.startBatch(ctx)
	}
	return res
}

// fail records the error in sync state, emits the failure event, and
// returns the partial result. Already-applied mutations stay committed.
func (e *Engine) fail(ctx context.Context, res *SyncResult, err error) *SyncResult {
	res.Err = err
	if serr := e.store.FailSync(err.Error()); serr != nil {
		e.log.Error("persist sync failure failed", "error", serr)
	}
	e.publish(ctx, &events.SyncFailed{
		BaseEvent: events.NewBaseEvent(events.EventSyncFailed, "",
			fmt.Sprintf("sync failed: %v", err)),
		Error: err.Error(),
	})
	e.log.Error("reconcile failed", "error", err)
	return res
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.bus != nil {
		_ = e.bus.Publish(ctx, ev)
	}
}

// dedupe collapses duplicate video ids, keeping the position of the first
// occurrence and the data of the last.
func dedupe(remote []*catalog.Video) []*catalog.Video {
	index := make(map[string]int, len(remote))
	out := remote[:0:0]
	for _, v := range remote {
		if i, ok := index[v.VideoID]; ok {
			out[i] = v
			continue
		}
		index[v.VideoID] = len(out)
		out = append(out, v)
	}
	return out
}
