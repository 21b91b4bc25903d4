package download

import (
	"context"
	"fmt"
	"time"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/events"
	"github.com/offtube/offtube/internal/fetch"
	"github.com/offtube/offtube/internal/progress"
)

// waitForQueue polls the remote status until the video becomes ready,
// then re-requests the download, which streams from the remote cache.
// While queued with no remote progress the reported value is pinned just
// above zero; once the remote starts working, its percentage maps into
// the first progress half. The wait is capped by QueueWaitCap.
func (o *Orchestrator) waitForQueue(ctx context.Context, v *catalog.Video, quality fetch.Quality) (string, error) {
	deadline := time.Now().Add(o.cfg.QueueWaitCap)
	o.log.Info("waiting on remote queue", "video_id", v.VideoID, "cap", o.cfg.QueueWaitCap)

	ticker := time.NewTicker(o.cfg.QueuePoll)
	defer ticker.Stop()

	queuedOnce := false
	for {
		if time.Now().After(deadline) {
			return "", ErrQueueTimeout
		}

		st, err := o.client.Status(ctx, v.VideoID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrCancelled
			}
			// Transient status failures just mean another poll.
			o.log.Debug("queue status poll failed", "video_id", v.VideoID, "error", err)
		} else {
			switch st.State {
			case fetch.StateReady, fetch.StateCached:
				return o.downloadOnce(ctx, v, quality)
			case fetch.StateFailed:
				msg := st.Message
				if msg == "" {
					msg = "remote download failed"
				}
				return "", fmt.Errorf("remote reported failure: %s", msg)
			case fetch.StateNotFound:
				return "", fmt.Errorf("remote no longer tracks video %s", v.VideoID)
			case fetch.StateQueued:
				if !queuedOnce {
					queuedOnce = true
					o.publish(ctx, &events.DownloadQueued{
						BaseEvent: events.NewBaseEvent(events.EventDownloadQueued, v.VideoID,
							fmt.Sprintf("queued at position %d", st.QueuePosition)),
						QueuePosition: st.QueuePosition,
					})
				}
				o.reportProgress(ctx, v.VideoID, progress.MapQueueWait(0))
			default:
				// starting, downloading, merging, transferring
				o.reportProgress(ctx, v.VideoID, progress.MapQueueWait(st.Progress))
			}
		}

		select {
		case <-ctx.Done():
			return "", ErrCancelled
		case <-ticker.C:
		}
	}
}
