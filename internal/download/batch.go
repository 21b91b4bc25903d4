package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/offtube/offtube/internal/catalog"
)

// BatchResult summarizes one sequential pass over downloadable videos.
type BatchResult struct {
	Total     int
	Completed int
	Failed    int
	Cancelled int
	Skipped   int
}

// DownloadPending downloads every downloadable video in playlist order,
// one at a time. Each video's final status is persisted before the next
// one starts, so an interrupted pass leaves nothing half-recorded. The
// network policy is re-checked per video, so a connection that comes
// back mid-pass lets the remaining videos proceed.
func (o *Orchestrator) DownloadPending(ctx context.Context) (*BatchResult, error) {
	videos, err := o.store.List(catalog.Filter{Downloadable: true})
	if err != nil {
		return nil, fmt.Errorf("list downloadable videos: %w", err)
	}

	res := &BatchResult{Total: len(videos)}
	if res.Total == 0 {
		return res, nil
	}
	o.log.Info("batch starting", "videos", res.Total)

	for i, v := range videos {
		if ctx.Err() != nil {
			res.Skipped += res.Total - i
			break
		}

		_, err := o.DownloadWithRetry(ctx, v, o.cfg.Quality)
		switch {
		case err == nil:
			res.Completed++
		case errors.Is(err, ErrPolicyDenied):
			res.Skipped++
			o.log.Info("video skipped by network policy", "video_id", v.VideoID)
		case errors.Is(err, ErrCancelled):
			res.Cancelled++
			if ctx.Err() != nil {
				// The whole batch was cancelled, not just this video.
				res.Skipped += res.Total - i - 1
				o.log.Info("batch cancelled", "completed", res.Completed, "skipped", res.Skipped)
				return res, nil
			}
		default:
			res.Failed++
		}
	}

	o.log.Info("batch finished",
		"total", res.Total, "completed", res.Completed,
		"failed", res.Failed, "cancelled", res.Cancelled, "skipped", res.Skipped)
	return res, nil
}
