package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/events"
	"github.com/offtube/offtube/internal/fetch"
	"github.com/offtube/offtube/internal/progress"
)

// transferChunkSize is the read buffer for streaming the response body.
const transferChunkSize = 256 * 1024

// Download runs a single download attempt for a video and finalizes its
// catalog status. Returns the destination path on success. All failures
// resolve to a status transition; the returned error classifies the
// outcome for the caller.
func (o *Orchestrator) Download(ctx context.Context, v *catalog.Video, quality fetch.Quality) (string, error) {
	ctx, cleanup := o.begin(ctx, v, quality)
	defer cleanup()

	path, err := o.downloadOnce(ctx, v, quality)
	o.finalize(ctx, v, path, err)
	return path, err
}

// begin registers cancellation and progress tracking for an operation on
// v and emits the start event. The returned cleanup must run when the
// operation ends.
func (o *Orchestrator) begin(ctx context.Context, v *catalog.Video, quality fetch.Quality) (context.Context, func()) {
	ctx, cancel := o.cancels.register(ctx, v.VideoID)
	o.track.start(v.VideoID)

	if quality == "" {
		quality = o.cfg.Quality
	}
	attemptID := uuid.NewString()
	o.log.Info("download starting",
		"video_id", v.VideoID, "attempt_id", attemptID, "quality", quality)
	o.publish(ctx, &events.DownloadStarted{
		BaseEvent: events.NewBaseEvent(events.EventDownloadStarted, v.VideoID,
			fmt.Sprintf("downloading %q", v.Title)),
		AttemptID: attemptID,
		Quality:   string(quality),
	})
	o.reportProgress(ctx, v.VideoID, 0.0)

	return ctx, func() {
		cancel()
		o.cancels.unregister(v.VideoID)
	}
}

// finalize persists the terminal status for an operation and delivers the
// terminal progress event: exactly 1.0 on success, 0.0 otherwise.
func (o *Orchestrator) finalize(ctx context.Context, v *catalog.Video, path string, err error) {
	switch {
	case err == nil:
		if serr := o.store.MarkCompleted(v, path); serr != nil {
			o.log.Error("persist completed failed", "video_id", v.VideoID, "error", serr)
		}
		o.track.finish(v.VideoID, 1.0)
		o.publish(ctx, &events.DownloadCompleted{
			BaseEvent: events.NewBaseEvent(events.EventDownloadCompleted, v.VideoID,
				fmt.Sprintf("downloaded %q", v.Title)),
			FilePath: path,
		})
		o.log.Info("download completed", "video_id", v.VideoID, "path", path)

	case errors.Is(err, ErrPolicyDenied):
		// Not a failure: the video was never claimed, leave it untouched.
		o.track.finish(v.VideoID, 0.0)
		o.log.Info("download skipped by network policy", "video_id", v.VideoID)

	case errors.Is(err, ErrCancelled):
		if v.DownloadStatus == catalog.StatusDownloading {
			if serr := o.store.ResetPending(v); serr != nil {
				o.log.Error("reset after cancel failed", "video_id", v.VideoID, "error", serr)
			}
		}
		o.track.finish(v.VideoID, 0.0)
		o.publish(ctx, &events.DownloadCancelled{
			BaseEvent: events.NewBaseEvent(events.EventDownloadCancelled, v.VideoID,
				fmt.Sprintf("cancelled %q", v.Title)),
		})
		o.log.Info("download cancelled", "video_id", v.VideoID)

	default:
		if v.DownloadStatus == catalog.StatusDownloading {
			if serr := o.store.MarkFailed(v); serr != nil {
				o.log.Error("persist failed status failed", "video_id", v.VideoID, "error", serr)
			}
		}
		o.track.finish(v.VideoID, 0.0)
		o.publish(ctx, &events.DownloadFailed{
			BaseEvent: events.NewBaseEvent(events.EventDownloadFailed, v.VideoID,
				fmt.Sprintf("failed %q: %v", v.Title, err)),
			Error: err.Error(),
		})
		o.log.Warn("download failed", "video_id", v.VideoID, "error", err)
	}
}

// downloadOnce performs one full attempt: policy gate, health check,
// destination handling, the download request with concurrent status
// polling, and the streaming transfer.
func (o *Orchestrator) downloadOnce(ctx context.Context, v *catalog.Video, quality fetch.Quality) (string, error) {
	if quality == "" {
		quality = o.cfg.Quality
	}

	if d := o.gate.CanDownload(o.cfg.WifiOnly); !d.Allowed {
		return "", fmt.Errorf("%w: %s", ErrPolicyDenied, d.Reason)
	}

	// Claim the video so nothing else picks it up. Subsequent retry
	// attempts see it already claimed.
	if v.DownloadStatus != catalog.StatusDownloading {
		if err := o.store.Claim(v); err != nil {
			return "", err
		}
	}

	hctx, hcancel := context.WithTimeout(ctx, o.cfg.HealthTimeout)
	err := o.client.Health(hctx)
	hcancel()
	if err != nil {
		return "", err
	}

	dest := o.destPath(v)
	if fi, err := os.Stat(dest); err == nil {
		if fi.Size() >= o.cfg.MinPlausible {
			// Already downloaded in a previous run.
			o.log.Info("existing file found, skipping transfer",
				"video_id", v.VideoID, "path", dest, "size", fi.Size())
			return dest, nil
		}
		// Stale partial from an interrupted transfer.
		if err := os.Remove(dest); err != nil {
			return "", fmt.Errorf("remove stale partial: %w", err)
		}
	}
	if err := os.MkdirAll(o.cfg.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	// The service fetches and transcodes before responding, so poll its
	// status while we wait for headers. The poller stops on every exit
	// path once the request returns.
	pollCtx, stopPoll := context.WithCancel(ctx)
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		o.pollRemotePhase(pollCtx, v.VideoID)
	}()

	stream, err := o.client.Download(ctx, v.VideoID, quality)
	stopPoll()
	<-pollDone
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", err
	}
	defer func() { _ = stream.Body.Close() }()

	if err := o.transfer(ctx, v.VideoID, stream, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// pollRemotePhase polls the status endpoint while the download request is
// pending and maps the remote-side percentage into the first progress half.
func (o *Orchestrator) pollRemotePhase(ctx context.Context, videoID string) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := o.client.Status(ctx, videoID)
		if err != nil || st == nil {
			continue
		}
		switch st.State {
		case fetch.StateStarting, fetch.StateDownloading, fetch.StateMerging:
			o.reportProgress(ctx, videoID, progress.MapRemotePhase(st.Progress))
		}
	}
}

// transfer streams the response body to the destination file, mapping the
// byte fraction into the second progress half. The cancellation flag is
// checked before every chunk write; a cancelled or failed transfer leaves
// no partial file behind.
func (o *Orchestrator) transfer(ctx context.Context, videoID string, stream *fetch.Stream, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	discard := func() {
		_ = f.Close()
		_ = os.Remove(dest)
	}

	buf := make([]byte, transferChunkSize)
	var written int64
	for {
		if ctx.Err() != nil {
			discard()
			return ErrCancelled
		}

		n, rerr := stream.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				discard()
				return fmt.Errorf("write chunk: %w", werr)
			}
			written += int64(n)
			o.reportProgress(ctx, videoID, progress.MapTransfer(written, stream.ContentLength))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			discard()
			if ctx.Err() != nil {
				return ErrCancelled
			}
			return fmt.Errorf("read stream: %w", rerr)
		}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("close destination: %w", err)
	}
	if written == 0 {
		_ = os.Remove(dest)
		return ErrEmptyFile
	}
	return nil
}

// destPath computes the destination file path from the sanitized title.
func (o *Orchestrator) destPath(v *catalog.Video) string {
	return filepath.Join(o.cfg.DownloadDir, SanitizeTitle(v.Title, v.VideoID)+".mp4")
}
