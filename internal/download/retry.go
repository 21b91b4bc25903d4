package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/fetch"
)

// defaultBlockWait is used when the remote signals a temporary block
// without telling us how long to wait.
const defaultBlockWait = 30 * time.Second

// DownloadWithRetry runs download attempts for a video until one succeeds
// or the retry budget is spent. Failed attempts back off with doubling
// delays clamped at MaxBackoff. A rate-limited remote does not consume a
// retry; those waits draw from a separate budget the size of the
// queue-wait cap.
func (o *Orchestrator) DownloadWithRetry(ctx context.Context, v *catalog.Video, quality fetch.Quality) (string, error) {
	ctx, cleanup := o.begin(ctx, v, quality)
	defer cleanup()

	blockedBudget := o.cfg.QueueWaitCap
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			o.finalize(ctx, v, "", ErrCancelled)
			return "", ErrCancelled
		}

		// The remote advertises blocks through its status endpoint, as a
		// blocked state in the body or a 429 on the endpoint itself; wait
		// those out before spending an attempt on a doomed request.
		for blockedBudget > 0 {
			st, serr := o.client.Status(ctx, v.VideoID)
			wait, blocked := statusBlockWait(st, serr)
			if !blocked {
				break
			}
			if wait <= 0 {
				wait = defaultBlockWait
			}
			if wait > blockedBudget {
				wait = blockedBudget
			}
			blockedBudget -= wait
			o.log.Info("remote reports block, waiting before attempt",
				"video_id", v.VideoID, "wait", wait, "budget_left", blockedBudget)
			if serr := sleepCtx(ctx, wait); serr != nil {
				o.finalize(ctx, v, "", serr)
				return "", serr
			}
		}

		path, err := o.downloadOnce(ctx, v, quality)
		if err == nil {
			o.finalize(ctx, v, path, nil)
			return path, nil
		}
		if errors.Is(err, ErrPolicyDenied) || errors.Is(err, ErrCancelled) {
			o.finalize(ctx, v, "", err)
			return "", err
		}

		// A busy remote is not a failed attempt: wait out the block and
		// run the same attempt again, bounded by the remaining budget.
		if wait, blocked := blockedDelay(err); blocked && blockedBudget > 0 {
			if wait > blockedBudget {
				wait = blockedBudget
			}
			blockedBudget -= wait
			o.log.Info("remote busy, waiting",
				"video_id", v.VideoID, "wait", wait, "budget_left", blockedBudget)
			if serr := sleepCtx(ctx, wait); serr != nil {
				o.finalize(ctx, v, "", serr)
				return "", serr
			}
			attempt--
			continue
		}

		// If the remote is still working on the video, ride its queue
		// instead of burning retries on immediate re-requests.
		if st, serr := o.client.Status(ctx, v.VideoID); serr == nil && st != nil && st.InFlight() {
			path, qerr := o.waitForQueue(ctx, v, quality)
			if qerr == nil {
				o.finalize(ctx, v, path, nil)
				return path, nil
			}
			if errors.Is(qerr, ErrCancelled) {
				o.finalize(ctx, v, "", qerr)
				return "", qerr
			}
			err = qerr
		}

		lastErr = err
		if attempt == o.cfg.MaxRetries {
			break
		}
		delay := backoffDelay(attempt-1, o.cfg.InitialBackoff, o.cfg.MaxBackoff)
		o.log.Warn("attempt failed, backing off",
			"video_id", v.VideoID, "attempt", attempt, "delay", delay, "error", err)
		if serr := sleepCtx(ctx, delay); serr != nil {
			o.finalize(ctx, v, "", serr)
			return "", serr
		}
	}

	finalErr := fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
	o.finalize(ctx, v, "", finalErr)
	return "", finalErr
}

// blockedDelay reports whether the error means the remote is rate
// limiting us, and how long to wait before asking again. A 503 cooldown
// is not a rate limit: it fails the attempt and goes through the normal
// retry accounting.
func blockedDelay(err error) (time.Duration, bool) {
	if rl, ok := fetch.AsRateLimited(err); ok {
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = defaultBlockWait
		}
		return wait, true
	}
	return 0, false
}

// statusBlockWait reports whether a status query says the remote is
// blocking us, either as a blocked state in the response or as a rate
// limit on the status endpoint itself.
func statusBlockWait(st *fetch.RemoteStatus, err error) (time.Duration, bool) {
	if rl, ok := fetch.AsRateLimited(err); ok {
		return rl.RetryAfter, true
	}
	if err == nil && st != nil && st.State == fetch.StateBlocked {
		return st.RetryAfter, true
	}
	return 0, false
}

// backoffDelay returns the delay after the n-th failed attempt (0-based):
// the initial delay doubled n times, clamped at max.
func backoffDelay(n int, initial, max time.Duration) time.Duration {
	d := initial
	for i := 0; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-t.C:
		return nil
	}
}
