package sync

import (
	"context"

	"github.com/offtube/offtube/internal/download"
)

// BatchTask is a handle to an auto-download batch running in the
// background. Dropping the handle detaches the batch; its errors are
// logged but never reach the sync caller.
type BatchTask struct {
	done   chan struct{}
	result *download.BatchResult
	err    error
}

func (e *Engine) startBatch(ctx context.Context) *BatchTask {
	t := &BatchTask{done: make(chan struct{})}
	// Detached from the sync caller's deadline; stopping the batch goes
	// through the orchestrator's cancellation instead.
	bctx := context.WithoutCancel(ctx)
	go func() {
		defer close(t.done)
		t.result, t.err = e.orch.DownloadPending(bctx)
		if t.err != nil {
			e.log.Error("auto-download batch failed", "error", t.err)
		}
	}()
	return t
}

// Wait blocks until the batch finishes or ctx is cancelled. Cancelling
// the wait does not cancel the batch.
func (t *BatchTask) Wait(ctx context.Context) (*download.BatchResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.result, t.err
	}
}

// Done exposes completion for select loops.
func (t *BatchTask) Done() <-chan struct{} { return t.done }
