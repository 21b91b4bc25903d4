package download

import (
	"context"
	"sync"
)

// cancelRegistry tracks one cancel function per in-flight video. The
// context it derives is passed into every suspension point of the
// download flow, so cancellation is observed at the next poll tick,
// chunk write, or backoff sleep.
type cancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

// register derives a cancellable context for a video. Registering a video
// that is already tracked cancels the previous operation first.
func (r *cancelRegistry) register(ctx context.Context, videoID string) (context.Context, context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.cancels[videoID]; ok {
		prev()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancels[videoID] = cancel
	return ctx, cancel
}

// unregister drops the video's cancel function once its operation ends.
func (r *cancelRegistry) unregister(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, videoID)
}

func (r *cancelRegistry) cancel(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancels[videoID]; ok {
		cancel()
	}
}

func (r *cancelRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cancel := range r.cancels {
		cancel()
	}
}
