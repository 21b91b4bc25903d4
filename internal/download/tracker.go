package download

import (
	"sync"

	"github.com/offtube/offtube/internal/progress"
)

// trackerRegistry holds one progress tracker per in-flight video.
type trackerRegistry struct {
	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

func newTrackerRegistry() *trackerRegistry {
	return &trackerRegistry{trackers: make(map[string]*progress.Tracker)}
}

func (r *trackerRegistry) start(videoID string) *progress.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := progress.NewTracker(videoID, 16)
	r.trackers[videoID] = t
	return t
}

func (r *trackerRegistry) get(videoID string) *progress.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackers[videoID]
}

// finish delivers the terminal value and removes the tracker.
func (r *trackerRegistry) finish(videoID string, value float64) {
	r.mu.Lock()
	t := r.trackers[videoID]
	delete(r.trackers, videoID)
	r.mu.Unlock()
	if t != nil {
		t.Finish(value)
	}
}
