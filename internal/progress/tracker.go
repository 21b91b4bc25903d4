package progress

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// emitInterval is the minimum spacing between forwarded progress events
// for one video. The first and last events of a transfer bypass it.
const emitInterval = 100 * time.Millisecond

// Event is one forwarded progress value for a video.
type Event struct {
	VideoID  string
	Value    float64
	Terminal bool
}

// Tracker throttles and fans out progress for a single video. Observers
// read from a bounded channel; intermediate events may be dropped when the
// observer lags, terminal events never are.
type Tracker struct {
	videoID string
	limiter *rate.Limiter

	mu      sync.Mutex
	out     chan Event
	started bool
	done    bool
	last    float64
}

// NewTracker creates a tracker with the given observer buffer size.
func NewTracker(videoID string, buffer int) *Tracker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Tracker{
		videoID: videoID,
		limiter: rate.NewLimiter(rate.Every(emitInterval), 1),
		out:     make(chan Event, buffer),
	}
}

// Events returns the observer channel. It is closed after the terminal
// event has been delivered.
func (t *Tracker) Events() <-chan Event {
	return t.out
}

// Last returns the most recently forwarded value.
func (t *Tracker) Last() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Publish offers a progress value. It is forwarded only if the tracker's
// rate limit allows it, except the very first event which always passes.
// Returns true if the event was forwarded.
func (t *Tracker) Publish(value float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return false
	}
	first := !t.started
	if !first && !t.limiter.Allow() {
		return false
	}
	t.started = true
	t.last = value
	t.send(Event{VideoID: t.videoID, Value: value})
	return true
}

// Finish forwards the terminal value (1.0 on success, 0.0 on
// failure/cancel), bypassing the rate limit, and closes the observer
// channel. It is safe to call more than once.
func (t *Tracker) Finish(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	t.done = true
	t.started = true
	t.last = value
	t.send(Event{VideoID: t.videoID, Value: value, Terminal: true})
	close(t.out)
}

// send delivers without blocking; when the buffer is full the oldest
// event is evicted so terminal events cannot be lost.
func (t *Tracker) send(e Event) {
	for {
		select {
		case t.out <- e:
			return
		default:
			select {
			case <-t.out:
			default:
			}
		}
	}
}
