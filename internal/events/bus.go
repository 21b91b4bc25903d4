package events

import (
	"context"
	"log/slog"
	"sync"
)

// Bus fans events out to subscribers in-process. Delivery never blocks:
// a subscriber whose channel is full loses the event, and a nil EventLog
// disables persistence.
type Bus struct {
	mu     sync.RWMutex
	byType map[string][]chan Event
	all    []chan Event
	log    *EventLog
	logger *slog.Logger
	closed bool
}

func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		byType: make(map[string][]chan Event),
		log:    log,
		logger: logger,
	}
}

// Publish persists e and delivers it to every matching subscriber.
// Publishing on a closed bus is a no-op. A persistence failure is logged
// but does not stop delivery.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	typed := append([]chan Event(nil), b.byType[e.EventType()]...)
	all := append([]chan Event(nil), b.all...)
	b.mu.RUnlock()

	if b.log != nil {
		if _, err := b.log.Append(e); err != nil {
			b.logger.Error("event not persisted", "type", e.EventType(), "error", err)
		}
	}

	for _, ch := range typed {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber full, event dropped",
				"type", e.EventType(), "video_id", e.VideoID())
		}
	}
	for _, ch := range all {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber full, event dropped", "type", e.EventType())
		}
	}
	return nil
}

// Subscribe returns a channel receiving events of one type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, bufferSize)
	b.byType[eventType] = append(b.byType[eventType], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// SubscribeVideo returns a channel receiving events for one video. It
// filters a SubscribeAll channel, so the feed ends when the bus closes.
func (b *Bus) SubscribeVideo(videoID string, bufferSize int) <-chan Event {
	src := b.SubscribeAll(bufferSize * 10)
	out := make(chan Event, bufferSize)
	go func() {
		defer close(out)
		for e := range src {
			if e.VideoID() != videoID {
				continue
			}
			select {
			case out <- e:
			default:
			}
		}
	}()
	return out
}

// Unsubscribe closes and removes a channel returned by Subscribe or
// SubscribeAll.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.byType {
		for i, sub := range subs {
			if sub == ch {
				b.byType[eventType] = append(subs[:i], subs[i+1:]...)
				close(sub)
				return
			}
		}
	}
	for i, sub := range b.all {
		if sub == ch {
			b.all = append(b.all[:i], b.all[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes every subscriber channel. Safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.byType {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.byType = nil
	for _, ch := range b.all {
		close(ch)
	}
	b.all = nil
	return nil
}
