package run

import (
	"sync"
	"time"
)

const completedRunRetention = 30 * time.Second

// EventBroker manages per-run event channels. One channel is allocated when
// the run starts and a single watcher drains it; pollers use the store.
type EventBroker struct {
	mu     sync.RWMutex
	events map[string]chan Event
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{events: make(map[string]chan Event)}
}

// Allocate creates and registers a new event channel for a run.
func (b *EventBroker) Allocate(runID string, size int) chan Event {
	if size <= 0 {
		size = 1
	}
	ch := make(chan Event, size)
	b.mu.Lock()
	b.events[runID] = ch
	b.mu.Unlock()
	return ch
}

// Get returns the event channel for a run.
func (b *EventBroker) Get(runID string) (chan Event, bool) {
	b.mu.RLock()
	ch, ok := b.events[runID]
	b.mu.RUnlock()
	return ch, ok
}

// Publish delivers ev to the run's channel without blocking the publisher.
// When the buffer is full the oldest pending event is dropped; progress
// watchers only care about the latest state.
func (b *EventBroker) Publish(ev Event) {
	ch, ok := b.Get(ev.RunID)
	if !ok {
		return
	}
	for {
		select {
		case ch <- ev:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Close closes the run's channel so watchers terminate, then removes it
// after a retention period so late subscribers see a closed stream instead
// of a missing run. The publisher must not Publish after Close.
func (b *EventBroker) Close(runID string) {
	b.mu.Lock()
	ch, ok := b.events[runID]
	b.mu.Unlock()
	if ok {
		close(ch)
	}
	time.AfterFunc(completedRunRetention, func() {
		b.mu.Lock()
		delete(b.events, runID)
		b.mu.Unlock()
	})
}
