package graph

import (
	"sync"
	"time"

	"github.com/TheAmanM/next-client/internal/types"
)

// Notifier fans graph events out to subscriber channels. Sends never block:
// a subscriber whose buffer is full misses the event.
type Notifier struct {
	mutex    sync.Mutex
	watchers []chan types.GraphEvent
	buffer   int
}

// NewNotifier creates a notifier whose channels hold buffer events.
func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 100
	}
	return &Notifier{
		watchers: make([]chan types.GraphEvent, 0),
		buffer:   buffer,
	}
}

// Watch returns a channel that receives graph events
func (n *Notifier) Watch() <-chan types.GraphEvent {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	ch := make(chan types.GraphEvent, n.buffer)
	n.watchers = append(n.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (n *Notifier) UnWatch(ch <-chan types.GraphEvent) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for i, watcher := range n.watchers {
		if watcher == ch {
			close(watcher)
			n.watchers = append(n.watchers[:i], n.watchers[i+1:]...)
			break
		}
	}
}

// Publish sends event to every watcher, stamping the time if unset.
// It returns how many watchers dropped the event.
func (n *Notifier) Publish(event types.GraphEvent) int {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	dropped := 0
	for _, watcher := range n.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
			dropped++
		}
	}
	return dropped
}

// Close closes every watcher channel.
func (n *Notifier) Close() {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for _, watcher := range n.watchers {
		close(watcher)
	}
	n.watchers = nil
}

// Count returns the number of watchers
func (n *Notifier) Count() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return len(n.watchers)
}
