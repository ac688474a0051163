// Package notifier fans out change pings from dashboard state to its views.
package notifier

import "sync"

// Topic names the piece of state that changed.
type Topic string

// Topics published by the dashboard components.
const (
	TopicFeedback Topic = "feedback"
	TopicLoading  Topic = "loading"
	TopicBoard    Topic = "board"
	TopicActivity Topic = "activity"
)

// Notifier broadcasts topic pings to all subscribed listeners. A ping carries no
// payload: listeners re-read the component that published it.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Topic]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Topic]struct{}),
	}
}

// Subscribe returns a channel that receives a ping per change.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Topic {
	ch := make(chan Topic, 8)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it. Unknown or already
// removed channels are ignored.
func (n *Notifier) Unsubscribe(ch chan Topic) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast sends topic to all listeners without blocking. A listener whose
// buffer is full misses the ping and catches up on the next one.
func (n *Notifier) Broadcast(topic Topic) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- topic:
		default:
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
