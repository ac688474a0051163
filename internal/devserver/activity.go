package devserver

import (
	"sync"
	"time"

	"github.com/leapstack-labs/haulboard/internal/live"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

const activitySize = 20

// Entry is one line of the activity log.
type Entry struct {
	At       time.Time
	Severity string
	Text     string
}

// Activity keeps recent server-side events and fans them out to the page's SSE
// stream and the websocket feed.
type Activity struct {
	mu      sync.Mutex
	entries []Entry // newest first

	notify *notifier.Notifier
	hub    *live.Hub
}

// NewActivity creates an empty log.
func NewActivity(notify *notifier.Notifier, hub *live.Hub) *Activity {
	return &Activity{notify: notify, hub: hub}
}

// Record appends an event and publishes it.
func (a *Activity) Record(severity, text string) {
	a.mu.Lock()
	a.entries = append([]Entry{{At: time.Now(), Severity: severity, Text: text}}, a.entries...)
	if len(a.entries) > activitySize {
		a.entries = a.entries[:activitySize]
	}
	a.mu.Unlock()

	a.notify.Broadcast(notifier.TopicActivity)
	if a.hub != nil {
		a.hub.Broadcast(live.Event{Type: "activity", Severity: severity, Message: text})
	}
}

// Entries returns the log, newest first.
func (a *Activity) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Entry(nil), a.entries...)
}
