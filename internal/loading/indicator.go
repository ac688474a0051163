// Package loading implements the dashboard's shared loading indicator.
//
// The indicator is reference counted: every in-flight operation takes a Hold and
// the indicator stays active until the last outstanding Hold is released. Each
// Hold releases at most once, however many times Release is called.
package loading

import (
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/haulboard/internal/notifier"
)

// DefaultMessage is shown when a hold was acquired without a message.
const DefaultMessage = "Loading..."

// Indicator is the process-wide loading state.
type Indicator struct {
	mu     sync.Mutex
	holds  []*Hold
	shown  int
	hidden int
	notify *notifier.Notifier
}

// Hold is one outstanding claim on the indicator.
type Hold struct {
	ID      string
	Message string

	ind  *Indicator
	once sync.Once
}

// New creates an inactive indicator. notify may be nil.
func New(notify *notifier.Notifier) *Indicator {
	return &Indicator{notify: notify}
}

// Acquire activates the indicator with msg and returns the hold that must be
// released when the operation settles.
func (i *Indicator) Acquire(msg string) *Hold {
	if msg == "" {
		msg = DefaultMessage
	}
	h := &Hold{ID: uuid.NewString(), Message: msg, ind: i}

	i.mu.Lock()
	i.holds = append(i.holds, h)
	if len(i.holds) == 1 {
		i.shown++
	}
	i.mu.Unlock()

	i.notify.Broadcast(notifier.TopicLoading)
	return h
}

// Release gives the hold back. Only the first call has an effect.
func (h *Hold) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.ind.release(h)
	})
}

func (i *Indicator) release(h *Hold) {
	i.mu.Lock()
	for idx, held := range i.holds {
		if held == h {
			i.holds = append(i.holds[:idx], i.holds[idx+1:]...)
			break
		}
	}
	if len(i.holds) == 0 {
		i.hidden++
	}
	i.mu.Unlock()

	i.notify.Broadcast(notifier.TopicLoading)
}

// Active reports whether any hold is outstanding.
func (i *Indicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.holds) > 0
}

// Message returns the message of the most recently acquired outstanding hold,
// or an empty string when inactive.
func (i *Indicator) Message() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.holds) == 0 {
		return ""
	}
	return i.holds[len(i.holds)-1].Message
}

// Outstanding returns the number of unreleased holds.
func (i *Indicator) Outstanding() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.holds)
}

// Shown counts inactive to active transitions.
func (i *Indicator) Shown() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shown
}

// Hidden counts active to inactive transitions.
func (i *Indicator) Hidden() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hidden
}
