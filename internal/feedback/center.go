// Package feedback holds the short-lived messages that end every dispatched action.
package feedback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/haulboard/internal/notifier"
)

// Severity of a message.
type Severity int

// Severities, ordered by weight.
const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Icon is the single-glyph marker used by terminal views.
func (s Severity) Icon() string {
	switch s {
	case Success:
		return "✓"
	case Warning:
		return "⚠"
	case Error:
		return "✗"
	default:
		return "ℹ"
	}
}

// ParseSeverity maps a severity name to a Severity, defaulting to Info.
func ParseSeverity(s string) Severity {
	switch s {
	case "success":
		return Success
	case "warning", "warn":
		return Warning
	case "error", "danger":
		return Error
	default:
		return Info
	}
}

// Reason records why a message left the visible set.
type Reason string

// Removal reasons.
const (
	ReasonExpired   Reason = "expired"
	ReasonDismissed Reason = "dismissed"
	ReasonEvicted   Reason = "evicted"
)

// Message is one feedback entry.
type Message struct {
	ID        string
	Severity  Severity
	Text      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Removed is a history entry.
type Removed struct {
	Message
	Reason    Reason
	RemovedAt time.Time
}

const (
	// DefaultTTL is how long a message stays visible without dismissal.
	DefaultTTL = 5 * time.Second
	// DefaultMaxVisible bounds the visible set.
	DefaultMaxVisible = 5

	historySize = 50
)

// Config configures a Center.
type Config struct {
	TTL        time.Duration
	MaxVisible int
	Notifier   *notifier.Notifier
	Logger     *slog.Logger
}

// Center owns the visible feedback messages.
type Center struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	visible []Message // oldest first
	timers  map[string]*time.Timer
	history []Removed // newest first
	closed  bool

	notify *notifier.Notifier
	logger *slog.Logger
}

// New creates a Center.
func New(cfg Config) *Center {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxVisible <= 0 {
		cfg.MaxVisible = DefaultMaxVisible
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Center{
		ttl:    cfg.TTL,
		max:    cfg.MaxVisible,
		timers: make(map[string]*time.Timer),
		notify: cfg.Notifier,
		logger: cfg.Logger,
	}
}

// Post adds a message and schedules its removal. After Close it returns the
// zero Message.
func (c *Center) Post(sev Severity, text string) Message {
	now := time.Now()
	msg := Message{
		ID:        uuid.NewString(),
		Severity:  sev,
		Text:      text,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Message{}
	}
	c.visible = append(c.visible, msg)
	c.timers[msg.ID] = time.AfterFunc(c.ttl, func() {
		c.remove(msg.ID, ReasonExpired)
	})
	c.evictLocked(now)
	c.mu.Unlock()

	c.logger.Debug("feedback posted", slog.String("severity", sev.String()), slog.String("text", text))
	c.notify.Broadcast(notifier.TopicFeedback)
	return msg
}

// Success posts a success message.
func (c *Center) Success(text string) Message { return c.Post(Success, text) }

// Error posts an error message.
func (c *Center) Error(text string) Message { return c.Post(Error, text) }

// Warning posts a warning message.
func (c *Center) Warning(text string) Message { return c.Post(Warning, text) }

// Info posts an info message.
func (c *Center) Info(text string) Message { return c.Post(Info, text) }

// Dismiss removes a visible message. It reports whether the message was visible.
func (c *Center) Dismiss(id string) bool {
	return c.remove(id, ReasonDismissed)
}

// DismissLatest removes the newest visible message, if any.
func (c *Center) DismissLatest() bool {
	c.mu.Lock()
	if len(c.visible) == 0 {
		c.mu.Unlock()
		return false
	}
	id := c.visible[len(c.visible)-1].ID
	c.mu.Unlock()
	return c.remove(id, ReasonDismissed)
}

func (c *Center) remove(id string, reason Reason) bool {
	c.mu.Lock()
	removed := c.removeLocked(id, reason, time.Now())
	c.mu.Unlock()

	if removed {
		c.notify.Broadcast(notifier.TopicFeedback)
	}
	return removed
}

func (c *Center) removeLocked(id string, reason Reason, now time.Time) bool {
	for i, m := range c.visible {
		if m.ID != id {
			continue
		}
		c.visible = append(c.visible[:i], c.visible[i+1:]...)
		if t, ok := c.timers[id]; ok {
			t.Stop()
			delete(c.timers, id)
		}
		c.history = append([]Removed{{Message: m, Reason: reason, RemovedAt: now}}, c.history...)
		if len(c.history) > historySize {
			c.history = c.history[:historySize]
		}
		return true
	}
	return false
}

// evictLocked trims the visible set to max, dropping the oldest non-error
// message first and falling back to the oldest error. The newest message is
// never a victim.
func (c *Center) evictLocked(now time.Time) {
	for len(c.visible) > c.max {
		victim := c.visible[0].ID
		for _, m := range c.visible[:len(c.visible)-1] {
			if m.Severity != Error {
				victim = m.ID
				break
			}
		}
		c.removeLocked(victim, ReasonEvicted, now)
	}
}

// Visible returns the visible messages, oldest first.
func (c *Center) Visible() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.visible))
	copy(out, c.visible)
	return out
}

// Count returns the number of visible messages.
func (c *Center) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.visible)
}

// History returns removed messages, newest first.
func (c *Center) History() []Removed {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Removed, len(c.history))
	copy(out, c.history)
	return out
}

// TTL returns the display duration.
func (c *Center) TTL() time.Duration { return c.ttl }

// Close stops pending expiry timers. Posts after Close are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
