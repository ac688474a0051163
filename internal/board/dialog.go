package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DialogKind distinguishes placeholder dialogs from data dialogs.
type DialogKind int

// Dialog kinds.
const (
	DialogPlaceholder DialogKind = iota
	DialogReport
	DialogRoute
	DialogInvoice
)

// Dialog is an open modal.
type Dialog struct {
	ID       string
	Kind     DialogKind
	Title    string
	Body     string
	OpenedAt time.Time
}

const placeholderCacheSize = 16

// dialogs keeps the open stack (top last) and a registry of placeholder
// dialogs so reopening one reuses it instead of stacking a duplicate.
type dialogs struct {
	stack        []*Dialog
	placeholders *lru.Cache[string, *Dialog]
}

func newDialogs() *dialogs {
	cache, err := lru.New[string, *Dialog](placeholderCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &dialogs{placeholders: cache}
}

func (d *dialogs) remove(id string) {
	for i, dl := range d.stack {
		if dl.ID == id {
			d.stack = append(d.stack[:i], d.stack[i+1:]...)
			return
		}
	}
}

func (d *dialogs) push(dl *Dialog) {
	d.remove(dl.ID)
	d.stack = append(d.stack, dl)
}

// PlaceholderBody is the body of dialogs for features the backend does not
// offer yet.
func PlaceholderBody(title string) string {
	return fmt.Sprintf("%s feature coming soon!", title)
}

// OpenPlaceholder opens (or brings to front) the placeholder dialog titled title.
func (b *Board) OpenPlaceholder(title string) Dialog {
	b.mu.Lock()
	dl, ok := b.dialogs.placeholders.Get(title)
	if !ok {
		dl = &Dialog{
			ID:    uuid.NewString(),
			Kind:  DialogPlaceholder,
			Title: title,
			Body:  PlaceholderBody(title),
		}
		b.dialogs.placeholders.Add(title, dl)
	}
	dl.OpenedAt = time.Now()
	b.dialogs.push(dl)
	out := *dl
	b.mu.Unlock()

	b.changed()
	return out
}

// OpenDialog opens a data dialog, replacing any open dialog with the same title.
func (b *Board) OpenDialog(kind DialogKind, title, body string) Dialog {
	dl := &Dialog{
		ID:       uuid.NewString(),
		Kind:     kind,
		Title:    title,
		Body:     body,
		OpenedAt: time.Now(),
	}

	b.mu.Lock()
	for i := 0; i < len(b.dialogs.stack); {
		if b.dialogs.stack[i].Title == title {
			b.dialogs.stack = append(b.dialogs.stack[:i], b.dialogs.stack[i+1:]...)
			continue
		}
		i++
	}
	b.dialogs.push(dl)
	b.mu.Unlock()

	b.changed()
	return *dl
}

// CloseTop closes the front dialog. It reports whether one was open.
func (b *Board) CloseTop() bool {
	b.mu.Lock()
	n := len(b.dialogs.stack)
	if n > 0 {
		b.dialogs.stack = b.dialogs.stack[:n-1]
	}
	b.mu.Unlock()

	if n > 0 {
		b.changed()
	}
	return n > 0
}

// TopDialog returns the front dialog.
func (b *Board) TopDialog() (Dialog, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.dialogs.stack) == 0 {
		return Dialog{}, false
	}
	return *b.dialogs.stack[len(b.dialogs.stack)-1], true
}

// Dialogs returns the open dialogs, front last.
func (b *Board) Dialogs() []Dialog {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Dialog, len(b.dialogs.stack))
	for i, dl := range b.dialogs.stack {
		out[i] = *dl
	}
	return out
}

// DialogsOfKind counts open dialogs of kind.
func (b *Board) DialogsOfKind(kind DialogKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, dl := range b.dialogs.stack {
		if dl.Kind == kind {
			n++
		}
	}
	return n
}
