package loading

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/notifier"
)

func TestIndicator_AcquireRelease(t *testing.T) {
	ind := New(nil)
	assert.False(t, ind.Active())
	assert.Empty(t, ind.Message())

	h := ind.Acquire("Optimizing route...")
	assert.True(t, ind.Active())
	assert.Equal(t, "Optimizing route...", ind.Message())
	assert.Equal(t, 1, ind.Shown())
	assert.Equal(t, 0, ind.Hidden())

	h.Release()
	assert.False(t, ind.Active())
	assert.Equal(t, 1, ind.Hidden())
}

func TestIndicator_DefaultMessage(t *testing.T) {
	ind := New(nil)
	h := ind.Acquire("")
	defer h.Release()
	assert.Equal(t, DefaultMessage, ind.Message())
}

func TestHold_ReleaseIsIdempotent(t *testing.T) {
	ind := New(nil)
	a := ind.Acquire("a")
	b := ind.Acquire("b")

	a.Release()
	a.Release()
	a.Release()

	assert.True(t, ind.Active(), "b is still outstanding")
	assert.Equal(t, 1, ind.Outstanding())
	assert.Equal(t, 0, ind.Hidden())

	b.Release()
	assert.False(t, ind.Active())
	assert.Equal(t, 1, ind.Hidden())
}

func TestIndicator_RefCounting(t *testing.T) {
	ind := New(nil)
	first := ind.Acquire("Generating invoice...")
	second := ind.Acquire("Optimizing route...")

	assert.Equal(t, "Optimizing route...", ind.Message(), "latest hold wins the message")
	assert.Equal(t, 1, ind.Shown(), "overlapping holds are one visible span")

	second.Release()
	assert.Equal(t, "Generating invoice...", ind.Message())

	first.Release()
	assert.False(t, ind.Active())
	assert.Equal(t, 1, ind.Shown())
	assert.Equal(t, 1, ind.Hidden())
}

func TestHold_NilRelease(t *testing.T) {
	var h *Hold
	assert.NotPanics(t, h.Release)
}

func TestIndicator_ConcurrentHolds(t *testing.T) {
	ind := New(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := ind.Acquire("working")
			h.Release()
			h.Release()
		}()
	}
	wg.Wait()

	assert.False(t, ind.Active())
	assert.Equal(t, ind.Shown(), ind.Hidden())
}

func TestIndicator_Broadcasts(t *testing.T) {
	n := notifier.New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	ind := New(n)
	h := ind.Acquire("x")
	h.Release()

	for i := 0; i < 2; i++ {
		select {
		case topic := <-ch:
			require.Equal(t, notifier.TopicLoading, topic)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("expected a loading ping")
		}
	}
}
