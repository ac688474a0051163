package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")

	// second unsubscribe must not panic on double close
	assert.NotPanics(t, func() { n.Unsubscribe(ch) })
}

func TestNotifier_BroadcastCarriesTopic(t *testing.T) {
	n := New()
	ch1 := n.Subscribe()
	ch2 := n.Subscribe()
	defer n.Unsubscribe(ch1)
	defer n.Unsubscribe(ch2)

	n.Broadcast(TopicFeedback)

	for _, ch := range []chan Topic{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, TopicFeedback, got)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("listener did not receive broadcast")
		}
	}
}

func TestNotifier_BroadcastNonBlocking(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	for i := 0; i < cap(ch); i++ {
		ch <- TopicLoading
	}

	done := make(chan struct{})
	go func() {
		n.Broadcast(TopicBoard)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Broadcast blocked on full channel")
	}
}

func TestNotifier_NilSafe(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Broadcast(TopicBoard) })
}

func TestNotifier_ConcurrentAccess(t *testing.T) {
	n := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe()
			n.Broadcast(TopicActivity)
			n.Unsubscribe(ch)
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, n.Len())
}
