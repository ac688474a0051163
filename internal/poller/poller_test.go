package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/board"
	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/testutil"
)

type fakeLister struct {
	mu    sync.Mutex
	lists [][]backend.Customer
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeLister) ListCustomers(ctx context.Context) ([]backend.Customer, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	list := f.lists[0]
	if len(f.lists) > 1 {
		f.lists = f.lists[1:]
	}
	return list, nil
}

func customers(n int) []backend.Customer {
	out := make([]backend.Customer, n)
	for i := range out {
		out[i] = backend.Customer{ID: int64(i + 1), Name: "c", IsActive: true}
	}
	return out
}

func newTestPoller(t *testing.T, l Lister, interval time.Duration) (*Poller, *board.Board, *feedback.Center) {
	t.Helper()
	b := board.New(nil)
	fc := feedback.New(feedback.Config{TTL: time.Minute})
	t.Cleanup(fc.Close)
	p := New(Config{Lister: l, Board: b, Feedback: fc, Interval: interval, Logger: testutil.NewTestLogger(t)})
	return p, b, fc
}

func TestPoller_RefreshPostsOnCountChange(t *testing.T) {
	l := &fakeLister{lists: [][]backend.Customer{customers(2), customers(2), customers(3)}}
	p, b, fc := newTestPoller(t, l, time.Hour)
	ctx := context.Background()

	n, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, b.Customers(), 2)
	assert.Equal(t, 0, fc.Count(), "first load is silent")

	_, err = p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fc.Count(), "unchanged count is silent")

	_, err = p.Refresh(ctx)
	require.NoError(t, err)
	visible := fc.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, feedback.Info, visible[0].Severity)
	assert.Equal(t, "Customer list updated: 3 customers (was 2)", visible[0].Text)
}

func TestPoller_RefreshError(t *testing.T) {
	l := &fakeLister{err: errors.New("connection refused")}
	p, _, fc := newTestPoller(t, l, time.Hour)

	_, err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh customers")
	assert.Equal(t, 0, fc.Count())
}

func TestPoller_ConcurrentRefreshesCoalesce(t *testing.T) {
	l := &fakeLister{lists: [][]backend.Customer{customers(1)}, gate: make(chan struct{})}
	p, _, _ := newTestPoller(t, l, time.Hour)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Refresh(context.Background())
		}()
	}
	assert.Eventually(t, func() bool { return l.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(l.gate)
	wg.Wait()

	assert.Less(t, l.calls.Load(), int32(5))
}

func TestPoller_RunTicks(t *testing.T) {
	l := &fakeLister{lists: [][]backend.Customer{customers(1)}}
	p, _, _ := newTestPoller(t, l, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, DefaultInterval, p.Interval())
}
