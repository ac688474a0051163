package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/testutil"
)

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ws://localhost:5000/ws", want: "ws://localhost:5000/ws"},
		{in: "http://localhost:5000/ws", want: "ws://localhost:5000/ws"},
		{in: "https://example.com/feed", want: "wss://example.com/feed"},
		{in: "ftp://example.com", wantErr: true},
		{in: "ws:///nohost", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WebsocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_PostsEvents(t *testing.T) {
	hub := NewHub(testutil.NewTestLogger(t))
	hub.SetPingInterval(10 * time.Millisecond)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	fc := feedback.New(feedback.Config{TTL: time.Minute})
	defer fc.Close()

	c, err := New(Config{URL: srv.URL, Feedback: fc, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.URL(), "ws://"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Broadcast(Event{Type: "heartbeat"})
	hub.Broadcast(Event{Type: "activity", Severity: "warning", Message: "Truck 4 delayed"})
	hub.Broadcast(Event{Type: "activity", Message: "Route 2 completed"})

	require.Eventually(t, func() bool { return c.Received() == 2 }, 2*time.Second, 5*time.Millisecond)

	visible := fc.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, feedback.Warning, visible[0].Severity)
	assert.Equal(t, "Truck 4 delayed", visible[0].Text)
	assert.Equal(t, feedback.Info, visible[1].Severity)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClient_Reconnects(t *testing.T) {
	srv := httptest.NewServer(NewHub(nil))
	addr := srv.URL
	srv.Close()

	c, err := New(Config{URL: addr, MinBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Eventually(t, func() bool { return c.Dials() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(NewHub(nil))
	defer srv.Close()

	assert.NoError(t, Probe(context.Background(), srv.URL))

	dead := httptest.NewServer(NewHub(nil))
	deadURL := dead.URL
	dead.Close()
	assert.Error(t, Probe(context.Background(), deadURL))
}
