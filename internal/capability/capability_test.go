package capability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

func TestProber_Probe(t *testing.T) {
	tests := []struct {
		name         string
		lookErr      error
		liveURL      string
		dialErr      error
		wantNotify   bool
		wantSocket   bool
		socketDetail string
	}{
		{
			name:         "nothing available",
			lookErr:      errors.New("not found"),
			socketDetail: "live.url not configured",
		},
		{
			name:         "notifier and socket",
			liveURL:      "ws://localhost:5000/ws",
			wantNotify:   true,
			wantSocket:   true,
			socketDetail: "ws://localhost:5000/ws",
		},
		{
			name:         "socket unreachable",
			liveURL:      "ws://localhost:1/ws",
			dialErr:      errors.New("connection refused"),
			wantNotify:   true,
			socketDetail: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialed := false
			p := NewProber(tt.liveURL, nil)
			p.LookPath = func(string) (string, error) {
				if tt.lookErr != nil {
					return "", tt.lookErr
				}
				return "/usr/bin/notify-send", nil
			}
			p.DialLive = func(context.Context, string) error {
				dialed = true
				return tt.dialErr
			}

			rep := p.Probe(context.Background())

			require.Len(t, rep.Results, 3)
			assert.Equal(t, tt.wantNotify, rep.Has(Notifications))
			assert.False(t, rep.Has(Geolocation))
			assert.Equal(t, tt.wantSocket, rep.Has(Socket))
			assert.Equal(t, tt.liveURL != "", dialed)
			assert.Equal(t, tt.socketDetail, rep.Results[2].Detail)
		})
	}
}

func TestDesktop_Notify(t *testing.T) {
	var gotPath string
	var gotArgs []string
	d := Desktop{Path: "/usr/bin/notify-send", Run: func(_ context.Context, path string, args ...string) error {
		gotPath, gotArgs = path, args
		return nil
	}}

	require.NoError(t, d.Notify(context.Background(), feedback.Message{Severity: feedback.Error, Text: "Network error occurred"}))
	assert.Equal(t, "/usr/bin/notify-send", gotPath)
	assert.Contains(t, gotArgs, "--urgency=critical")
	assert.Equal(t, "✗ Network error occurred", gotArgs[len(gotArgs)-1])
}

func TestDesktop_ForwardOnlyErrors(t *testing.T) {
	n := notifier.New()
	center := feedback.New(feedback.Config{TTL: time.Minute, Notifier: n})
	defer center.Close()

	var mu sync.Mutex
	var sent []string
	d := Desktop{Path: "notify-send", Run: func(_ context.Context, _ string, args ...string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, args[len(args)-1])
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	updates := n.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Forward(ctx, center, updates, nil)
	}()

	center.Success("Route optimized successfully")
	center.Error("Failed to generate invoice")
	center.Info("Customer list updated: 4 customers (was 3)")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 1
	}, time.Second, 5*time.Millisecond)

	// further pings must not resend the same message
	n.Broadcast(notifier.TopicFeedback)
	time.Sleep(20 * time.Millisecond)

	cancel()
	<-done
	n.Unsubscribe(updates)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"✗ Failed to generate invoice"}, sent)
}

func TestDesktop_ForwardVisiblePrunesSeen(t *testing.T) {
	var sent []string
	d := Desktop{Path: "notify-send", Run: func(_ context.Context, _ string, args ...string) error {
		sent = append(sent, args[len(args)-1])
		return nil
	}}
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	e1 := feedback.Message{ID: "e1", Severity: feedback.Error, Text: "Failed to generate invoice"}
	e2 := feedback.Message{ID: "e2", Severity: feedback.Error, Text: "Network error occurred"}
	s1 := feedback.Message{ID: "s1", Severity: feedback.Success, Text: "Route optimized successfully"}

	seen := make(map[string]struct{})
	d.forwardVisible(ctx, []feedback.Message{e1, s1}, seen, logger)
	d.forwardVisible(ctx, []feedback.Message{e1, s1, e2}, seen, logger)
	assert.Len(t, seen, 2)

	d.forwardVisible(ctx, []feedback.Message{e2}, seen, logger)
	assert.Equal(t, map[string]struct{}{"e2": {}}, seen)

	d.forwardVisible(ctx, nil, seen, logger)
	assert.Empty(t, seen)
	assert.Equal(t, []string{"✗ Failed to generate invoice", "✗ Network error occurred"}, sent)
}

func TestDesktop_Wants(t *testing.T) {
	tests := []struct {
		name       string
		severities []feedback.Severity
		sev        feedback.Severity
		want       bool
	}{
		{name: "default error", sev: feedback.Error, want: true},
		{name: "default skips warning", sev: feedback.Warning, want: false},
		{name: "selected warning", severities: []feedback.Severity{feedback.Warning, feedback.Error}, sev: feedback.Warning, want: true},
		{name: "unselected info", severities: []feedback.Severity{feedback.Warning}, sev: feedback.Info, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Desktop{Severities: tt.severities}.wants(tt.sev))
		})
	}
}
