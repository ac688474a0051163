// Package live reads the backend's activity feed over a websocket and posts
// each event to the feedback center.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leapstack-labs/haulboard/internal/feedback"
)

const (
	// PongWait bounds the silence allowed between frames or pings.
	PongWait = 60 * time.Second
	// PingEvery is how often a server should ping; it must be under PongWait.
	PingEvery = 25 * time.Second
	// WriteWait bounds a single control write.
	WriteWait = 10 * time.Second

	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Event is one frame of the activity feed.
type Event struct {
	Type     string `json:"type"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Config configures a Client.
type Config struct {
	URL        string
	Feedback   *feedback.Center
	Dialer     *websocket.Dialer
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Logger     *slog.Logger
}

// Client is a reconnecting feed reader.
type Client struct {
	url      string
	feedback *feedback.Center
	dialer   *websocket.Dialer
	min, max time.Duration
	logger   *slog.Logger

	received atomic.Int64
	dials    atomic.Int64
}

// New validates cfg and creates a Client. http and https URLs are converted to
// their websocket equivalents.
func New(cfg Config) (*Client, error) {
	u, err := WebsocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = max(defaultMaxBackoff, cfg.MinBackoff)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		url:      u,
		feedback: cfg.Feedback,
		dialer:   cfg.Dialer,
		min:      cfg.MinBackoff,
		max:      cfg.MaxBackoff,
		logger:   cfg.Logger,
	}, nil
}

// WebsocketURL normalizes raw into a ws or wss URL.
func WebsocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid live feed url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid live feed url %q: scheme must be ws, wss, http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid live feed url %q: missing host", raw)
	}
	return u.String(), nil
}

// URL returns the websocket URL.
func (c *Client) URL() string { return c.url }

// Received counts events posted since the client started.
func (c *Client) Received() int64 { return c.received.Load() }

// Dials counts connection attempts.
func (c *Client) Dials() int64 { return c.dials.Load() }

// Run connects and reads until ctx is cancelled, reconnecting with doubling
// backoff after every failure. The backoff resets once a connection delivers
// an event.
func (c *Client) Run(ctx context.Context) {
	backoff := c.min
	for {
		got, err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if got {
			backoff = c.min
		}
		c.logger.Debug("live feed disconnected", slog.Any("error", err), slog.Duration("retry_in", backoff))

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff = min(backoff*2, c.max)
	}
}

// session runs one connection. It reports whether any event was delivered.
func (c *Client) session(ctx context.Context) (bool, error) {
	c.dials.Add(1)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("failed to dial live feed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// unblock ReadJSON on cancel
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.SetReadDeadline(time.Now().Add(PongWait)); err != nil {
		return false, err
	}
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(PongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.logger.Info("live feed connected", slog.String("url", c.url))

	got := false
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return got, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(PongWait))
		if c.deliver(ev) {
			got = true
		}
	}
}

func (c *Client) deliver(ev Event) bool {
	if strings.TrimSpace(ev.Message) == "" {
		c.logger.Debug("live feed frame ignored", slog.String("type", ev.Type))
		return false
	}
	c.received.Add(1)
	if c.feedback != nil {
		c.feedback.Post(feedback.ParseSeverity(ev.Severity), ev.Message)
	}
	return true
}

// Probe dials url once and closes the connection.
func Probe(ctx context.Context, rawURL string) error {
	u, err := WebsocketURL(rawURL)
	if err != nil {
		return err
	}
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to reach live feed: %w", err)
	}
	return conn.Close()
}
