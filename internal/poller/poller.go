// Package poller keeps the customer list fresh in the background.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/board"
	"github.com/leapstack-labs/haulboard/internal/feedback"
)

// DefaultInterval is the refresh period.
const DefaultInterval = 30 * time.Second

// Lister fetches the customer list.
type Lister interface {
	ListCustomers(ctx context.Context) ([]backend.Customer, error)
}

// Config configures a Poller.
type Config struct {
	Lister   Lister
	Board    *board.Board
	Feedback *feedback.Center
	Interval time.Duration
	Logger   *slog.Logger
}

// Poller refreshes the board's customers every Interval. Manual refreshes and
// ticks that overlap share one request.
type Poller struct {
	lister   Lister
	board    *board.Board
	feedback *feedback.Center
	interval time.Duration
	logger   *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	count int
	seen  bool
}

// New creates a Poller.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		lister:   cfg.Lister,
		board:    cfg.Board,
		feedback: cfg.Feedback,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Interval returns the refresh period.
func (p *Poller) Interval() time.Duration { return p.interval }

// Refresh fetches the customer list now and returns its length.
func (p *Poller) Refresh(ctx context.Context) (int, error) {
	v, err, shared := p.group.Do("customers", func() (any, error) {
		list, err := p.lister.ListCustomers(ctx)
		if err != nil {
			return 0, err
		}
		p.board.SetCustomers(list)
		p.noteCount(len(list))
		return len(list), nil
	})
	if shared {
		p.logger.Debug("customer refresh coalesced")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to refresh customers: %w", err)
	}
	return v.(int), nil
}

func (p *Poller) noteCount(n int) {
	p.mu.Lock()
	prev, seen := p.count, p.seen
	p.count, p.seen = n, true
	p.mu.Unlock()

	if seen && prev != n && p.feedback != nil {
		p.feedback.Info(fmt.Sprintf("Customer list updated: %d customers (was %d)", n, prev))
	}
}

// Run refreshes immediately and then on every tick until ctx is done.
// Failed refreshes are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	n, err := p.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("customer refresh failed", slog.Any("error", err))
		}
		return
	}
	p.logger.Debug("customers refreshed", slog.Int("count", n))
}
