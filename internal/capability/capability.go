// Package capability probes the optional environment features the dashboard
// can use. A missing capability skips its initialization and is never an error.
package capability

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/leapstack-labs/haulboard/internal/live"
)

// Name identifies a capability.
type Name string

// Known capabilities.
const (
	Notifications Name = "notifications"
	Geolocation   Name = "geolocation"
	Socket        Name = "socket"
)

// NotifierBinary is the desktop notifier looked up on PATH.
const NotifierBinary = "notify-send"

// Result is the outcome of one probe.
type Result struct {
	Name      Name   `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail"`
}

// Report is the set of probe results.
type Report struct {
	Results []Result `json:"results"`
}

// Has reports whether name was found available.
func (r Report) Has(name Name) bool {
	for _, res := range r.Results {
		if res.Name == name {
			return res.Available
		}
	}
	return false
}

// Prober runs the probes. The function fields exist so tests can substitute them.
type Prober struct {
	LookPath func(file string) (string, error)
	DialLive func(ctx context.Context, url string) error
	LiveURL  string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewProber returns a Prober using the real environment.
func NewProber(liveURL string, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{
		LookPath: exec.LookPath,
		DialLive: live.Probe,
		LiveURL:  liveURL,
		Timeout:  3 * time.Second,
		Logger:   logger,
	}
}

// Probe runs every probe.
func (p *Prober) Probe(ctx context.Context) Report {
	rep := Report{Results: []Result{
		p.notifications(),
		{Name: Geolocation, Detail: "not available in a terminal"},
		p.socket(ctx),
	}}
	for _, r := range rep.Results {
		p.Logger.Debug("capability probed",
			slog.String("name", string(r.Name)),
			slog.Bool("available", r.Available),
			slog.String("detail", r.Detail))
	}
	return rep
}

func (p *Prober) notifications() Result {
	path, err := p.LookPath(NotifierBinary)
	if err != nil {
		return Result{Name: Notifications, Detail: NotifierBinary + " not found"}
	}
	return Result{Name: Notifications, Available: true, Detail: path}
}

func (p *Prober) socket(ctx context.Context) Result {
	if p.LiveURL == "" {
		return Result{Name: Socket, Detail: "live.url not configured"}
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	if err := p.DialLive(ctx, p.LiveURL); err != nil {
		return Result{Name: Socket, Detail: err.Error()}
	}
	return Result{Name: Socket, Available: true, Detail: p.LiveURL}
}
