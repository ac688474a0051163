package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/haulboard/internal/capability"
	"github.com/leapstack-labs/haulboard/internal/cli/config"
	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/live"
	"github.com/leapstack-labs/haulboard/internal/poller"
	"github.com/leapstack-labs/haulboard/internal/tui"
)

// LogFileName is the dashboard log written next to the state database.
const LogFileName = "haulboard.log"

// DashboardOptions holds options for the dashboard command.
type DashboardOptions struct {
	NoPoll bool
	NoLive bool
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand() *cobra.Command {
	opts := &DashboardOptions{}
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Long: `Open the full-screen dashboard.

The dashboard lists customers, offers the quick actions and shows feedback
messages. Customers are refreshed every poll.interval. When live.url is set
and reachable, backend events are shown as they arrive.

Logs are written to haulboard.log in the state directory while the
dashboard is open.`,
		Example: `  haulboard dashboard
  haulboard dashboard --base-url http://ops.internal:5000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoPoll, "no-poll", false, "Disable periodic customer refresh")
	cmd.Flags().BoolVar(&opts.NoLive, "no-live", false, "Disable the live feed")
	return cmd
}

func runDashboard(cmd *cobra.Command, opts *DashboardOptions) error {
	cctx := NewCommandContext(cmd)
	cfg := cctx.Cfg

	logger, closeLog, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	cctx.Logger = logger

	app, cleanup, err := NewApp(cctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	p := poller.New(poller.Config{
		Lister:   app.Client,
		Board:    app.Board,
		Feedback: app.Feedback,
		Interval: cfg.Poll.Interval,
		Logger:   logger,
	})
	if !opts.NoPoll {
		g.Go(func() error {
			p.Run(gctx)
			return nil
		})
	}

	report := capability.NewProber(cfg.Live.URL, logger).Probe(ctx)

	if !opts.NoLive && report.Has(capability.Socket) {
		lc, err := live.New(live.Config{URL: cfg.Live.URL, Feedback: app.Feedback, Logger: logger})
		if err != nil {
			logger.Warn("live feed disabled", slog.Any("error", err))
		} else {
			g.Go(func() error {
				lc.Run(gctx)
				return nil
			})
		}
	}

	if report.Has(capability.Notifications) {
		desk := capability.Desktop{
			Path:       capability.NotifierBinary,
			Severities: severities(cfg.Notify.Severities),
		}
		updates := app.Notifier.Subscribe()
		defer app.Notifier.Unsubscribe(updates)
		g.Go(func() error {
			desk.Forward(gctx, app.Feedback, updates, logger)
			return nil
		})
	}

	err = tui.Run(ctx, tui.Options{
		Dispatcher: app.Dispatcher,
		Refresher:  p,
		Notifier:   app.Notifier,
		BaseURL:    app.Client.BaseURL(),
		Logger:     logger,
	})
	cancel()
	_ = g.Wait()
	return err
}

// openLogFile sends logs to the state directory so they do not draw over the
// dashboard.
func openLogFile(cfg *config.Config) (*slog.Logger, func(), error) {
	dir := filepath.Dir(cfg.StatePath)
	if err := ensureDir(dir); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}

func severities(names []string) []feedback.Severity {
	out := make([]feedback.Severity, 0, len(names))
	for _, n := range names {
		out = append(out, feedback.ParseSeverity(n))
	}
	return out
}
