package capability

import (
	"context"
	"log/slog"
	"os/exec"
	"slices"

	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

// Desktop forwards feedback messages to the desktop notifier.
type Desktop struct {
	Path string
	// Severities selects the messages Forward sends. Empty means errors only.
	Severities []feedback.Severity
	// Run executes the notifier; nil means exec.
	Run func(ctx context.Context, path string, args ...string) error
}

func (d Desktop) wants(sev feedback.Severity) bool {
	if len(d.Severities) == 0 {
		return sev == feedback.Error
	}
	return slices.Contains(d.Severities, sev)
}

// Notify shows msg as a desktop notification.
func (d Desktop) Notify(ctx context.Context, msg feedback.Message) error {
	urgency := "normal"
	if msg.Severity == feedback.Error {
		urgency = "critical"
	}
	args := []string{"--app-name=haulboard", "--urgency=" + urgency, "haulboard", msg.Severity.Icon() + " " + msg.Text}
	if d.Run != nil {
		return d.Run(ctx, d.Path, args...)
	}
	return exec.CommandContext(ctx, d.Path, args...).Run()
}

// Forward sends every newly visible message of a selected severity in center to d until ctx is
// done. updates is a notifier subscription; only TopicFeedback pings are read.
func (d Desktop) Forward(ctx context.Context, center *feedback.Center, updates <-chan notifier.Topic, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	seen := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case topic, ok := <-updates:
			if !ok {
				return
			}
			if topic != notifier.TopicFeedback {
				continue
			}
			d.forwardVisible(ctx, center.Visible(), seen, logger)
		}
	}
}

// forwardVisible notifies for selected messages not yet in seen and drops seen
// ids that are no longer visible.
func (d Desktop) forwardVisible(ctx context.Context, visible []feedback.Message, seen map[string]struct{}, logger *slog.Logger) {
	current := make(map[string]struct{}, len(visible))
	for _, msg := range visible {
		current[msg.ID] = struct{}{}
		if !d.wants(msg.Severity) {
			continue
		}
		if _, done := seen[msg.ID]; done {
			continue
		}
		seen[msg.ID] = struct{}{}
		if err := d.Notify(ctx, msg); err != nil {
			logger.Debug("desktop notification failed", slog.Any("error", err))
		}
	}
	for id := range seen {
		if _, ok := current[id]; !ok {
			delete(seen, id)
		}
	}
}
