package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/haulboard/internal/cli/output"
)

// JournalOptions holds options for the journal command.
type JournalOptions struct {
	Limit int
}

// NewJournalCommand creates the journal command.
func NewJournalCommand() *cobra.Command {
	opts := &JournalOptions{}
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recently dispatched actions",
		Long: `Show the most recent request and simulated actions recorded in the state
database, newest first.`,
		Example: `  haulboard journal
  haulboard journal --limit 50 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJournal(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

// JournalEntryOutput is the JSON form of a journal entry.
type JournalEntryOutput struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	Target     string  `json:"target,omitempty"`
	Outcome    string  `json:"outcome"`
	Message    string  `json:"message,omitempty"`
	StartedAt  string  `json:"started_at"`
	DurationMS float64 `json:"duration_ms"`
}

func runJournal(cmd *cobra.Command, opts *JournalOptions) error {
	cctx := NewCommandContext(cmd)
	r := cctx.Renderer

	store, err := OpenStore(cctx.Cfg.StatePath, cctx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.RecentOutcomes(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]JournalEntryOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, JournalEntryOutput{
				ID:         e.ID,
				Action:     e.Action,
				Target:     e.Target,
				Outcome:    string(e.Outcome),
				Message:    e.Message,
				StartedAt:  e.StartedAt.Format(time.RFC3339),
				DurationMS: float64(e.Duration()) / float64(time.Millisecond),
			})
		}
		return r.JSON(out)
	}

	r.Header("Action Journal")
	if len(entries) == 0 {
		r.Muted("No actions recorded yet")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Action,
			e.Target,
			string(e.Outcome),
			e.Duration().Round(time.Millisecond).String(),
			e.Message,
		})
	}
	r.Table([]string{"Started", "Action", "Target", "Outcome", "Duration", "Message"}, rows)
	r.Muted(fmt.Sprintf("%d entries from %s", len(entries), store.Path()))
	return nil
}
