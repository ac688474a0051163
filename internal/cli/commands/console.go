package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/haulboard/internal/action"
	"github.com/leapstack-labs/haulboard/internal/cli/output"
	"github.com/leapstack-labs/haulboard/internal/dispatch"
)

const consolePrompt = "haulboard> "

// NewConsoleCommand creates the console command.
func NewConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive action console",
		Long: `Start a line-oriented console that dispatches actions.

Each line is an action followed by key=value parameters:
  optimize_route route=7
  toggle_customer_status customer=42 active=false

Tab completes action names. Type .help for commands, .quit to exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd)
		},
	}
}

// lineReader is the part of readline the console loop uses.
type lineReader interface {
	Readline() (string, error)
}

func runConsole(cmd *cobra.Command) error {
	cctx := NewCommandContext(cmd)
	app, cleanup, err := NewApp(cctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stateDir := filepath.Dir(cctx.Cfg.StatePath)
	if err := ensureDir(stateDir); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          consolePrompt,
		HistoryFile:     filepath.Join(stateDir, "console_history"),
		AutoComplete:    newActionCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize console: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "haulboard console (backend: %s)\n", app.Client.BaseURL())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	return consoleLoop(cmd.Context(), rl, app.Dispatcher, cctx.Renderer)
}

func newActionCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	for _, name := range action.Names() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func consoleLoop(ctx context.Context, rl lineReader, d *dispatch.Dispatcher, r *output.Renderer) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleConsoleDot(r, line); quit {
				return nil
			}
			continue
		}

		if err := runConsoleLine(ctx, d, r, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.Error(err.Error())
		}
	}
}

// runConsoleLine dispatches one action line and prints its outcome. A failed
// action is reported through its feedback message, not as an error.
func runConsoleLine(ctx context.Context, d *dispatch.Dispatcher, r *output.Renderer, line string) error {
	fields := strings.Fields(line)
	p, err := action.ParseParams(fields[1:])
	if err != nil {
		return err
	}

	cycle, ok := d.DispatchName(ctx, fields[0], p)
	if !ok {
		return fmt.Errorf("unknown action %q, type .help for a list", fields[0])
	}
	o, err := cycle.Wait(ctx)
	if err != nil {
		return err
	}
	if err := renderOutcome(r, o); err != nil && !errors.Is(err, errActionFailed) {
		return err
	}
	return nil
}

func handleConsoleDot(r *output.Renderer, line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printConsoleHelp(r)
	default:
		r.Warning(fmt.Sprintf("unknown command %s, type .help", line))
	}
	return false
}

func printConsoleHelp(r *output.Renderer) {
	r.Println("Commands:")
	r.Println("  .help   Show this help")
	r.Println("  .quit   Exit the console")
	r.Println("")
	r.Println("Parameters: customer= request= vehicle= route= invoice= status= type= search= active=")
	r.Println("")

	rows := make([][]string, 0, len(action.Names()))
	for _, a := range action.All() {
		rows = append(rows, []string{a.String(), a.Kind().String(), a.Title()})
	}
	r.Table([]string{"Action", "Kind", "Title"}, rows)
}
