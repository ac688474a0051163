package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/haulboard/internal/action"
)

// DoOptions holds options for the do command.
type DoOptions struct {
	Params action.Params
	Type   string
}

// bindParamFlags registers the action parameter flags on fs.
func bindParamFlags(fs *pflag.FlagSet, opts *DoOptions) {
	fs.StringVar(&opts.Params.CustomerID, "customer", "", "Customer id")
	fs.StringVar(&opts.Params.RequestID, "request", "", "Service request id")
	fs.StringVar(&opts.Params.VehicleID, "vehicle", "", "Vehicle id")
	fs.StringVar(&opts.Params.RouteID, "route", "", "Route id")
	fs.StringVar(&opts.Params.InvoiceID, "invoice", "", "Invoice id")
	fs.StringVar(&opts.Params.Status, "status", "", "New request status")
	fs.BoolVar(&opts.Params.Active, "active", false, "Requested customer status or vehicle availability")
	fs.StringVar(&opts.Type, "type", "", "Report or export type")
	fs.StringVar(&opts.Params.Search, "search", "", "Customer filter term")
}

// params returns the dispatch parameters with --type applied.
func (o *DoOptions) params() action.Params {
	p := o.Params
	if o.Type != "" {
		p.ReportType = o.Type
		p.DataType = o.Type
	}
	return p
}

// NewDoCommand creates the do command.
func NewDoCommand() *cobra.Command {
	opts := &DoOptions{}
	cmd := &cobra.Command{
		Use:   "do <action>",
		Short: "Run a single action against the backend",
		Long: `Dispatch one action, wait for it to settle and print its result.

Actions:
  ` + strings.Join(action.Names(), "\n  "),
		Example: `  # Deactivate customer 42
  haulboard do toggle_customer_status --customer 42 --active=false

  # Optimize a route and show the result
  haulboard do optimize_route --route 7

  # Mark a request completed (simulated)
  haulboard do update_request_status --request 12 --status completed`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: action.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDo(cmd, args[0], opts)
		},
	}

	bindParamFlags(cmd.Flags(), opts)
	return cmd
}

func runDo(cmd *cobra.Command, name string, opts *DoOptions) error {
	a, ok := action.Parse(name)
	if !ok {
		return fmt.Errorf("unknown action %q", name)
	}

	cctx := NewCommandContext(cmd)
	app, cleanup, err := NewApp(cctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	cycle := app.Dispatcher.Dispatch(ctx, a, opts.params())
	o, err := cycle.Wait(ctx)
	if err != nil {
		return err
	}
	return renderOutcome(cctx.Renderer, o)
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <type>",
		Short: "Export data from the backend to a CSV file",
		Long: `Download an export and save it as {type}_export.csv in the export directory
(export.dir, default: current directory).`,
		Example: `  haulboard export customers
  haulboard export routes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDo(cmd, action.ExportData.String(), &DoOptions{Type: args[0]})
		},
	}
	return cmd
}
