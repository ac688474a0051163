package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/haulboard/internal/devserver"
)

// DevServerOptions holds options for the devserver command.
type DevServerOptions struct {
	Port     int
	Fixtures string
}

// NewDevServerCommand creates the devserver command.
func NewDevServerCommand(version string) *cobra.Command {
	opts := &DevServerOptions{}
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stub of the backend API",
		Long: `Start a local server implementing the backend API with fixture data.

The server provides:
- The dashboard page carrying the csrf-token meta tag
- The customer, analytics, routing, billing and export endpoints
- A live activity feed over websocket (/ws) and server-sent events (/updates)

Fixtures are read from a YAML file when --fixtures is given and reloaded
whenever the file changes.`,
		Example: `  # Serve built-in fixtures on the default port
  haulboard devserver

  # Serve a fixtures file on port 8080
  haulboard devserver --port 8080 --fixtures fixtures.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevServer(cmd, opts, version)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: devserver.port)")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "YAML fixtures file (default: devserver.fixtures)")
	return cmd
}

func runDevServer(cmd *cobra.Command, opts *DevServerOptions, version string) error {
	cctx := NewCommandContext(cmd)
	cfg := cctx.Cfg.DevServer

	port := cfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	fixtures := cfg.Fixtures
	if opts.Fixtures != "" {
		fixtures = opts.Fixtures
	}

	srv, err := devserver.NewServer(devserver.Config{
		Port:          port,
		SessionSecret: cfg.SessionSecret,
		FixturesPath:  fixtures,
		Version:       version,
		Logger:        cctx.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create dev server: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting dev server on http://localhost:%d\n", port)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return srv.Serve(cmd.Context())
}
