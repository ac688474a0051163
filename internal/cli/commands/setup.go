package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/haulboard/internal/backend"
	"github.com/leapstack-labs/haulboard/internal/board"
	"github.com/leapstack-labs/haulboard/internal/cli/config"
	"github.com/leapstack-labs/haulboard/internal/cli/output"
	"github.com/leapstack-labs/haulboard/internal/dispatch"
	"github.com/leapstack-labs/haulboard/internal/feedback"
	"github.com/leapstack-labs/haulboard/internal/loading"
	"github.com/leapstack-labs/haulboard/internal/notifier"
	"github.com/leapstack-labs/haulboard/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// App is the application context shared by every front end. It is built once
// per command and torn down by the cleanup function returned with it.
type App struct {
	Notifier   *notifier.Notifier
	Client     *backend.Client
	Board      *board.Board
	Feedback   *feedback.Center
	Loading    *loading.Indicator
	Dispatcher *dispatch.Dispatcher
	// Store is nil when the state database could not be opened.
	Store *state.SQLiteStore
	// Preferences is the stored preferences document, read once at startup.
	// It is empty when none is stored or the stored value is unreadable.
	Preferences map[string]any
}

// NewApp wires the backend client, view state and dispatcher.
func NewApp(cctx *CommandContext) (*App, func(), error) {
	cfg := cctx.Cfg
	logger := cctx.Logger

	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	notify := notifier.New()
	app := &App{
		Notifier: notify,
		Client:   client,
		Board:    board.New(notify),
		Feedback: feedback.New(feedback.Config{
			TTL:        cfg.Feedback.TTL,
			MaxVisible: cfg.Feedback.MaxVisible,
			Notifier:   notify,
			Logger:     logger,
		}),
		Loading: loading.New(notify),
	}

	store, err := OpenStore(cfg.StatePath, logger)
	if err != nil {
		logger.Warn("action journal disabled", slog.Any("error", err))
	} else {
		app.Store = store
		app.Preferences = loadPreferences(context.Background(), store, logger)
	}

	dcfg := dispatch.Config{
		Backend:       client,
		Board:         app.Board,
		Feedback:      app.Feedback,
		Loading:       app.Loading,
		SimulateDelay: cfg.Simulate.Delay,
		ExportDir:     cfg.Export.Dir,
		Logger:        logger,
	}
	if app.Store != nil {
		dcfg.Journal = app.Store
	}
	app.Dispatcher = dispatch.New(dcfg)

	cleanup := func() {
		app.Dispatcher.Close()
		app.Feedback.Close()
		if app.Store != nil {
			_ = app.Store.Close()
		}
	}
	return app, cleanup, nil
}

// loadPreferences reads the preferences document. Missing or malformed
// documents yield an empty map.
func loadPreferences(ctx context.Context, store *state.SQLiteStore, logger *slog.Logger) map[string]any {
	prefs := map[string]any{}
	raw, err := store.Preferences(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return prefs
	}
	if err != nil {
		logger.Warn("failed to load preferences", slog.Any("error", err))
		return prefs
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		logger.Warn("ignoring unreadable preferences", slog.Any("error", err))
		return map[string]any{}
	}
	if prefs == nil {
		prefs = map[string]any{}
	}
	logger.Debug("preferences loaded", slog.Int("keys", len(prefs)))
	return prefs
}

// NewClient creates the backend client from cfg.
func NewClient(cfg *config.Config, logger *slog.Logger) (*backend.Client, error) {
	var tokens backend.TokenSource
	if cfg.Backend.CSRFToken != "" {
		tokens = backend.StaticToken(cfg.Backend.CSRFToken)
	}
	client, err := backend.New(backend.Config{
		BaseURL:  cfg.Backend.BaseURL,
		PagePath: cfg.Backend.PagePath,
		Tokens:   tokens,
		Timeout:  cfg.Backend.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// OpenStore opens the state database, creating its directory.
func OpenStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}
