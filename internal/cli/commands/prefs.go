package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/haulboard/internal/cli/output"
	"github.com/leapstack-labs/haulboard/internal/state"
)

// NewPrefsCommand creates the prefs command and its subcommands.
func NewPrefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change stored user preferences",
		Long: `Manage the user preferences document kept in the state database.

Preferences are a single JSON document stored under the userPreferences key.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrefsShow(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "set <json>",
		Short:   "Replace the stored preferences",
		Example: `  haulboard prefs set '{"compact":true,"page_size":25}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrefsSet(cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the stored preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrefsReset(cmd)
		},
	})
	return cmd
}

func withStore(cmd *cobra.Command, fn func(cctx *CommandContext, store *state.SQLiteStore) error) error {
	cctx := NewCommandContext(cmd)
	store, err := OpenStore(cctx.Cfg.StatePath, cctx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(cctx, store)
}

func runPrefsShow(cmd *cobra.Command) error {
	return withStore(cmd, func(cctx *CommandContext, store *state.SQLiteStore) error {
		r := cctx.Renderer
		doc, err := store.Preferences(cmd.Context())
		if errors.Is(err, state.ErrNotFound) {
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{})
			}
			r.Muted("No preferences stored")
			return nil
		}
		if err != nil {
			return err
		}

		var v any
		if err := json.Unmarshal(doc, &v); err != nil {
			return fmt.Errorf("failed to decode preferences: %w", err)
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(v)
		}

		text, err := prefsYAML(v)
		if err != nil {
			return err
		}
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatHeader("Preferences", 1))
			r.Println("")
			r.Println("```yaml")
			r.Println(text)
			r.Println("```")
			return nil
		}
		r.Header("Preferences")
		r.Println(text)
		return nil
	})
}

// prefsYAML renders a decoded preferences document as YAML.
func prefsYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to format preferences: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func runPrefsSet(cmd *cobra.Command, doc string) error {
	return withStore(cmd, func(cctx *CommandContext, store *state.SQLiteStore) error {
		if err := store.SetPreferences(cmd.Context(), json.RawMessage(doc)); err != nil {
			return err
		}
		cctx.Renderer.Success("Preferences saved")
		return nil
	})
}

func runPrefsReset(cmd *cobra.Command) error {
	return withStore(cmd, func(cctx *CommandContext, store *state.SQLiteStore) error {
		if err := store.ResetPreferences(cmd.Context()); err != nil {
			return err
		}
		cctx.Renderer.Success("Preferences reset")
		return nil
	})
}
