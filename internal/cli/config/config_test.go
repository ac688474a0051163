package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func rootFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("base-url", "", "")
	flags.String("state", "", "")
	flags.String("log-level", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	content := `backend:
  base_url: https://ops.example.com
  timeout: 5s
feedback:
  ttl: 2s
  max_visible: 3
poll:
  interval: 1m
live:
  url: wss://ops.example.com/ws
notify:
  severities: [warning, error]
export:
  dir: exports
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "haulboard.yaml"), []byte(content), 0600))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "haulboard.yaml", GetConfigFileUsed())
	assert.Equal(t, "https://ops.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Feedback.TTL)
	assert.Equal(t, 3, cfg.Feedback.MaxVisible)
	assert.Equal(t, time.Minute, cfg.Poll.Interval)
	assert.Equal(t, "wss://ops.example.com/ws", cfg.Live.URL)
	assert.Equal(t, []string{"warning", "error"}, cfg.Notify.Severities)
	assert.Equal(t, "exports", cfg.Export.Dir)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultSimulateDelay, cfg.Simulate.Delay)
	assert.Equal(t, DefaultPagePath, cfg.Backend.PagePath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		setFlag string
		want    string
	}{
		{
			name: "file only",
			want: "http://from-file:5000",
		},
		{
			name: "env over file",
			env:  map[string]string{"HAULBOARD_BACKEND__BASE_URL": "http://from-env:5000"},
			want: "http://from-env:5000",
		},
		{
			name:    "flag over env",
			env:     map[string]string{"HAULBOARD_BACKEND__BASE_URL": "http://from-env:5000"},
			setFlag: "http://from-flag:5000",
			want:    "http://from-flag:5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			chdir(t, dir)
			cfgPath := filepath.Join(dir, "custom.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte("backend:\n  base_url: http://from-file:5000\n"), 0600))

			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := rootFlags()
			if tt.setFlag != "" {
				require.NoError(t, flags.Set("base-url", tt.setFlag))
			}

			cfg, err := LoadConfig(cfgPath, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Backend.BaseURL)
		})
	}
}

func TestLoadConfig_EnvNestingAndTypes(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	t.Setenv("HAULBOARD_FEEDBACK__MAX_VISIBLE", "8")
	t.Setenv("HAULBOARD_SIMULATE__DELAY", "250ms")
	t.Setenv("HAULBOARD_NOTIFY__SEVERITIES", "warning,error")
	t.Setenv("HAULBOARD_DEVSERVER__PORT", "5050")
	t.Setenv("HAULBOARD_VERBOSE", "true")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Feedback.MaxVisible)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulate.Delay)
	assert.Equal(t, []string{"warning", "error"}, cfg.Notify.Severities)
	assert.Equal(t, 5050, cfg.DevServer.Port)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_FlagMapping(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	flags := rootFlags()
	require.NoError(t, flags.Set("state", "/tmp/hb/state.db"))
	require.NoError(t, flags.Set("log-level", "debug"))
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/hb/state.db", cfg.StatePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HAULBOARD_LIVE__URL=ws://localhost:5000/ws\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("HAULBOARD_LIVE__URL") })

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/ws", cfg.Live.URL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)
	cfgPath := filepath.Join(dir, "haulboard.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("feedback:\n  ttl: 0s\n"), 0600))

	_, err := LoadConfig(cfgPath, nil)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "feedback.ttl")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.Backend.BaseURL = "" }, errSubstr: "backend.base_url is required"},
		{name: "relative base url", mutate: func(c *Config) { c.Backend.BaseURL = "/api" }, errSubstr: "absolute URL"},
		{name: "zero ttl", mutate: func(c *Config) { c.Feedback.TTL = 0 }, errSubstr: "feedback.ttl"},
		{name: "negative interval", mutate: func(c *Config) { c.Poll.Interval = -time.Second }, errSubstr: "poll.interval"},
		{name: "unknown output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: "output must be one of"},
		{name: "uppercase output", mutate: func(c *Config) { c.OutputFormat = "JSON" }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "chatty" }, errSubstr: "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
