// Package config provides configuration management for the haulboard CLI.
package config

import "time"

// BackendConfig locates the waste-collection API.
type BackendConfig struct {
	BaseURL string `koanf:"base_url"`
	// CSRFToken skips fetching the token from the page when set.
	CSRFToken string        `koanf:"csrf_token"`
	PagePath  string        `koanf:"page_path"`
	Timeout   time.Duration `koanf:"timeout"`
}

// FeedbackConfig controls toast messages.
type FeedbackConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	MaxVisible int           `koanf:"max_visible"`
}

// SimulateConfig controls handlers that do not call the backend.
type SimulateConfig struct {
	Delay time.Duration `koanf:"delay"`
}

// PollConfig controls the background customer refresh.
type PollConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// LiveConfig enables the websocket feed. An empty URL disables it.
type LiveConfig struct {
	URL string `koanf:"url"`
}

// ExportConfig controls where exports are written.
type ExportConfig struct {
	Dir string `koanf:"dir"`
}

// NotifyConfig selects the messages forwarded to the desktop notifier.
type NotifyConfig struct {
	Severities []string `koanf:"severities"`
}

// DevServerConfig holds configuration for the stub backend.
type DevServerConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	Fixtures      string `koanf:"fixtures"`
}

// Config holds all CLI configuration options.
type Config struct {
	Backend      BackendConfig   `koanf:"backend"`
	Feedback     FeedbackConfig  `koanf:"feedback"`
	Simulate     SimulateConfig  `koanf:"simulate"`
	Poll         PollConfig      `koanf:"poll"`
	Live         LiveConfig      `koanf:"live"`
	Export       ExportConfig    `koanf:"export"`
	Notify       NotifyConfig    `koanf:"notify"`
	DevServer    DevServerConfig `koanf:"devserver"`
	StatePath    string          `koanf:"state_path"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	LogLevel     string          `koanf:"log_level"`
}

// Default configuration values.
const (
	DefaultBaseURL       = "http://localhost:5000"
	DefaultPagePath      = "/"
	DefaultTimeout       = 30 * time.Second
	DefaultFeedbackTTL   = 5 * time.Second
	DefaultMaxVisible    = 5
	DefaultSimulateDelay = time.Second
	DefaultPollInterval  = 30 * time.Second
	DefaultStateFile     = ".haulboard/state.db"
	DefaultExportDir     = "."
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel      = "info"
	DefaultDevPort       = 5000
	DefaultSessionSecret = "haulboard-dev"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "HAULBOARD_"

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:  DefaultBaseURL,
			PagePath: DefaultPagePath,
			Timeout:  DefaultTimeout,
		},
		Feedback:     FeedbackConfig{TTL: DefaultFeedbackTTL, MaxVisible: DefaultMaxVisible},
		Simulate:     SimulateConfig{Delay: DefaultSimulateDelay},
		Poll:         PollConfig{Interval: DefaultPollInterval},
		Export:       ExportConfig{Dir: DefaultExportDir},
		Notify:       NotifyConfig{Severities: []string{"error"}},
		DevServer:    DevServerConfig{Port: DefaultDevPort, SessionSecret: DefaultSessionSecret},
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
	}
}
