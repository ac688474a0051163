package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: backend.base_url is required", ErrInvalid)
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend.base_url must be an absolute URL, got %q", ErrInvalid, c.Backend.BaseURL)
	}
	if c.Feedback.TTL <= 0 {
		return fmt.Errorf("%w: feedback.ttl must be positive", ErrInvalid)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%w: poll.interval must be positive", ErrInvalid)
	}

	mode := strings.ToLower(c.OutputFormat)
	valid := mode == ""
	for _, m := range outputModes {
		if mode == m {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("%w: output must be one of %s, got %q", ErrInvalid, strings.Join(outputModes, "|"), c.OutputFormat)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, s)
	}
	return level, nil
}
