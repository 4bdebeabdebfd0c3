// Package config provides the typed application configuration, decoded from
// a JSON config file with documented defaults for every optional key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/logsentry/logsentry/internal/core"
	"github.com/logsentry/logsentry/internal/mail"
)

// Config is the complete application configuration.
type Config struct {
	// APIKey authenticates against the classifier provider. It may also be
	// supplied via the LOGSENTRY_API_KEY environment variable.
	APIKey     string `mapstructure:"api_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
	Model      string `mapstructure:"model"`

	DigestPath        string `mapstructure:"digest_path"`
	AlertThreshold    string `mapstructure:"alert_threshold"`
	AlwaysSendSummary bool   `mapstructure:"always_send_summary"`

	StatePath      string        `mapstructure:"state_path"`
	LockPath       string        `mapstructure:"lock_path"`
	LockStaleAfter time.Duration `mapstructure:"lock_stale_after"`

	Limits  core.Limits     `mapstructure:"limits"`
	SMTP    mail.SMTPConfig `mapstructure:"smtp"`
	History HistoryConfig   `mapstructure:"history"`
}

// HistoryConfig controls the optional run-history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Threshold parses the configured alert threshold name.
func (c *Config) Threshold() (core.Severity, error) {
	return core.ParseSeverity(c.AlertThreshold)
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DigestPath) == "" {
		return fmt.Errorf("digest_path is required")
	}
	if strings.TrimSpace(c.StatePath) == "" {
		return fmt.Errorf("state_path is required")
	}
	if strings.TrimSpace(c.LockPath) == "" {
		return fmt.Errorf("lock_path is required")
	}
	if _, err := c.Threshold(); err != nil {
		return fmt.Errorf("alert_threshold: %w", err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	return nil
}
