package config

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// DefaultPath is the well-known config file location.
const DefaultPath = "/etc/logsentry/config.json"

const envPrefix = "LOGSENTRY"

// Load reads the JSON config file at path, applying defaults for missing
// optional keys and LOGSENTRY_* environment overrides. Unrecognized keys
// are ignored. A missing file yields the defaults; a malformed file is a
// configuration error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("api_key")

	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// Missing config file is fine: defaults plus environment.
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Classifier defaults
	v.SetDefault("api_base_url", "")
	v.SetDefault("model", "gpt-4o-mini")

	// Input and decision defaults
	v.SetDefault("digest_path", "/var/log/logwatch_output.txt")
	v.SetDefault("alert_threshold", "medium")
	v.SetDefault("always_send_summary", false)

	// Shared-state defaults
	v.SetDefault("state_path", "/var/lib/logsentry/counters.json")
	v.SetDefault("lock_path", "/var/lock/logsentry.lock")
	v.SetDefault("lock_stale_after", "30m")

	// Limit defaults
	v.SetDefault("limits.max_per_hour", 10)
	v.SetDefault("limits.max_per_day", 50)
	v.SetDefault("limits.min_interval", "5m")
	v.SetDefault("limits.max_retries", 3)
	v.SetDefault("limits.base_backoff", "30s")
	v.SetDefault("limits.request_timeout", "30s")

	// SMTP defaults
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 25)
	v.SetDefault("smtp.use_tls", false)
	v.SetDefault("smtp.from", "logsentry@localhost")
	v.SetDefault("smtp.to", []string{"root@localhost"})

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "/var/lib/logsentry/history.db")
}
