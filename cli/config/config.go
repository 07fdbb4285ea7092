package config

import (
	"fmt"
	"time"
)

// Config represents a ferry.yaml configuration file.
// All values are optional and act as defaults for ferry push flags.
// CLI flags always override config values.
type Config struct {
	AgentID  string         `yaml:"agent_id"`
	Backend  BackendConfig  `yaml:"backend"`
	Transfer TransferConfig `yaml:"transfer"`
	Bundle   BundleConfig   `yaml:"bundle"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// BackendConfig holds backend endpoint defaults from the config file.
type BackendConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// TransferConfig holds chunking defaults from the config file.
type TransferConfig struct {
	ChunkSize int64 `yaml:"chunk_size"`
}

// BundleConfig holds artifact production defaults from the config file.
type BundleConfig struct {
	Mode       string `yaml:"mode"`
	StagingDir string `yaml:"staging_dir"`
}

// NotifyConfig holds completion-notification settings from the config file.
type NotifyConfig struct {
	Type    string            `yaml:"type"` // webhook or redis
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
