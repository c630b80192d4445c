package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultHeartbeatInterval is how often telemetry is emitted
const DefaultHeartbeatInterval = 5 * time.Second

// Config is the agent's on-disk configuration. The credential in it is
// rewritten in place when the controller rotates it, so the file must
// stay writable for the agent's lifetime.
type Config struct {
	NodeID            string        `yaml:"node_id"`
	ControllerURL     string        `yaml:"controller_url"`
	Token             string        `yaml:"token"`
	ListenAddr        string        `yaml:"listen_addr"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval,omitempty"`
	DiskPath          string        `yaml:"disk_path,omitempty"`
}

// LoadConfig reads and validates an agent configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8421"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields without defaults
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if c.ControllerURL == "" {
		return fmt.Errorf("controller_url is required")
	}
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

// Save writes the configuration atomically: the new content lands in a
// temp file first and replaces the old file with a rename, so a crash
// mid-write never leaves a truncated config holding half a credential
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close config: %w", err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
