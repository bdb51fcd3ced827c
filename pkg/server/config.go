package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the server config file
type TOMLConfig struct {
	Server ServerSection `toml:"server"`
	Limits LimitsSection `toml:"limits"`
	Filter FilterSection `toml:"filter"`
}

type ServerSection struct {
	ServerName   string `toml:"server_name"`
	TCPPort      int    `toml:"tcp_port"`
	HTTPPort     int    `toml:"http_port"`
	SSHPort      int    `toml:"ssh_port"`
	SSHHostKey   string `toml:"ssh_host_key"`
	DatabasePath string `toml:"database_path"`
}

type LimitsSection struct {
	QueueCapacity          int `toml:"queue_capacity"`
	EnqueueTimeoutSeconds  int `toml:"enqueue_timeout_seconds"`
	CloseDrainSeconds      int `toml:"close_drain_seconds"`
	ShutdownTimeoutSeconds int `toml:"shutdown_timeout_seconds"`
	MaxLineLength          int `toml:"max_line_length"`
}

type FilterSection struct {
	BannedPhrases []string `toml:"banned_phrases"`
}

// Config holds the resolved runtime configuration for a Server.
type Config struct {
	ServerName      string
	TCPPort         int
	HTTPPort        int
	SSHPort         int
	SSHHostKeyPath  string
	DatabasePath    string
	QueueCapacity   int
	EnqueueTimeout  time.Duration
	CloseDrainWait  time.Duration
	ShutdownTimeout time.Duration
	MaxLineLength   int
	BannedPhrases   []string
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		ServerName:      "Parley",
		TCPPort:         6470,
		HTTPPort:        6471,
		SSHPort:         6472,
		SSHHostKeyPath:  "~/.parley/ssh_host_key",
		QueueCapacity:   100,
		EnqueueTimeout:  5 * time.Second,
		CloseDrainWait:  1 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxLineLength:   4096,
	}
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			ServerName: "Parley",
			TCPPort:    6470,
			HTTPPort:   6471,
			SSHPort:    6472,
			SSHHostKey: "~/.parley/ssh_host_key",
		},
		Limits: LimitsSection{
			QueueCapacity:          100,
			EnqueueTimeoutSeconds:  5,
			CloseDrainSeconds:      1,
			ShutdownTimeoutSeconds: 5,
			MaxLineLength:          4096,
		},
		Filter: FilterSection{
			BannedPhrases: []string{},
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found
func LoadConfig(path string) (TOMLConfig, error) {
	path, err := expandHome(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, create default config
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			// If we can't write, just return defaults without error
			// (might be a permissions issue, but we can still run)
			return config, nil
		}
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// writeDefaultConfig writes the default config to a file
func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# Parley Server Configuration
# This file was auto-generated with default values
# Edit as needed and restart the server for changes to take effect

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ToConfig converts TOMLConfig to Config, falling back to defaults for
// unset values.
func (c *TOMLConfig) ToConfig() Config {
	cfg := DefaultConfig()

	if strings.TrimSpace(c.Server.ServerName) != "" {
		cfg.ServerName = c.Server.ServerName
	}

	if c.Server.TCPPort != 0 {
		cfg.TCPPort = c.Server.TCPPort
	}

	// http_port and ssh_port may be set negative to disable the transport.
	if c.Server.HTTPPort != 0 {
		cfg.HTTPPort = c.Server.HTTPPort
	}

	if c.Server.SSHPort != 0 {
		cfg.SSHPort = c.Server.SSHPort
	}

	if strings.TrimSpace(c.Server.SSHHostKey) != "" {
		cfg.SSHHostKeyPath = c.Server.SSHHostKey
	}

	if strings.TrimSpace(c.Server.DatabasePath) != "" {
		cfg.DatabasePath = c.Server.DatabasePath
	}

	if c.Limits.QueueCapacity != 0 {
		cfg.QueueCapacity = c.Limits.QueueCapacity
	}

	if c.Limits.EnqueueTimeoutSeconds != 0 {
		cfg.EnqueueTimeout = time.Duration(c.Limits.EnqueueTimeoutSeconds) * time.Second
	}

	if c.Limits.CloseDrainSeconds != 0 {
		cfg.CloseDrainWait = time.Duration(c.Limits.CloseDrainSeconds) * time.Second
	}

	if c.Limits.ShutdownTimeoutSeconds != 0 {
		cfg.ShutdownTimeout = time.Duration(c.Limits.ShutdownTimeoutSeconds) * time.Second
	}

	if c.Limits.MaxLineLength != 0 {
		cfg.MaxLineLength = c.Limits.MaxLineLength
	}

	cfg.BannedPhrases = append(cfg.BannedPhrases, c.Filter.BannedPhrases...)

	return cfg
}

// GetDatabasePath returns the database path with ~ expanded
func (c *TOMLConfig) GetDatabasePath() (string, error) {
	if c.Server.DatabasePath == "" {
		return "", nil
	}
	return expandHome(c.Server.DatabasePath)
}

// expandHome expands a leading ~/ to the user's home directory
func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
