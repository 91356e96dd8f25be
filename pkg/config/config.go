// Package config provides configuration handling for the IPv6 output
// daemon.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/irctrakz/ip6out/pkg/logging"
)

// Config is the complete daemon configuration.
type Config struct {
	// Output contains the output-path configuration.
	Output OutputConfig `json:"output" yaml:"output"`

	// IPv6 contains protocol feature flags.
	IPv6 IPv6Config `json:"ipv6" yaml:"ipv6"`

	// Logging contains the logging configuration.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// OutputConfig configures the output processor and transmitter.
type OutputConfig struct {
	// Workers is the output worker pool size.
	Workers int `json:"workers" yaml:"workers"`

	// QueueDepth is the output queue capacity.
	QueueDepth int `json:"queueDepth" yaml:"queueDepth"`

	// Transmitter selects the transmission backend: loopback, raw or tun.
	Transmitter string `json:"transmitter" yaml:"transmitter"`

	// RawProtocol is the upper-layer protocol for the raw backend.
	RawProtocol string `json:"rawProtocol" yaml:"rawProtocol"`

	// TUNName and TUNMTU configure the tun backend.
	TUNName string `json:"tunName" yaml:"tunName"`
	TUNMTU  int    `json:"tunMTU" yaml:"tunMTU"`
}

// IPv6Config contains protocol feature flags.
type IPv6Config struct {
	// MobilityOptions enables the mobility home-address carve-out in the
	// extension header walk.
	MobilityOptions bool `json:"mobilityOptions" yaml:"mobilityOptions"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// File is the log file path; empty disables file logging.
	File string `json:"file" yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Workers:     4,
			QueueDepth:  1000,
			Transmitter: "loopback",
			RawProtocol: "udp",
			TUNName:     "ip6out0",
			TUNMTU:      1500,
		},
		IPv6: IPv6Config{
			MobilityOptions: false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file into config.
func LoadFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides lets the environment override file settings, matching
// how the container image is deployed.
func ApplyEnvOverrides(config *Config) {
	if v := strings.TrimSpace(os.Getenv("IP6OUT_LOG_LEVEL")); v != "" {
		config.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("IP6OUT_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Output.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IP6OUT_QUEUE_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Output.QueueDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IP6OUT_TRANSMITTER")); v != "" {
		config.Output.Transmitter = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IP6OUT_MOBILITY"))); v != "" {
		config.IPv6.MobilityOptions = v == "1" || v == "true" || v == "yes" || v == "on"
	}
}

// ApplyLogging configures the logging package from the config.
func ApplyLogging(config *Config) error {
	level, err := logging.ParseLevel(config.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	if config.Logging.File != "" {
		dir := filepath.Dir(config.Logging.File)
		file := filepath.Base(config.Logging.File)
		if err := logging.EnableFileLogging(dir, file,
			config.Logging.MaxSize, config.Logging.MaxBackups, config.Logging.MaxAge); err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}
	return nil
}
