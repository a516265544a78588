// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the configuration of one Ripley bus process.
type Config struct {
	Environment Environment `yaml:"environment"`

	// ConnectionID is the ID this process announces in handshakes.
	// Zero is valid but must be unique on the bus like any other.
	ConnectionID uint64 `yaml:"connection_id"`

	// Listen is the TCP address to accept peers on. Empty disables
	// listening.
	Listen string `yaml:"listen"`

	// Peers are TCP addresses to dial at startup.
	Peers []string `yaml:"peers"`

	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace.
// Unset fields keep the base value.
type Overrides struct {
	Listen    string           `yaml:"listen,omitempty"`
	Peers     []string         `yaml:"peers,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
}

// TransportConfig configures stream transports and the handshake.
type TransportConfig struct {
	// Compression for outbound frames: none, lz4, or zstd.
	Compression string `yaml:"compression"`

	// MaxPacketSize bounds packets in either direction, in bytes.
	MaxPacketSize int `yaml:"max_packet_size"`

	// HandshakeTimeout bounds the bootstrap exchange ("10s").
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// BusKeyFile holds the hex-encoded shared bus key. Empty runs
	// handshakes without a proof.
	BusKeyFile string `yaml:"bus_key_file"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is text, json, or auto (text on a terminal, json
	// otherwise).
	Format string `yaml:"format"`
}

var (
	compressions = []string{"none", "lz4", "zstd"}
	levels       = []string{"debug", "info", "warn", "error"}
	formats      = []string{"auto", "text", "json"}
)

// Default returns the base configuration that a loaded file is merged
// into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Listen:      "127.0.0.1:7390",
		Transport: TransportConfig{
			Compression:      "lz4",
			MaxPacketSize:    16 << 20,
			HandshakeTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// PathEnvironment names the configuration file when no --config flag
// is given.
const PathEnvironment = "RIPLEY_CONFIG"

// Load loads the file named by RIPLEY_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(PathEnvironment)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your ripley.yaml config file, or use --config flag", PathEnvironment)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the overrides for
// the configured environment, and expands variables. It does not
// validate; call Validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	// Cleared so the environment default below can tell whether the
	// file chose a format.
	cfg.Logging.Format = ""
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultFormat(cfg.Environment)
	}
	cfg.expandVariables()
	return cfg, nil
}

// defaultFormat is the log format for a file that names none.
// Production logs are for machines.
func defaultFormat(environment Environment) string {
	if environment == Production {
		return "json"
	}
	return "auto"
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Listen != "" {
		c.Listen = overrides.Listen
	}
	if overrides.Peers != nil {
		c.Peers = overrides.Peers
	}
	if transport := overrides.Transport; transport != nil {
		if transport.Compression != "" {
			c.Transport.Compression = transport.Compression
		}
		if transport.MaxPacketSize != 0 {
			c.Transport.MaxPacketSize = transport.MaxPacketSize
		}
		if transport.HandshakeTimeout != 0 {
			c.Transport.HandshakeTimeout = transport.HandshakeTimeout
		}
		if transport.BusKeyFile != "" {
			c.Transport.BusKeyFile = transport.BusKeyFile
		}
	}
	if logging := overrides.Logging; logging != nil {
		if logging.Level != "" {
			c.Logging.Level = logging.Level
		}
		if logging.Format != "" {
			c.Logging.Format = logging.Format
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Listen = expandVars(c.Listen, vars)
	for i, peer := range c.Peers {
		c.Peers[i] = expandVars(peer, vars)
	}
	c.Transport.BusKeyFile = expandVars(c.Transport.BusKeyFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	for i, peer := range c.Peers {
		if peer == "" {
			errs = append(errs, fmt.Errorf("peers[%d] is empty", i))
		}
	}
	if !slices.Contains(compressions, c.Transport.Compression) {
		errs = append(errs, fmt.Errorf("transport.compression must be one of: %v", compressions))
	}
	if c.Transport.MaxPacketSize <= 0 {
		errs = append(errs, fmt.Errorf("transport.max_packet_size must be positive"))
	}
	if c.Transport.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("transport.handshake_timeout must be positive"))
	}
	if !slices.Contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}
