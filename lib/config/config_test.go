// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Transport.Compression != "lz4" {
		t.Errorf("expected compression=lz4, got %s", cfg.Transport.Compression)
	}
	if cfg.Transport.HandshakeTimeout != 10*time.Second {
		t.Errorf("expected handshake_timeout=10s, got %v", cfg.Transport.HandshakeTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresRipleyConfig(t *testing.T) {
	t.Setenv("RIPLEY_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when RIPLEY_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "RIPLEY_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithRipleyConfig(t *testing.T) {
	path := writeConfig(t, "ripley.yaml", `
connection_id: 12
listen: 0.0.0.0:7400
`)
	t.Setenv("RIPLEY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ConnectionID != 12 {
		t.Errorf("expected connection_id=12, got %d", cfg.ConnectionID)
	}
	if cfg.Listen != "0.0.0.0:7400" {
		t.Errorf("expected listen=0.0.0.0:7400, got %s", cfg.Listen)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "ripley.yaml", `
environment: development
connection_id: 3
peers:
  - 10.0.0.2:7390
  - 10.0.0.3:7390
transport:
  compression: zstd
  max_packet_size: 1048576
  handshake_timeout: 2s
logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !slices.Equal(cfg.Peers, []string{"10.0.0.2:7390", "10.0.0.3:7390"}) {
		t.Errorf("peers = %v", cfg.Peers)
	}
	if cfg.Transport.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Transport.Compression)
	}
	if cfg.Transport.MaxPacketSize != 1<<20 {
		t.Errorf("expected max_packet_size=1048576, got %d", cfg.Transport.MaxPacketSize)
	}
	if cfg.Transport.HandshakeTimeout != 2*time.Second {
		t.Errorf("expected handshake_timeout=2s, got %v", cfg.Transport.HandshakeTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level=debug, got %s", cfg.Logging.Level)
	}
	// Unset fields keep their defaults.
	if cfg.Logging.Format != "auto" {
		t.Errorf("expected format=auto, got %s", cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "ripley.jsonc", `{
  // The bus authority hands out IDs; this one is fixed for the test.
  "connection_id": 9,
  "transport": {
    "compression": "none",
    "handshake_timeout": "500ms", /* inline comment */
  },
  "peers": ["peer-a:7390",],
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.ConnectionID != 9 {
		t.Errorf("expected connection_id=9, got %d", cfg.ConnectionID)
	}
	if cfg.Transport.Compression != "none" {
		t.Errorf("expected compression=none, got %s", cfg.Transport.Compression)
	}
	if cfg.Transport.HandshakeTimeout != 500*time.Millisecond {
		t.Errorf("expected handshake_timeout=500ms, got %v", cfg.Transport.HandshakeTimeout)
	}
	if !slices.Equal(cfg.Peers, []string{"peer-a:7390"}) {
		t.Errorf("peers = %v", cfg.Peers)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadFile error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "ripley.yaml", "transport: [unclosed\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile accepted malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "ripley.yaml", `
environment: production
listen: 127.0.0.1:7390
transport:
  compression: lz4
production:
  listen: 0.0.0.0:7390
  transport:
    compression: zstd
    bus_key_file: /etc/ripley/bus.key
development:
  listen: 127.0.0.1:9999
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Listen != "0.0.0.0:7390" {
		t.Errorf("expected production listen, got %s", cfg.Listen)
	}
	if cfg.Transport.Compression != "zstd" {
		t.Errorf("expected production compression, got %s", cfg.Transport.Compression)
	}
	if cfg.Transport.BusKeyFile != "/etc/ripley/bus.key" {
		t.Errorf("expected production bus key, got %s", cfg.Transport.BusKeyFile)
	}
	// Fields the override leaves unset keep the base value.
	if cfg.Transport.HandshakeTimeout != 10*time.Second {
		t.Errorf("expected default handshake timeout, got %v", cfg.Transport.HandshakeTimeout)
	}
}

func TestLogFormatDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"development", "environment: development\n", "auto"},
		{"production", "environment: production\n", "json"},
		{"production with explicit text", "environment: production\nlogging:\n  format: text\n", "text"},
		{"production with explicit auto", "environment: production\nlogging:\n  format: auto\n", "auto"},
		{"production override", "environment: production\nlogging:\n  format: text\nproduction:\n  logging:\n    format: json\n", "json"},
		{"production section without a format", "environment: production\nproduction:\n  listen: 0.0.0.0:7390\n", "json"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, "ripley.yaml", test.content))
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if cfg.Logging.Format != test.want {
				t.Errorf("expected format=%s, got %s", test.want, cfg.Logging.Format)
			}
		})
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("HOME", "/home/ripley")
	t.Setenv("RIPLEY_PEER_HOST", "peer.internal")
	t.Setenv("RIPLEY_LISTEN", "")

	path := writeConfig(t, "ripley.yaml", `
listen: ${RIPLEY_LISTEN:-127.0.0.1:7500}
peers:
  - ${RIPLEY_PEER_HOST}:7390
transport:
  bus_key_file: ${HOME}/.config/ripley/bus.key
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7500" {
		t.Errorf("expected default listen, got %s", cfg.Listen)
	}
	if cfg.Peers[0] != "peer.internal:7390" {
		t.Errorf("expected expanded peer, got %s", cfg.Peers[0])
	}
	if cfg.Transport.BusKeyFile != "/home/ripley/.config/ripley/bus.key" {
		t.Errorf("expected expanded bus key path, got %s", cfg.Transport.BusKeyFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"compression", func(c *Config) { c.Transport.Compression = "gzip" }, "transport.compression"},
		{"packet size", func(c *Config) { c.Transport.MaxPacketSize = 0 }, "transport.max_packet_size"},
		{"handshake timeout", func(c *Config) { c.Transport.HandshakeTimeout = -time.Second }, "transport.handshake_timeout"},
		{"level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty peer", func(c *Config) { c.Peers = []string{"a:1", ""} }, "peers[1]"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, test.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Transport.Compression = "gzip"
	cfg.Logging.Level = "trace"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"transport.compression", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
