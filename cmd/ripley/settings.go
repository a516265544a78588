// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ripley-foundation/ripley/lib/config"
	"github.com/ripley-foundation/ripley/lib/logging"
	"github.com/ripley-foundation/ripley/transport"
)

// loadConfig reads path, falling back to RIPLEY_CONFIG and then to the
// built-in defaults when neither names a file.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv(config.PathEnvironment) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(os.Stderr, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// transportSettings turns the transport section into the handshake and
// stream options every link uses. The handshake's Connection is left
// for the caller.
func transportSettings(cfg *config.Config, logger *slog.Logger) (transport.Handshake, transport.StreamOptions, error) {
	compression, err := transport.ParseCompression(cfg.Transport.Compression)
	if err != nil {
		return transport.Handshake{}, transport.StreamOptions{}, err
	}
	handshake := transport.Handshake{
		Timeout: cfg.Transport.HandshakeTimeout,
		Logger:  logger,
	}
	if cfg.Transport.BusKeyFile != "" {
		key, err := transport.LoadBusKey(cfg.Transport.BusKeyFile)
		if err != nil {
			return transport.Handshake{}, transport.StreamOptions{}, err
		}
		handshake.BusKey = key
	}
	options := transport.StreamOptions{
		Compression:   compression,
		MaxPacketSize: cfg.Transport.MaxPacketSize,
		Logger:        logger,
	}
	return handshake, options, nil
}
