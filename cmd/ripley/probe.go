// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ripley-foundation/ripley/lib/serial"
	"github.com/ripley-foundation/ripley/transport"
)

// probeConnection is the identity probe announces unless told
// otherwise. Bus members are expected to use small IDs.
const probeConnection = serial.ConnectionID(math.MaxUint32)

func probeCommand(args []string, stdout io.Writer) error {
	var configPath string
	var connectionID uint64
	flagSet := newFlagSet("probe", "probe <address> [--config <file>] [--connection <id>]")
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $RIPLEY_CONFIG)")
	flagSet.Uint64Var(&connectionID, "connection", uint64(probeConnection), "ConnectionID to announce")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("probe takes exactly one address")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	handshake, options, err := transportSettings(cfg, logger)
	if err != nil {
		return err
	}
	handshake.Connection = serial.ConnectionID(connectionID)

	peer, err := probe(context.Background(), flagSet.Arg(0), handshake, options)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "connection %s\nroute      %s\nsession    %s\n", peer.Connection, peer.Route, peer.Session)
	return nil
}

// probe dials address, completes a handshake, and hangs up.
func probe(ctx context.Context, address string, handshake transport.Handshake, options transport.StreamOptions) (transport.Peer, error) {
	dialer := &transport.TCPDialer{Timeout: handshake.Timeout}
	conn, err := dialer.DialContext(ctx, address)
	if err != nil {
		return transport.Peer{}, err
	}
	link, err := transport.Bootstrap(ctx, conn, handshake, transport.NewRouteTable(), nil, options)
	if err != nil {
		return transport.Peer{}, fmt.Errorf("handshake with %s: %w", address, err)
	}
	link.Close()
	return link.Peer, nil
}
