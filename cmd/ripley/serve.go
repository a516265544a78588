// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ripley-foundation/ripley/connection"
	"github.com/ripley-foundation/ripley/lib/clock"
	"github.com/ripley-foundation/ripley/lib/config"
	"github.com/ripley-foundation/ripley/lib/netutil"
	"github.com/ripley-foundation/ripley/lib/serial"
	"github.com/ripley-foundation/ripley/transport"
)

const (
	statusInterval = 30 * time.Second
	minRedial      = time.Second
	maxRedial      = 30 * time.Second
)

func serveCommand(args []string) error {
	var configPath string
	flagSet := newFlagSet("serve", "serve [--config <file>]")
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $RIPLEY_CONFIG)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	server, err := newServer(cfg, logger, clock.Real())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var listener transport.Listener
	if cfg.Listen != "" {
		tcp, err := transport.NewTCPListener(cfg.Listen)
		if err != nil {
			return err
		}
		listener = tcp
	}
	return server.serve(ctx, listener)
}

// server is one bus member: a connection registry whose routes are
// TCP links to its peers.
type server struct {
	config    *config.Config
	logger    *slog.Logger
	clock     clock.Clock
	registry  *connection.Connection
	routes    *transport.RouteTable
	handshake transport.Handshake
	options   transport.StreamOptions
	dialer    transport.Dialer
	ping      *pingEndpoint
	packets   atomic.Uint64
	dropped   atomic.Uint64
	waitGroup sync.WaitGroup

	// Observation hooks for tests; nil in production. onPacket sees
	// every addressed packet with its resolution error, nil when the
	// packet was delivered.
	onLink   func(*transport.Link)
	onPacket func(peer serial.ConnectionID, target serial.Reference, err error)
}

// pingName is the transverse name every member publishes its
// pingEndpoint under.
const pingName serial.TransverseID = "ripley.ping"

// endpoint is the capability the server delivers inbound packets to.
// It has no proxy: packets for objects on other connections are not
// forwarded.
type endpoint interface {
	connection.Referenceable
	Deliver(peer serial.ConnectionID, body []byte)
}

var endpointCapability = connection.Capability[endpoint]{Name: "ripley.Endpoint"}

// pingEndpoint counts the packets addressed to it.
type pingEndpoint struct {
	connection.Local
	logger   *slog.Logger
	received atomic.Uint64
}

func (p *pingEndpoint) Deliver(peer serial.ConnectionID, body []byte) {
	p.received.Add(1)
	p.logger.Debug("ping", "peer", peer, "size", len(body))
}

func newServer(cfg *config.Config, logger *slog.Logger, clk clock.Clock) (*server, error) {
	handshake, options, err := transportSettings(cfg, logger)
	if err != nil {
		return nil, err
	}
	id := serial.ConnectionID(cfg.ConnectionID)
	handshake.Connection = id
	handshake.Clock = clk

	routes := transport.NewRouteTable()
	s := &server{
		config:    cfg,
		logger:    logger.With("connection", id.String()),
		clock:     clk,
		registry:  connection.New(id, routes, logger),
		routes:    routes,
		handshake: handshake,
		options:   options,
		dialer:    &transport.TCPDialer{Timeout: cfg.Transport.HandshakeTimeout},
	}
	s.ping = &pingEndpoint{logger: s.logger}
	s.registry.AddTransverseMap(connection.TransverseMap{pingName: s.ping})
	reference, err := s.registry.TransverseReference(pingName)
	if err != nil {
		return nil, fmt.Errorf("publishing %s: %w", pingName, err)
	}
	s.logger.Info("published object", "name", string(pingName), "reference", reference.String())
	return s, nil
}

// serve runs until ctx is cancelled. listener may be nil when the
// member only dials out.
func (s *server) serve(ctx context.Context, listener transport.Listener) error {
	if listener != nil {
		defer listener.Close()
		s.logger.Info("listening", "address", listener.Address())
		s.waitGroup.Go(func() { s.acceptLoop(ctx, listener) })
	}
	for _, address := range s.config.Peers {
		s.waitGroup.Go(func() { s.dialLoop(ctx, address) })
	}
	s.waitGroup.Go(func() { s.reportLoop(ctx) })

	<-ctx.Done()
	s.waitGroup.Wait()
	s.logger.Info("stopped", "packets", s.packets.Load())
	return nil
}

func (s *server) acceptLoop(ctx context.Context, listener transport.Listener) {
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(minRedial):
			}
			continue
		}
		s.waitGroup.Go(func() { s.runLink(ctx, conn) })
	}
}

// dialLoop keeps a link to address open, redialling with exponential
// backoff whenever it drops.
func (s *server) dialLoop(ctx context.Context, address string) {
	backoff := minRedial
	for {
		conn, err := s.dialer.DialContext(ctx, address)
		switch {
		case err == nil:
			if s.runLink(ctx, conn) {
				backoff = minRedial
			}
		case ctx.Err() == nil:
			s.logger.Warn("dial failed", "address", address, "error", err, "retry", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(backoff):
		}
		backoff = min(backoff*2, maxRedial)
	}
}

// runLink bootstraps conn and serves it until it drops. It reports
// whether the handshake succeeded.
func (s *server) runLink(ctx context.Context, conn net.Conn) bool {
	remote := conn.RemoteAddr().String()
	link, err := transport.Bootstrap(ctx, conn, s.handshake, s.routes, transport.ReceiverFunc(s.receive), s.options)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("handshake failed", "remote", remote, "error", err)
		}
		return false
	}
	s.logger.Info("peer connected",
		"peer", link.Peer.Connection,
		"remote", remote,
		"session", link.Peer.Session,
	)
	if s.onLink != nil {
		s.onLink(link)
	}

	err = link.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("peer link failed", "peer", link.Peer.Connection, "error", err)
	} else {
		s.logger.Info("peer disconnected", "peer", link.Peer.Connection)
	}
	return true
}

// receive handles one inbound packet. Every packet starts with the
// Reference of the object it addresses; the rest is handed to that
// object. Packets whose target does not resolve to a local endpoint
// are dropped.
func (s *server) receive(route *transport.Route, payload []byte) {
	s.packets.Add(1)
	peer, _ := route.Destination()
	reader := bytes.NewReader(payload)
	target, err := serial.ReadReference(reader)
	if err != nil {
		s.dropped.Add(1)
		s.logger.Warn("dropping packet without a target", "peer", peer, "size", len(payload), "error", err)
		return
	}

	object, err := connection.Resolve(s.registry, target, endpointCapability)
	if s.onPacket != nil {
		defer s.onPacket(peer, target, err)
	}
	if err != nil {
		s.dropped.Add(1)
		s.logger.Warn("dropping packet for unresolvable target",
			"peer", peer,
			"target", target.String(),
			"error", err,
		)
		return
	}
	object.Deliver(peer, payload[len(payload)-reader.Len():])
}

func (s *server) reportLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logger.Info("bus status",
				"peers", s.routes.ConnectionIDs(),
				"packets", s.packets.Load(),
				"dropped", s.dropped.Load(),
				"pings", s.ping.received.Load(),
				"exported", s.registry.Exported(),
			)
		}
	}
}
