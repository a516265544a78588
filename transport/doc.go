// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport moves packets between connections on different
// buses and keeps the route table the object registry uses to build
// proxies.
//
// A [Route] is one direction of a path between two connections. It is
// registered with a [Transport] under a local route token, and
// [Route.SetDestination] records the peer's token (the shibboleth) and
// the ConnectionID at the far end, installing the route in a
// [RouteTable]. Every outbound packet starts with the shibboleth; the
// receiving transport reads it back off and hands the remainder to the
// matching route's [Receiver].
//
// Two transports are provided. [Loopback] delivers in-process and
// synchronously, for tests and single-process buses. [StreamTransport]
// frames packets over any reliable byte stream, optionally compressing
// each frame with LZ4 or zstd ([Compression]).
//
// Streams come from a [Listener] or [Dialer]; [TCPListener] and
// [TCPDialer] are the TCP implementations. Before a stream carries
// packets, both ends run a [Handshake]: each announces its ConnectionID
// and the token of the route it registered for the stream, and, when
// the bus has a shared key, proves possession of it with a BLAKE3
// keyed MAC over the other side's nonce.
package transport
