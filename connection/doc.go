// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package connection owns the per-connection object registry that lets
// Ripley peers pass objects by reference.
//
// A [Connection] maps local objects to [serial.Reference] values when
// they are exported, and maps incoming References back to objects when
// they are imported. Exports are lazy and idempotent: an object gets an
// ObjectID the first time it is handed out, and every later export
// returns the same Reference.
//
// Imports go through [Deserialize] (or [Resolve] when the Reference is
// already decoded). A Reference that names this connection is looked up
// in the registry and then checked against the requested [Capability],
// so a peer cannot claim that an object it was given supports an
// interface it does not. A Reference that names any other connection is
// wrapped in a fresh [Proxy] bound to the [Route] the [RouteTable]
// holds for that connection. Proxies are never deduplicated, so compare
// them by Reference rather than by identity.
//
// A capability is a Go interface that embeds [Referenceable], declared
// together with a Capability value naming it and saying how to wrap a
// Proxy in it:
//
//	type Adder interface {
//	    connection.Referenceable
//	    Add(a, b int) int
//	}
//
//	var AdderCapability = connection.Capability[Adder]{
//	    Name:     "example.Adder",
//	    NewProxy: func(p *connection.Proxy) Adder { return &adderProxy{Proxy: p} },
//	}
//
// Local implementations embed [Local]; proxy implementations embed
// *Proxy and forward each method through [Proxy.Forward].
//
// The route table belongs to whatever sets up routes between
// connections (see the transport package). The registry only reads it.
//
// All registry operations are safe for concurrent use. None of them
// block on I/O: the streams passed to Serialize and Deserialize belong
// to the caller.
package connection
