// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"

	"github.com/ripley-foundation/ripley/lib/serial"
)

// Connection is one participant on the bus together with its object
// registry. Every exported local object of a comparable type appears in
// both objects and references, and the two maps are inverses of each
// other. Values of other types can only be held in objects. Entries are
// never removed for the life of the Connection.
type Connection struct {
	id     serial.ConnectionID
	routes RouteTable
	logger *slog.Logger

	mu         sync.Mutex
	objects    map[serial.ObjectID]Referenceable
	references map[Referenceable]serial.Reference
	nextObject serial.ObjectID
	transverse []TransverseMap
}

// New creates the registry for the connection the bus authority named
// id. The route table is owned by the caller and consulted whenever a
// foreign Reference is imported.
func New(id serial.ConnectionID, routes RouteTable, logger *slog.Logger) *Connection {
	return &Connection{
		id:         id,
		routes:     routes,
		logger:     logger.With("connection", id.String()),
		objects:    make(map[serial.ObjectID]Referenceable),
		references: make(map[Referenceable]serial.Reference),
	}
}

// ID returns the ConnectionID this registry was created with.
func (c *Connection) ID() serial.ConnectionID {
	return c.id
}

// ToReference returns the Reference for obj, allocating a new ObjectID
// if obj is a local object that has never been exported. Proxies and
// previously exported objects keep the Reference they already have.
//
// A value whose dynamic type is not comparable has no identity to look
// up, so each call exports it again under a new ObjectID.
func (c *Connection) ToReference(obj Referenceable) serial.Reference {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toReferenceLocked(obj)
}

func (c *Connection) toReferenceLocked(obj Referenceable) serial.Reference {
	if reference, ok := obj.Reference(); ok {
		return reference
	}
	keyable := reflect.TypeOf(obj).Comparable()
	if keyable {
		if reference, ok := c.references[obj]; ok {
			return reference
		}
	}

	reference := serial.Reference{Connection: c.id, Object: c.nextObject}
	c.nextObject++
	c.objects[reference.Object] = obj
	if keyable {
		c.references[obj] = reference
	} else {
		c.logger.Warn("exported value of a non-comparable type; every export allocates a new object",
			"reference", reference.String(),
			"type", fmt.Sprintf("%T", obj),
		)
	}
	if bindable, ok := obj.(binder); ok {
		bindable.bindReference(reference)
	}

	c.logger.Debug("exported object", "reference", reference.String(), "type", fmt.Sprintf("%T", obj))
	return reference
}

// Serialize writes the Reference for obj to w. No type information is
// written; the receiver names the capability it expects when it
// deserializes.
func (c *Connection) Serialize(obj Referenceable, w io.Writer) error {
	reference := c.ToReference(obj)
	if _, err := reference.WriteTo(w); err != nil {
		return fmt.Errorf("writing reference %s: %w", reference, err)
	}
	return nil
}

// Exported returns the number of local objects in the registry.
func (c *Connection) Exported() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

// Deserialize reads a Reference from r and resolves it as capability T.
// See Resolve for the resolution rules. Decoding failures from the
// serial package are returned wrapped, so errors.Is(err,
// serial.ErrTooLong) and friends still match.
func Deserialize[T Referenceable](c *Connection, r io.ByteReader, capability Capability[T]) (T, error) {
	reference, err := serial.ReadReference(r)
	if err != nil {
		var zero T
		if err == io.EOF {
			err = fmt.Errorf("%w: %w", serial.ErrTruncated, io.ErrUnexpectedEOF)
		}
		return zero, fmt.Errorf("deserializing %s: %w", capability.Name, err)
	}
	return Resolve(c, reference, capability)
}

// Resolve maps reference to an object implementing capability T.
//
// If the Reference names this connection, the registered object is
// returned after checking that it really implements T; the sender's
// claim about the type is never trusted. The same instance is returned
// every time.
//
// Otherwise the Reference is wrapped in a new Proxy bound to the Route
// for its connection. Each call builds a new proxy.
//
// A failed resolution leaves the registry unchanged.
func Resolve[T Referenceable](c *Connection, reference serial.Reference, capability Capability[T]) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if reference.Connection == c.id {
		obj, ok := c.objects[reference.Object]
		if !ok {
			return zero, &UnknownObjectError{Object: reference.Object}
		}
		typed, ok := obj.(T)
		if !ok {
			mismatch := &TypeMismatchError{
				Reference: reference,
				Requested: capability.Name,
				Actual:    fmt.Sprintf("%T", obj),
			}
			c.logger.Warn("rejected import with wrong capability",
				"reference", reference.String(),
				"requested", mismatch.Requested,
				"actual", mismatch.Actual,
			)
			return zero, mismatch
		}
		return typed, nil
	}

	route, ok := c.routes.Lookup(reference.Connection)
	if !ok {
		c.logger.Warn("rejected import from unreachable connection", "reference", reference.String())
		return zero, &UnknownConnectionError{Connection: reference.Connection}
	}
	if capability.NewProxy == nil {
		return zero, &NotProxyableError{Reference: reference, Capability: capability.Name}
	}
	return capability.NewProxy(NewProxy(route, reference)), nil
}
