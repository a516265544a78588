// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"github.com/ripley-foundation/ripley/lib/serial"
)

// TransverseMap publishes well-known objects under fixed names. A
// service offered on a connection contributes one map; peers resolve
// the names to References without already holding one.
type TransverseMap map[serial.TransverseID]Referenceable

// AddTransverseMap makes the objects in m resolvable by name. Maps are
// searched in the order they were added, so an earlier map shadows a
// later one for the same ID. The map must not be modified afterwards.
func (c *Connection) AddTransverseMap(m TransverseMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transverse = append(c.transverse, m)
}

// TransverseObject returns the object published under id.
func (c *Connection) TransverseObject(id serial.TransverseID) (Referenceable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transverseObjectLocked(id)
}

// TransverseReference returns the Reference for the object published
// under id, exporting the object if this is the first time it has been
// handed out.
func (c *Connection) TransverseReference(id serial.TransverseID) (serial.Reference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, err := c.transverseObjectLocked(id)
	if err != nil {
		return serial.Reference{}, err
	}
	return c.toReferenceLocked(obj), nil
}

func (c *Connection) transverseObjectLocked(id serial.TransverseID) (Referenceable, error) {
	for _, m := range c.transverse {
		if obj, ok := m[id]; ok {
			return obj, nil
		}
	}
	return nil, &UnknownTransverseError{ID: id}
}
