// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"errors"
	"fmt"

	"github.com/ripley-foundation/ripley/lib/serial"
)

// Sentinel errors for errors.Is. Each structured error type below
// matches exactly one of these.
var (
	ErrUnknownObject     = errors.New("unknown object")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnknownTransverse = errors.New("unknown transverse ID")
	ErrNotProxyable      = errors.New("capability has no proxy")
)

// UnknownObjectError is returned when a Reference names this connection
// but an ObjectID the registry does not hold. Callers can use errors.As
// to extract the ID:
//
//	var unknown *connection.UnknownObjectError
//	if errors.As(err, &unknown) { ... unknown.Object ... }
type UnknownObjectError struct {
	Object serial.ObjectID
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object %s", e.Object)
}

func (e *UnknownObjectError) Is(target error) bool { return target == ErrUnknownObject }

// UnknownConnectionError is returned when a Reference names a foreign
// connection with no entry in the route table.
type UnknownConnectionError struct {
	Connection serial.ConnectionID
}

func (e *UnknownConnectionError) Error() string {
	return fmt.Sprintf("unknown connection %s: no route", e.Connection)
}

func (e *UnknownConnectionError) Is(target error) bool { return target == ErrUnknownConnection }

// TypeMismatchError is returned when a Reference resolves to a local
// object that does not implement the requested capability.
type TypeMismatchError struct {
	Reference serial.Reference
	// Requested is the capability name the importer asked for.
	Requested string
	// Actual is the Go type of the object actually registered.
	Actual string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %s: requested %s, object is %s", e.Reference, e.Requested, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// UnknownTransverseError is returned when no transverse map holds the
// requested ID.
type UnknownTransverseError struct {
	ID serial.TransverseID
}

func (e *UnknownTransverseError) Error() string {
	return fmt.Sprintf("unknown transverse ID %q", string(e.ID))
}

func (e *UnknownTransverseError) Is(target error) bool { return target == ErrUnknownTransverse }

// NotProxyableError is returned when a foreign Reference is imported as
// a capability that declares no proxy constructor.
type NotProxyableError struct {
	Reference  serial.Reference
	Capability string
}

func (e *NotProxyableError) Error() string {
	return fmt.Sprintf("cannot import %s as %s: capability has no proxy", e.Reference, e.Capability)
}

func (e *NotProxyableError) Is(target error) bool { return target == ErrNotProxyable }
