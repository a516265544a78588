// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// ripley is the command-line tool for Ripley buses.
//
// Usage:
//
//	ripley id encode <n>
//	ripley id decode <hex>
//	ripley ref encode <connection> <object> [--json]
//	ripley ref decode <hex> [--json]
//	ripley serve [--config <file>]
//	ripley probe <address> [--config <file>] [--connection <id>]
//	ripley version
//
// The id and ref commands convert between numbers and their wire
// encodings and need no running bus. serve runs a bus member that
// accepts and dials TCP peers; probe performs one handshake against a
// running member and reports what it announced.
package main
