// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of ripley is running.
//
// Release builds stamp the variables through -ldflags:
//
//	go build -ldflags "-X github.com/ripley-foundation/ripley/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without stamping fall back to the VCS settings the Go
// toolchain embeds in the binary, so a plain "go build" from a checkout
// still reports its revision.
//
// The handshake does not exchange build versions; [Info] is for humans
// and logs, while wire compatibility is governed by the transport's
// protocol version.
package version
