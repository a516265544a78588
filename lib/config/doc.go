// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for Ripley binaries.
//
// Configuration comes from exactly one file, named by the RIPLEY_CONFIG
// environment variable or a --config flag. There is no search path and
// no per-field environment override, so the file on disk is the whole
// story.
//
// Files are YAML. Files named *.json or *.jsonc are accepted too: they
// are normalised with tidwall/jsonc (comments and trailing commas
// stripped) and then parsed as YAML, of which JSON is a subset.
//
// A file may carry development and production sections that override
// the base values when environment matches. ${VAR} and
// ${VAR:-default} are expanded in listen addresses, peer addresses,
// and the bus key path.
package config
