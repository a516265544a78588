// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog loggers used by ripley binaries.
//
// Interactive sessions get slog.TextHandler; anything piped or
// redirected gets slog.JSONHandler so log collectors can parse it. The
// "auto" format makes that choice by asking whether the destination is
// a terminal.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// DebugEnvironment forces debug level when set to a non-empty value
// other than "0".
const DebugEnvironment = "RIPLEY_DEBUG"

// Formats accepted by [New].
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects the level and handler for [New].
type Options struct {
	Level  string
	Format string

	// IsTerminal overrides terminal detection for FormatAuto. Nil uses
	// term.IsTerminal on the writer's file descriptor.
	IsTerminal func(io.Writer) bool
}

// ParseLevel maps a config level name onto a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a logger writing to w.
func New(w io.Writer, options Options) (*slog.Logger, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, err
	}
	if debug := os.Getenv(DebugEnvironment); debug != "" && debug != "0" {
		level = slog.LevelDebug
	}

	isTerminal := options.IsTerminal
	if isTerminal == nil {
		isTerminal = writerIsTerminal
	}

	handlerOptions := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch options.Format {
	case FormatText:
		handler = slog.NewTextHandler(w, handlerOptions)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, handlerOptions)
	case "", FormatAuto:
		if isTerminal(w) {
			handler = slog.NewTextHandler(w, handlerOptions)
		} else {
			handler = slog.NewJSONHandler(w, handlerOptions)
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", options.Format)
	}
	return slog.New(handler), nil
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
