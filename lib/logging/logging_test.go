// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func fixedTerminal(value bool) func(io.Writer) bool {
	return func(io.Writer) bool { return value }
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.name)
		if err != nil || got != test.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", test.name, got, err, test.want)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) succeeded")
	}
}

func TestNew_JSON(t *testing.T) {
	t.Setenv(DebugEnvironment, "")
	var output bytes.Buffer
	logger, err := New(&output, Options{Level: "info", Format: FormatJSON})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("route registered", "token", "r3")

	var record map[string]any
	if err := json.Unmarshal(output.Bytes(), &record); err != nil {
		t.Fatalf("output is not a single JSON record: %v\n%s", err, output.String())
	}
	if record["msg"] != "route registered" || record["token"] != "r3" {
		t.Errorf("record = %v", record)
	}
}

func TestNew_AutoFormat(t *testing.T) {
	t.Setenv(DebugEnvironment, "")
	tests := []struct {
		name       string
		isTerminal bool
		wantJSON   bool
	}{
		{"terminal", true, false},
		{"pipe", false, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			logger, err := New(&output, Options{Format: FormatAuto, IsTerminal: fixedTerminal(test.isTerminal)})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			logger.Info("hello")
			if got := strings.HasPrefix(output.String(), "{"); got != test.wantJSON {
				t.Errorf("JSON output = %v, want %v: %q", got, test.wantJSON, output.String())
			}
		})
	}
}

func TestNew_DebugEnvironment(t *testing.T) {
	t.Setenv(DebugEnvironment, "1")
	var output bytes.Buffer
	logger, err := New(&output, Options{Level: "error", Format: FormatText})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(output.String(), "msg=visible") {
		t.Errorf("debug record missing with %s=1: %q", DebugEnvironment, output.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(io.Discard, Options{Level: "loud"}); err == nil {
		t.Error("New accepted level loud")
	}
	if _, err := New(io.Discard, Options{Format: "xml"}); err == nil {
		t.Error("New accepted format xml")
	}
}

func TestWriterIsTerminal(t *testing.T) {
	if writerIsTerminal(&bytes.Buffer{}) {
		t.Error("bytes.Buffer reported as a terminal")
	}
	file, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer file.Close()
	if writerIsTerminal(file) {
		t.Error("regular file reported as a terminal")
	}
}
