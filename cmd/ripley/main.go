// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/ripley-foundation/ripley/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return errors.New("no command given")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "id":
		return idCommand(rest, stdout)
	case "ref":
		return refCommand(rest, stdout)
	case "serve":
		return serveCommand(rest)
	case "probe":
		return probeCommand(rest, stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "ripley %s\n", version.Info())
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q (see \"ripley help\")", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `ripley - capability references over a connection bus

USAGE
    ripley <command> [flags] [args]

COMMANDS
    id encode <n>              Encode an identifier as a hex varint
    id decode <hex>            Decode a hex varint
    ref encode <conn> <obj>    Encode a Reference (also accepts c3/o7)
    ref decode <hex>           Decode a Reference
    serve                      Run a bus member
    probe <address>            Handshake with a bus member and report it
    version                    Show version

ENVIRONMENT
    RIPLEY_CONFIG   Configuration file for serve and probe
    RIPLEY_DEBUG    Force debug logging
`)
}

// newFlagSet returns a ContinueOnError flag set whose usage text names
// the full subcommand.
func newFlagSet(name, usage string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: ripley %s\n\n", usage)
		flagSet.PrintDefaults()
	}
	return flagSet
}
