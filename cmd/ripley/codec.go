// Copyright 2026 The Ripley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ripley-foundation/ripley/lib/serial"
)

func idCommand(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: ripley id encode <n> | ripley id decode <hex>")
	}
	switch args[0] {
	case "encode":
		flagSet := newFlagSet("id encode", "id encode <n>")
		if err := flagSet.Parse(args[1:]); err != nil {
			return err
		}
		if flagSet.NArg() != 1 {
			return errors.New("id encode takes exactly one number")
		}
		value, err := strconv.ParseUint(flagSet.Arg(0), 0, 64)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", flagSet.Arg(0), err)
		}
		fmt.Fprintln(stdout, hex.EncodeToString(serial.AppendUint(nil, value)))
		return nil

	case "decode":
		flagSet := newFlagSet("id decode", "id decode <hex>")
		if err := flagSet.Parse(args[1:]); err != nil {
			return err
		}
		if flagSet.NArg() == 0 {
			return errors.New("id decode takes a hex string")
		}
		data, err := decodeHex(flagSet.Args())
		if err != nil {
			return err
		}
		value, n, err := serial.DecodeUint(data)
		if err != nil {
			return err
		}
		if n != len(data) {
			return fmt.Errorf("%d trailing bytes after the varint", len(data)-n)
		}
		fmt.Fprintln(stdout, value)
		return nil

	default:
		return fmt.Errorf("unknown id command %q", args[0])
	}
}

// referenceOutput is the --json form of a Reference.
type referenceOutput struct {
	Reference serial.Reference `json:"reference"`
	Hex       string           `json:"hex"`
}

func refCommand(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: ripley ref encode <connection> <object> | ripley ref decode <hex>")
	}

	var asJSON bool
	var reference serial.Reference
	switch args[0] {
	case "encode":
		flagSet := newFlagSet("ref encode", "ref encode <connection> <object> [--json]")
		flagSet.BoolVar(&asJSON, "json", false, "print JSON instead of hex")
		if err := flagSet.Parse(args[1:]); err != nil {
			return err
		}
		parsed, err := parseReferenceArgs(flagSet.Args())
		if err != nil {
			return err
		}
		reference = parsed

	case "decode":
		flagSet := newFlagSet("ref decode", "ref decode <hex> [--json]")
		flagSet.BoolVar(&asJSON, "json", false, "print JSON instead of text")
		if err := flagSet.Parse(args[1:]); err != nil {
			return err
		}
		if flagSet.NArg() == 0 {
			return errors.New("ref decode takes a hex string")
		}
		data, err := decodeHex(flagSet.Args())
		if err != nil {
			return err
		}
		if err := reference.UnmarshalBinary(data); err != nil {
			return err
		}
		if !asJSON {
			fmt.Fprintln(stdout, reference)
			return nil
		}

	default:
		return fmt.Errorf("unknown ref command %q", args[0])
	}

	wire, err := reference.MarshalBinary()
	if err != nil {
		return err
	}
	if !asJSON {
		fmt.Fprintln(stdout, hex.EncodeToString(wire))
		return nil
	}
	encoder := json.NewEncoder(stdout)
	return encoder.Encode(referenceOutput{Reference: reference, Hex: hex.EncodeToString(wire)})
}

// parseReferenceArgs accepts either "c3/o7" or a connection and an
// object, each bare or prefixed ("3 7", "c3 o7").
func parseReferenceArgs(args []string) (serial.Reference, error) {
	switch len(args) {
	case 1:
		return serial.ParseReference(args[0])
	case 2:
		connection, err := parseIdentifier(args[0], "c")
		if err != nil {
			return serial.Reference{}, fmt.Errorf("connection: %w", err)
		}
		object, err := parseIdentifier(args[1], "o")
		if err != nil {
			return serial.Reference{}, fmt.Errorf("object: %w", err)
		}
		return serial.Reference{Connection: serial.ConnectionID(connection), Object: serial.ObjectID(object)}, nil
	default:
		return serial.Reference{}, errors.New("ref encode takes <connection> <object> or c<connection>/o<object>")
	}
}

func parseIdentifier(text, prefix string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(text, prefix), 0, 64)
}

// decodeHex joins its arguments so "ff ff 03 00" and "ffff0300" both
// work.
func decodeHex(args []string) ([]byte, error) {
	joined := strings.Join(args, "")
	joined = strings.ReplaceAll(joined, " ", "")
	data, err := hex.DecodeString(joined)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", joined, err)
	}
	return data, nil
}
