// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command xpkunpack decompresses a single XPK or MMCMP file and writes the
// raw bytes to stdout or a named output file. IMP files are recognized but
// rejected as unimplemented.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/elliotnunn/xpkdecomp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("xpkunpack", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default: stdout)")
	verify := fs.Bool("verify", false, "verify embedded checksums while decompressing")
	maxRecursion := fs.Int("max-recursion", 4, "maximum XPK nesting depth")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: xpkunpack [-o out] [-verify] [-max-recursion n] <packed-file>")
		return 2
	}

	packed, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		slog.Error("could not read input", "path", fs.Arg(0), "err", err)
		return 1
	}

	dec, err := xpkdecomp.Open(packed, xpkdecomp.WithMaxRecursion(*maxRecursion))
	if err != nil {
		logOpenErr(fs.Arg(0), err)
		return 1
	}

	raw := make([]byte, dec.RawSize())
	if err := dec.Decompress(raw, *verify); err != nil {
		slog.Error("decompression failed", "path", fs.Arg(0), "err", err)
		return 1
	}

	if *out == "" {
		if _, err := os.Stdout.Write(raw); err != nil {
			slog.Error("could not write output", "err", err)
			return 1
		}
		return 0
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		slog.Error("could not write output", "path", *out, "err", err)
		return 1
	}
	return 0
}

func logOpenErr(path string, err error) {
	switch {
	case errors.Is(err, xpkdecomp.ErrUnknownFormat):
		slog.Warn("unrecognized input format", "path", path, "err", err)
	case errors.Is(err, xpkdecomp.ErrUnimplementedAlgorithm):
		slog.Warn("recognized but unimplemented format", "path", path, "err", err)
	default:
		slog.Error("could not open input", "path", path, "err", err)
	}
}
