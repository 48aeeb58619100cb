// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package xpkdecomp

import "errors"

// Sentinel errors every caller can errors.Is against. ErrUnknownFormat
// covers headers nothing in the registry recognizes at all;
// ErrUnimplementedAlgorithm covers headers that are recognized but whose
// algorithm was never ported (IMP, LZBS) — callers need to tell the two
// apart rather than treat both as "not a supported file".
var (
	ErrUnknownFormat          = errors.New("xpkdecomp: unknown format")
	ErrInvalidFormat          = errors.New("xpkdecomp: invalid format")
	ErrDecompression          = errors.New("xpkdecomp: decompression error")
	ErrVerification           = errors.New("xpkdecomp: verification error")
	ErrRecursionLimit         = errors.New("xpkdecomp: recursion limit exceeded")
	ErrUnimplementedAlgorithm = errors.New("xpkdecomp: unimplemented algorithm")
)
