// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package xpk

import "fmt"

// lzbsDecoder is a registered-detection stub for XPK-LZBS. Retrieval only
// turned up LZBSDecompressor.hpp (the interface), never the matching
// .cpp, so there is no algorithm to port. It is kept in the registry so
// that detection of an LZBS chunk fails loudly with ErrUnimplementedAlgorithm
// rather than silently with "unrecognized inner format", mirroring how
// internal/sit/sit.go's readerFor switch carried a named default case for
// formats it recognized but would not read.
type lzbsDecoder struct{}

func detectLZBS(fourCC uint32) bool { return fourCC == fourCC4('L', 'Z', 'B', 'S') }

func newLZBS(packed []byte) (Decoder, error) {
	return nil, fmt.Errorf("%w: LZBS", ErrUnimplementedAlgorithm)
}

func (lzbsDecoder) RawSize() int                        { return 0 }
func (lzbsDecoder) Decompress(raw []byte, verify bool) error {
	return fmt.Errorf("%w: LZBS", ErrUnimplementedAlgorithm)
}
