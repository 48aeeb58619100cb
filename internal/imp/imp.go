// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package imp is a registered-detection stub for the standalone IMP/ATN!
// container. Retrieval only turned up IMPDecompressor.hpp, never the
// matching .cpp, so there is no algorithm to port; New always fails with
// ErrUnimplementedAlgorithm rather than guessing a decode.
package imp

import (
	"errors"
	"fmt"

	"github.com/elliotnunn/xpkdecomp/internal/bufview"
)

var ErrUnimplementedAlgorithm = errors.New("imp: unimplemented algorithm")

func Detect(fourCC uint32) bool {
	return fourCC == 0x494d5021 || fourCC == 0x41544e21 // 'IMP!' or 'ATN!'
}

func New(packed []byte) (*Decoder, error) {
	if bufview.New(packed).Size() < 4 {
		return nil, fmt.Errorf("%w: short header", ErrUnimplementedAlgorithm)
	}
	return nil, fmt.Errorf("%w: IMP", ErrUnimplementedAlgorithm)
}

// Decoder is never actually constructed (New always errors); it exists
// so callers can spell out the type the registry expects.
type Decoder struct{}

func (*Decoder) RawSize() int    { return 0 }
func (*Decoder) PackedSize() int { return 0 }
func (*Decoder) Decompress(raw []byte, verify bool) error {
	return fmt.Errorf("%w: IMP", ErrUnimplementedAlgorithm)
}
