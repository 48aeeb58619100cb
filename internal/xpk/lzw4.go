// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package xpk

import (
	"fmt"

	"github.com/elliotnunn/xpkdecomp/internal/bitio"
	"github.com/elliotnunn/xpkdecomp/internal/bufview"
	"github.com/elliotnunn/xpkdecomp/internal/cursor"
	"github.com/elliotnunn/xpkdecomp/internal/outbuf"
)

// lzw4Decoder implements Decoder for XPK-LZW4, ported from
// original_source/src/LZW4Decompressor.cpp. There is no framing beyond
// the 4CC match: the whole packed buffer is the bitstream.
type lzw4Decoder struct {
	packed bufview.View
}

func detectLZW4(fourCC uint32) bool { return fourCC == fourCC4('L', 'Z', 'W', '4') }

func newLZW4(packed []byte) (Decoder, error) {
	return &lzw4Decoder{packed: bufview.New(packed)}, nil
}

// RawSize is unknown for this format: the caller must supply a raw buffer
// already sized to the uncompressed length (LZW4 carries no raw-size field
// of its own, and the surrounding XPK outer header has none either).
// RawSize reports 0 (unknown) the way the original detector's isValid()
// carried no size.
func (d *lzw4Decoder) RawSize() int { return 0 }

func (d *lzw4Decoder) Decompress(raw []byte, verify bool) error {
	byteCursor := cursor.NewForward(d.packed, 0, d.packed.Size())
	bits := bitio.NewMSBReader(byteCursor, bitio.Refill4)

	out := outbuf.New(raw, len(raw))
	for !out.EOF() {
		bit, err := bits.ReadBits(1)
		if err != nil {
			return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
		}
		if bit == 0 {
			b, err := byteCursor.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
			}
			if err := out.WriteByte(b); err != nil {
				return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
			}
			continue
		}

		hi, err := byteCursor.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
		}
		lo, err := byteCursor.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
		}
		d16 := uint32(hi)<<8 | uint32(lo)
		if d16 == 0 {
			break
		}
		distance := int(65536 - d16)

		countByte, err := byteCursor.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
		}
		count := int(countByte) + 3

		if err := out.Copy(distance, count); err != nil {
			return fmt.Errorf("%w: LZW4: %v", ErrDecompression, err)
		}
	}
	if !out.EOF() {
		return fmt.Errorf("%w: LZW4: stream ended before raw buffer was filled", ErrDecompression)
	}
	return nil
}
