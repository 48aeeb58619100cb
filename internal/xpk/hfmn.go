// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package xpk

import (
	"errors"
	"fmt"
	"hash/maphash"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/elliotnunn/xpkdecomp/internal/bitio"
	"github.com/elliotnunn/xpkdecomp/internal/bufview"
	"github.com/elliotnunn/xpkdecomp/internal/cursor"
	"github.com/elliotnunn/xpkdecomp/internal/huffman"
	"github.com/elliotnunn/xpkdecomp/internal/outbuf"
)

// tableCache holds constructed Huffman tables keyed by a hash of the
// header bytes that built them, so a process opening the same XPK-HFMN
// stream repeatedly (e.g. nested inside an XPK recursion chain) doesn't
// rebuild the prefix tree each time.
var tableCache, _ = lru.New[uint64, *huffman.Tree](64)

var tableCacheSeed = maphash.MakeSeed()

// ErrInvalidFormat and ErrDecompression are the two error classes the
// implemented format decoders in this package raise (the LZBS stub raises
// ErrUnimplementedAlgorithm); the root package maps them onto its own
// sentinel errors at the facade boundary.
var (
	ErrInvalidFormat = errors.New("xpk: invalid format")
	ErrDecompression = errors.New("xpk: decompression error")
)

// hfmnDecoder implements Decoder for XPK-HFMN, ported from
// original_source/src/HFMNDecompressor.cpp.
type hfmnDecoder struct {
	packed  bufview.View
	hdrSize int
	rawSize int
}

func detectHFMN(fourCC uint32) bool { return fourCC == fourCC4('H', 'F', 'M', 'N') }

func newHFMN(packed []byte) (Decoder, error) {
	v := bufview.New(packed)
	if v.Size() < 4 {
		return nil, fmt.Errorf("%w: HFMN: short header", ErrInvalidFormat)
	}
	tmp, ok := v.ReadBE16(0)
	if !ok {
		return nil, fmt.Errorf("%w: HFMN: short header", ErrInvalidFormat)
	}
	if tmp&3 != 0 {
		return nil, fmt.Errorf("%w: HFMN: header size not a multiple of 4", ErrInvalidFormat)
	}
	// The top 7 bits of this word are undocumented flags; ignored, not
	// validated, matching the original decoder.
	hdrSize := int(tmp & 0x1ff)
	if hdrSize+4 > v.Size() {
		return nil, fmt.Errorf("%w: HFMN: header size exceeds buffer", ErrInvalidFormat)
	}
	rawSize16, ok := v.ReadBE16(hdrSize + 2)
	if !ok || rawSize16 == 0 {
		return nil, fmt.Errorf("%w: HFMN: zero or missing raw size", ErrInvalidFormat)
	}

	return &hfmnDecoder{packed: v, hdrSize: hdrSize + 4, rawSize: int(rawSize16)}, nil
}

func (d *hfmnDecoder) RawSize() int { return d.rawSize }

func (d *hfmnDecoder) Decompress(raw []byte, verify bool) error {
	if len(raw) != d.rawSize {
		return fmt.Errorf("%w: HFMN: raw buffer size mismatch", ErrDecompression)
	}

	// Phase 1: build the Huffman table from the header region [2, hdrSize),
	// or reuse one built earlier from byte-identical header bytes.
	headerBytes, ok := d.packed.Slice(2, d.hdrSize-2)
	var cacheKey uint64
	if ok {
		cacheKey = maphash.Bytes(tableCacheSeed, headerBytes)
		if cached, hit := tableCache.Get(cacheKey); hit {
			return d.decodePayload(raw, cached)
		}
	}

	tableCursor := cursor.NewForward(d.packed, 2, d.hdrSize)
	bits := bitio.NewMSBReader(tableCursor, bitio.Refill1)
	readBit := func() (uint32, error) { return bits.ReadBits(1) }

	tree := huffman.New()
	code := uint32(1)
	codeBits := uint32(1)
	for {
		bit, err := readBit()
		if err != nil {
			return fmt.Errorf("%w: HFMN: table: %v", ErrDecompression, err)
		}
		if bit == 0 {
			var lit uint32
			for i := uint(0); i < 8; i++ {
				b, err := readBit()
				if err != nil {
					return fmt.Errorf("%w: HFMN: table: %v", ErrDecompression, err)
				}
				lit |= b << i
			}
			if err := tree.Insert(int(codeBits), code, lit); err != nil {
				return fmt.Errorf("%w: HFMN: table: %v", ErrDecompression, err)
			}
			for codeBits > 0 && code&1 == 0 {
				codeBits--
				code >>= 1
			}
			if codeBits == 0 {
				break
			}
			code--
		} else {
			code = (code << 1) + 1
			codeBits++
		}
	}
	if ok {
		tableCache.Add(cacheKey, tree)
	}
	return d.decodePayload(raw, tree)
}

func (d *hfmnDecoder) decodePayload(raw []byte, tree *huffman.Tree) error {
	// Phase 2: decode rawSize bytes from the payload region [hdrSize, end).
	payloadCursor := cursor.NewForward(d.packed, d.hdrSize, d.packed.Size())
	bits := bitio.NewMSBReader(payloadCursor, bitio.Refill1)
	readBit := func() (uint32, error) { return bits.ReadBits(1) }

	out := outbuf.New(raw, len(raw))
	for !out.EOF() {
		sym, err := tree.Decode(readBit)
		if err != nil {
			return fmt.Errorf("%w: HFMN: %v", ErrDecompression, err)
		}
		if err := out.WriteByte(byte(sym)); err != nil {
			return fmt.Errorf("%w: HFMN: %v", ErrDecompression, err)
		}
	}
	return nil
}
