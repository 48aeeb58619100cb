// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package xpkdecomp

import (
	"encoding/binary"
	"fmt"

	"github.com/elliotnunn/xpkdecomp/internal/imp"
	"github.com/elliotnunn/xpkdecomp/internal/mmcmp"
	"github.com/elliotnunn/xpkdecomp/internal/xpk"
)

// descriptor is one entry in the standalone format registry: a detector
// keyed on the first four bytes of the packed buffer (read big-endian,
// matching how every format in this family spells its magic), and a
// constructor that eagerly parses the format's own header.
type descriptor struct {
	name   string
	detect func(fourCC uint32) bool
	new    func(packed []byte, o options) (Decompressor, error)
}

// standaloneRegistry is a compile-time, ordered array, not a runtime
// map: first match wins, and the set of standalone formats is closed.
// Grounded on probe.go's matchAt-based switch, generalized to a data
// table, and on internal/sit/sit.go's readerFor algorithm-ID switch.
var standaloneRegistry = [...]descriptor{
	{name: "XPKF", detect: func(fourCC uint32) bool { return fourCC == 0x58504b46 }, new: newXPKDecompressor},
	{name: "MMCMP", detect: mmcmp.Detect, new: newMMCMPDecompressor},
	{name: "IMP", detect: imp.Detect, new: newIMPDecompressor},
}

func lookupStandalone(fourCC uint32) *descriptor {
	for i := range standaloneRegistry {
		if standaloneRegistry[i].detect(fourCC) {
			return &standaloneRegistry[i]
		}
	}
	return nil
}

func readFourCC(packed []byte) (uint32, bool) {
	if len(packed) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(packed[:4]), true
}

// mmcmpDecompressor adapts internal/mmcmp.Decoder to Decompressor.
type mmcmpDecompressor struct{ dec *mmcmp.Decoder }

func newMMCMPDecompressor(packed []byte, o options) (Decompressor, error) {
	dec, err := mmcmp.New(packed)
	if err != nil {
		return nil, translateMMCMPErr(err)
	}
	return &mmcmpDecompressor{dec: dec}, nil
}

func (m *mmcmpDecompressor) RawSize() int    { return m.dec.RawSize() }
func (m *mmcmpDecompressor) PackedSize() int { return m.dec.PackedSize() }
func (m *mmcmpDecompressor) Decompress(raw []byte, verify bool) error {
	if err := m.dec.Decompress(raw, verify); err != nil {
		return translateMMCMPErr(err)
	}
	return nil
}

// impDecompressor adapts internal/imp.Decoder to Decompressor. New always
// fails (see internal/imp's doc comment), so this type is never actually
// reached in practice, but it keeps the registry's shape uniform.
type impDecompressor struct{ dec *imp.Decoder }

func newIMPDecompressor(packed []byte, o options) (Decompressor, error) {
	dec, err := imp.New(packed)
	if err != nil {
		return nil, fmt.Errorf("%w", ErrUnimplementedAlgorithm)
	}
	return &impDecompressor{dec: dec}, nil
}

func (m *impDecompressor) RawSize() int                          { return m.dec.RawSize() }
func (m *impDecompressor) PackedSize() int                       { return m.dec.PackedSize() }
func (m *impDecompressor) Decompress(raw []byte, verify bool) error { return fmt.Errorf("%w", ErrUnimplementedAlgorithm) }

// xpkDecompressor wraps internal/xpk's outer-container parsing.
// internal/xpk.NewOuter resolves the inner decoder (following any
// chained XPK nesting) eagerly at construction, so RawSize is known
// without needing a dry run of Decompress.
type xpkDecompressor struct {
	dec *xpk.OuterDecoder
	hdr xpk.Header
}

func newXPKDecompressor(packed []byte, o options) (Decompressor, error) {
	hdr, err := xpk.ParseHeader(packed)
	if err != nil {
		return nil, translateXPKErr(err)
	}
	dec, err := xpk.NewOuter(packed, 0, o.maxRecursion)
	if err != nil {
		return nil, translateXPKErr(err)
	}
	return &xpkDecompressor{dec: dec, hdr: hdr}, nil
}

func (x *xpkDecompressor) RawSize() int    { return x.dec.RawSize() }
func (x *xpkDecompressor) PackedSize() int { return x.hdr.HeaderLen + x.hdr.PackedSize }
func (x *xpkDecompressor) Decompress(raw []byte, verify bool) error {
	if err := x.dec.Decompress(raw, verify); err != nil {
		return translateXPKErr(err)
	}
	return nil
}
