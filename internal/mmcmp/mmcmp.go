// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package mmcmp implements the standalone MMCMP ("ziRCONia") container
// used by ProTracker-family module packers, ported from
// original_source/src/MMCMPDecompressor.cpp.
package mmcmp

import (
	"errors"
	"fmt"

	"github.com/elliotnunn/xpkdecomp/internal/bitio"
	"github.com/elliotnunn/xpkdecomp/internal/bufview"
	"github.com/elliotnunn/xpkdecomp/internal/cursor"
)

var (
	ErrInvalidFormat = errors.New("mmcmp: invalid format")
	ErrDecompression = errors.New("mmcmp: decompression error")
	ErrVerification  = errors.New("mmcmp: checksum mismatch")
)

// Decoder holds the parsed MMCMP block table.
type Decoder struct {
	packed       bufview.View
	blocks       int
	blocksOffset int
	rawSize      int
	packedSize   int
}

func Detect(fourCC uint32) bool { return fourCC == 0x7a695243 } // 'ziRC'

// New parses the MMCMP header and block directory. It does not touch
// sub-block payloads; those are walked during Decompress.
func New(packed []byte) (*Decoder, error) {
	v := bufview.New(packed)
	magic, ok := v.ReadBE32(0)
	sig2, ok2 := v.ReadBE32(4)
	ver, ok3 := v.ReadLE16(8)
	if !ok || !ok2 || !ok3 || magic != 0x7a695243 || sig2 != 0x4f4e6961 || ver != 14 || v.Size() < 24 {
		return nil, fmt.Errorf("%w: bad signature or version", ErrInvalidFormat)
	}
	blocks16, _ := v.ReadLE16(12)
	blocksOffset32, _ := v.ReadLE32(18)
	rawSize32, _ := v.ReadLE32(14)
	blocks := int(blocks16)
	blocksOffset := int(blocksOffset32)
	rawSize := int(rawSize32)

	if blocksOffset+blocks*4 > v.Size() {
		return nil, fmt.Errorf("%w: block directory exceeds buffer", ErrInvalidFormat)
	}

	packedSize := 0
	for i := 0; i < blocks; i++ {
		blockAddr32, ok := v.ReadLE32(blocksOffset + i*4)
		if !ok {
			return nil, fmt.Errorf("%w: truncated block directory", ErrInvalidFormat)
		}
		blockAddr := int(blockAddr32)
		if blockAddr+20 >= v.Size() {
			return nil, fmt.Errorf("%w: block address out of range", ErrInvalidFormat)
		}
		packedLen, ok1 := v.ReadLE32(blockAddr + 4)
		subBlocks, ok2 := v.ReadLE16(blockAddr + 12)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: truncated block header", ErrInvalidFormat)
		}
		blockSize := int(packedLen) + int(subBlocks)*8 + 20
		if blockAddr+blockSize > packedSize {
			packedSize = blockAddr + blockSize
		}
	}
	if packedSize > v.Size() {
		return nil, fmt.Errorf("%w: block table overruns buffer", ErrInvalidFormat)
	}

	return &Decoder{packed: v, blocks: blocks, blocksOffset: blocksOffset, rawSize: rawSize, packedSize: packedSize}, nil
}

func (d *Decoder) RawSize() int    { return d.rawSize }
func (d *Decoder) PackedSize() int { return d.packedSize }

var value8Thresholds = [8]uint32{0x1, 0x3, 0x7, 0xf, 0x1e, 0x3c, 0x78, 0xf8}
var extra8Bits = [8]int{3, 3, 3, 3, 2, 1, 0, 0}

var value16Thresholds = [16]uint32{
	0x1, 0x3, 0x7, 0xf, 0x1e, 0x3c, 0x78, 0xf0,
	0x1f0, 0x3f0, 0x7f0, 0xff0, 0x1ff0, 0x3ff0, 0x7ff0, 0xfff0,
}
var extra16Bits = [16]int{4, 4, 4, 4, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// Decompress fills raw (which must be at least RawSize long) block by
// block. MMCMP allows gaps between sub-blocks, so raw is zeroed first,
// matching the original's defensive memset.
func (d *Decoder) Decompress(raw []byte, verify bool) error {
	if len(raw) < d.rawSize {
		return fmt.Errorf("%w: raw buffer too small", ErrDecompression)
	}
	for i := range raw {
		raw[i] = 0
	}

	for i := 0; i < d.blocks; i++ {
		blockAddr32, _ := d.packed.ReadLE32(d.blocksOffset + i*4)
		blockAddr := int(blockAddr32)

		unpackedBlockSize32, _ := d.packed.ReadLE32(blockAddr)
		packedBlockSize32, _ := d.packed.ReadLE32(blockAddr + 4)
		fileChecksum, _ := d.packed.ReadLE32(blockAddr + 8)
		subBlocks16, _ := d.packed.ReadLE16(blockAddr + 12)
		flags16, _ := d.packed.ReadLE16(blockAddr + 14)
		packTableSize16, _ := d.packed.ReadLE16(blockAddr + 16)
		bitCount16, _ := d.packed.ReadLE16(blockAddr + 18)

		unpackedBlockSize := int(unpackedBlockSize32)
		packedBlockSize := int(packedBlockSize32)
		subBlocks := int(subBlocks16)
		flags := int(flags16)
		packTableSize := int(packTableSize16)
		bitCount := int(bitCount16)

		if packTableSize > packedBlockSize {
			return fmt.Errorf("%w: pack table larger than packed block", ErrDecompression)
		}

		streamStart := blockAddr + subBlocks*8 + 20 + packTableSize
		streamEnd := blockAddr + subBlocks*8 + 20 + packedBlockSize
		streamCursor := cursor.NewForward(d.packed, streamStart, streamEnd)
		bits := bitio.NewLSBReader(streamCursor, bitio.Refill1)
		readBits := func(n int) (uint32, error) {
			if n == 0 {
				return 0, nil
			}
			return bits.ReadBits(n)
		}

		currentSubBlock := 0
		outputOffset := 0
		outputSize := 0
		readNextSubBlock := func() error {
			if currentSubBlock >= subBlocks {
				return fmt.Errorf("%w: ran out of sub-blocks", ErrDecompression)
			}
			off32, _ := d.packed.ReadLE32(blockAddr + currentSubBlock*8 + 20)
			sz32, _ := d.packed.ReadLE32(blockAddr + currentSubBlock*8 + 24)
			outputOffset = int(off32)
			outputSize = int(sz32)
			if outputOffset+outputSize > d.rawSize {
				return fmt.Errorf("%w: sub-block exceeds raw size", ErrDecompression)
			}
			currentSubBlock++
			return nil
		}

		checksum := uint32(0)
		writeByte := func(value byte) error {
			for outputSize == 0 {
				if err := readNextSubBlock(); err != nil {
					return err
				}
			}
			outputSize--
			raw[outputOffset] = value
			outputOffset++
			if verify {
				checksum ^= uint32(value)
				checksum = checksum<<1 | checksum>>31
			}
			return nil
		}

		var err error
		switch {
		case flags&0x1 == 0:
			// not compressed: raw bytes, read directly off the cursor
			for j := 0; j < packedBlockSize; j++ {
				b, e := streamCursor.ReadByte()
				if e != nil {
					err = fmt.Errorf("%w: %v", ErrDecompression, e)
					break
				}
				if err = writeByte(b); err != nil {
					break
				}
			}

		case flags&0x4 == 0:
			// 8-bit compression
			if bitCount >= 8 {
				err = fmt.Errorf("%w: initial bit count out of range", ErrDecompression)
				break
			}
			tableOff := blockAddr + subBlocks*8 + 20
			table, ok := d.packed.Slice(tableOff, packTableSize)
			if !ok {
				err = fmt.Errorf("%w: pack table exceeds buffer", ErrDecompression)
				break
			}
			var oldValue [2]byte
			chIndex := 0
		loop8:
			for j := 0; j < unpackedBlockSize; {
				value, e := readBits(bitCount + 1)
				if e != nil {
					err = fmt.Errorf("%w: %v", ErrDecompression, e)
					break loop8
				}
				if value >= value8Thresholds[bitCount] {
					extra, e := readBits(extra8Bits[bitCount])
					if e != nil {
						err = fmt.Errorf("%w: %v", ErrDecompression, e)
						break loop8
					}
					newBitCount := extra + (value-value8Thresholds[bitCount])<<uint(extra8Bits[bitCount])
					if uint32(bitCount) != newBitCount {
						bitCount = int(newBitCount & 0x7)
						continue
					}
					extra3, e := readBits(3)
					if e != nil {
						err = fmt.Errorf("%w: %v", ErrDecompression, e)
						break loop8
					}
					value = 0xf8 + extra3
					if value == 0xff {
						stop, e := readBits(1)
						if e != nil {
							err = fmt.Errorf("%w: %v", ErrDecompression, e)
							break loop8
						}
						if stop != 0 {
							break loop8
						}
					}
				}
				if int(value) >= packTableSize {
					err = fmt.Errorf("%w: pack table index out of range", ErrDecompression)
					break loop8
				}
				out := table[value]
				if flags&0x2 != 0 {
					out += oldValue[chIndex]
					oldValue[chIndex] = out
					if flags&0x100 != 0 {
						chIndex ^= 1
					}
				}
				if err = writeByte(out); err != nil {
					break loop8
				}
				j++
			}

		default:
			// 16-bit compression
			if bitCount >= 16 {
				err = fmt.Errorf("%w: initial bit count out of range", ErrDecompression)
				break
			}
			var oldValue [2]int16
			chIndex := 0
		loop16:
			for j := 0; j < unpackedBlockSize; {
				value, e := readBits(bitCount + 1)
				if e != nil {
					err = fmt.Errorf("%w: %v", ErrDecompression, e)
					break loop16
				}
				if value >= value16Thresholds[bitCount] {
					extra, e := readBits(extra16Bits[bitCount])
					if e != nil {
						err = fmt.Errorf("%w: %v", ErrDecompression, e)
						break loop16
					}
					newBitCount := extra + (value-value16Thresholds[bitCount])<<uint(extra16Bits[bitCount])
					if uint32(bitCount) != newBitCount {
						bitCount = int(newBitCount & 0xf)
						continue
					}
					extra4, e := readBits(4)
					if e != nil {
						err = fmt.Errorf("%w: %v", ErrDecompression, e)
						break loop16
					}
					value = 0xfff0 + extra4
					if value == 0xffff {
						stop, e := readBits(1)
						if e != nil {
							err = fmt.Errorf("%w: %v", ErrDecompression, e)
							break loop16
						}
						if stop != 0 {
							break loop16
						}
					}
				}
				signed := int32(value)
				if signed&1 != 0 {
					signed = -signed - 1
				}
				signed >>= 1
				if flags&0x2 != 0 {
					signed += int32(oldValue[chIndex])
					oldValue[chIndex] = int16(signed)
					if flags&0x100 != 0 {
						chIndex ^= 1
					}
				}
				if flags&0x200 != 0 {
					signed ^= 0x8000
				}
				if flags&0x400 != 0 {
					if err = writeByte(byte(signed >> 8)); err != nil {
						break loop16
					}
					if err = writeByte(byte(signed)); err != nil {
						break loop16
					}
				} else {
					if err = writeByte(byte(signed)); err != nil {
						break loop16
					}
					if err = writeByte(byte(signed >> 8)); err != nil {
						break loop16
					}
				}
				j += 2
			}
		}
		if err != nil {
			return err
		}

		if verify && checksum != fileChecksum {
			return fmt.Errorf("%w: block %d", ErrVerification, i)
		}
	}
	return nil
}
