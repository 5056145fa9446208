// Package jsteg embeds and extracts bit streams in quantized JPEG DCT
// coefficients. Blocks are traversed in raster order and coefficients within
// a block in standard zig-zag scan order. Coefficients whose value lies in
// {-1, 0, 1} are never touched; that skip set defines the embedding format
// the chi-square detector assumes, so it must hold exactly.
package jsteg

import (
	"errors"
	"fmt"
)

var ErrExhausted = errors.New("carrier has no qualifying coefficients left for the remaining bits")

// BlockSize is the number of coefficients in one 8x8 DCT block.
const BlockSize = 64

// PolicyVersion1: raster block order, zig-zag coefficient order, skip set
// {-1, 0, 1}, magnitude-preserving LSB replacement.
const PolicyVersion1 = 1

// Policy pins the traversal scheme shared by embed and extract.
type Policy struct {
	Version int
}

func DefaultPolicy() Policy {
	return Policy{Version: PolicyVersion1}
}

func (p Policy) validate() error {
	if p.Version != PolicyVersion1 {
		return fmt.Errorf("unknown policy version %d", p.Version)
	}
	return nil
}

// zigzag maps scan position to the natural (row-major) index within a block.
var zigzag = [BlockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// usable reports whether a coefficient carries a payload bit.
func usable(v int32) bool {
	return v > 1 || v < -1
}

// replaceBit overwrites the least significant bit of the coefficient's
// magnitude, keeping the sign. For positive values this matches plain
// two's-complement LSB replacement; for negative values it keeps the result
// out of the skip set (-2 never collapses to -1), which plain
// two's-complement replacement would not.
func replaceBit(v int32, bit bool) int32 {
	mag := v
	if mag < 0 {
		mag = -mag
	}
	mag &^= 1
	if bit {
		mag |= 1
	}
	if v < 0 {
		return -mag
	}
	return mag
}

func readBit(v int32) bool {
	if v < 0 {
		v = -v
	}
	return v&1 == 1
}

// Capacity reports the number of bits the blocks can hold, before framing
// overhead: one per coefficient with magnitude strictly greater than 1.
func Capacity(blocks [][]int32) int {
	n := 0
	for _, block := range blocks {
		for _, v := range block {
			if usable(v) {
				n++
			}
		}
	}
	return n
}

// cursor walks qualifying coefficients in block-raster, zig-zag order.
type cursor struct {
	blocks [][]int32
	block  int // next block
	scan   int // next zig-zag position within block
}

// next advances to the next qualifying coefficient and returns its location.
func (c *cursor) next() (block, idx int, ok bool) {
	for c.block < len(c.blocks) {
		for c.scan < BlockSize {
			idx = zigzag[c.scan]
			c.scan++
			if usable(c.blocks[c.block][idx]) {
				return c.block, idx, true
			}
		}
		c.block++
		c.scan = 0
	}
	return 0, 0, false
}

// fits reports whether n more qualifying coefficients remain. It walks a
// copy; the receiver's position is unchanged.
func (c cursor) fits(n int) bool {
	for ; n > 0; n-- {
		if _, _, ok := c.next(); !ok {
			return false
		}
	}
	return true
}

// Writer embeds bits into coefficient blocks it mutates in place.
type Writer struct {
	cursor
	p Policy
}

func NewWriter(blocks [][]int32, p Policy) (*Writer, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Writer{cursor: cursor{blocks: blocks}, p: p}, nil
}

// WriteBits places bits into the next qualifying coefficients. The blocks
// are not modified at all when bits does not fit in the remaining
// qualifying coefficients.
func (w *Writer) WriteBits(bits []bool) error {
	if !w.cursor.fits(len(bits)) {
		return fmt.Errorf("%w: %d bits requested", ErrExhausted, len(bits))
	}
	for _, bit := range bits {
		block, idx, ok := w.next()
		if !ok {
			return fmt.Errorf("%w: %d bits requested", ErrExhausted, len(bits))
		}
		w.blocks[block][idx] = replaceBit(w.blocks[block][idx], bit)
	}
	return nil
}

// Reader extracts bits with the identical traversal and skip rule. It never
// mutates the blocks.
type Reader struct {
	cursor
	p Policy
}

func NewReader(blocks [][]int32, p Policy) (*Reader, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Reader{cursor: cursor{blocks: blocks}, p: p}, nil
}

// ReadBits returns the LSBs of the next n qualifying coefficients.
func (r *Reader) ReadBits(n int) ([]bool, error) {
	bits := make([]bool, n)
	for i := range bits {
		block, idx, ok := r.next()
		if !ok {
			return nil, fmt.Errorf("%w: %d of %d bits read", ErrExhausted, i, n)
		}
		bits[i] = readBit(r.blocks[block][idx])
	}
	return bits, nil
}

// Coefficients returns the qualifying coefficient values in traversal order.
// The detector scans this sequence.
func Coefficients(blocks [][]int32) []int32 {
	out := make([]int32, 0, Capacity(blocks))
	c := cursor{blocks: blocks}
	for {
		block, idx, ok := c.next()
		if !ok {
			return out
		}
		out = append(out, blocks[block][idx])
	}
}
