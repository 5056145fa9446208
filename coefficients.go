package stegimg

import (
	"fmt"

	"github.com/stegimg/stegimg/internal/jsteg"
)

// Coefficients is a decoded lossy carrier: the quantized DCT coefficients of
// one color component (conventionally luminance), one 64-entry slice per 8x8
// block in raster order, coefficients in natural (row-major) order within a
// block. Entropy coding and the surrounding JPEG bitstream belong to the
// caller's codec.
type Coefficients struct {
	Blocks [][]int32
}

// NewCoefficients wraps caller-supplied blocks. Every block must hold
// exactly 64 coefficients.
func NewCoefficients(blocks [][]int32) (*Coefficients, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no coefficient blocks", ErrUnsupportedCarrier)
	}
	for i, b := range blocks {
		if len(b) != jsteg.BlockSize {
			return nil, fmt.Errorf("%w: block %d has %d coefficients, want %d", ErrUnsupportedCarrier, i, len(b), jsteg.BlockSize)
		}
	}
	return &Coefficients{Blocks: blocks}, nil
}

// Clone returns an independent copy of the carrier.
func (c *Coefficients) Clone() *Coefficients {
	blocks := make([][]int32, len(c.Blocks))
	for i, b := range c.Blocks {
		blocks[i] = make([]int32, len(b))
		copy(blocks[i], b)
	}
	return &Coefficients{Blocks: blocks}
}
