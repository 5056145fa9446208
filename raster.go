package stegimg

import (
	"fmt"
	"image"
	"image/color"
)

// Raster is a decoded lossless carrier: row-major, channel-interleaved
// 8-bit samples. It is owned exclusively by the embed, extract or detect
// call operating on it; embedding mutates Pix in place.
type Raster struct {
	Width, Height, Channels int
	Pix                     []uint8
}

// NewRaster wraps caller-supplied samples. len(pix) must be exactly
// width*height*channels.
func NewRaster(width, height, channels int, pix []uint8) (*Raster, error) {
	if width < 1 || height < 1 || channels < 1 {
		return nil, fmt.Errorf("%w: %dx%d with %d channels", ErrUnsupportedCarrier, width, height, channels)
	}
	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("%w: %d samples, want %d", ErrUnsupportedCarrier, len(pix), width*height*channels)
	}
	return &Raster{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// FromImage decodes src into a 4-channel (RGBA) raster. Samples are
// non-premultiplied so that low-order bits survive the round trip through
// ToImage.
func FromImage(src image.Image) *Raster {
	bounds := src.Bounds()
	r := &Raster{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: 4,
	}
	r.Pix = make([]uint8, r.Width*r.Height*4)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			r.Pix[idx+0] = c.R
			r.Pix[idx+1] = c.G
			r.Pix[idx+2] = c.B
			r.Pix[idx+3] = c.A
			idx += 4
		}
	}
	return r
}

// ToImage rebuilds an image from the raster. Only 4-channel rasters can be
// rebuilt; carriers with other layouts belong to the caller's codec.
func (r *Raster) ToImage() (image.Image, error) {
	if r.Channels != 4 {
		return nil, fmt.Errorf("%w: %d-channel raster cannot be rebuilt as RGBA", ErrUnsupportedCarrier, r.Channels)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(dst.Pix, r.Pix)
	return dst, nil
}

// Clone returns an independent copy of the raster.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: pix}
}
