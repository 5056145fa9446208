// Package lsbr embeds and extracts bit streams in the least significant
// bits of raster samples. Traversal is row-major over pixels with a fixed
// channel order; the order is owned by an explicit Policy value so that the
// embedding and extracting side can be asserted to agree.
package lsbr

import (
	"errors"
	"fmt"
)

var ErrExhausted = errors.New("carrier has no samples left for the remaining bits")

// PolicyVersion1 is the only traversal scheme currently defined: pixels in
// row-major order, the policy's channels in listed order within each pixel,
// bit planes from the least significant upward within each channel.
const PolicyVersion1 = 1

// Policy is the shared embed/extract contract. Both sides must use an equal
// Policy on the same carrier; a divergence corrupts recovered data silently.
type Policy struct {
	Version        int
	Channels       []int // channel indices visited per pixel, in order
	BitsPerChannel int   // low bit planes used per visited channel
}

// DefaultPolicy visits the first three channels (RGB, alpha excluded) with
// one bit per channel.
func DefaultPolicy() Policy {
	return Policy{
		Version:        PolicyVersion1,
		Channels:       []int{0, 1, 2},
		BitsPerChannel: 1,
	}
}

func (p Policy) validate(channels int) error {
	if p.Version != PolicyVersion1 {
		return fmt.Errorf("unknown policy version %d", p.Version)
	}
	if len(p.Channels) == 0 || p.BitsPerChannel < 1 || p.BitsPerChannel > 8 {
		return fmt.Errorf("invalid policy: channels %v, bits per channel %d", p.Channels, p.BitsPerChannel)
	}
	for _, c := range p.Channels {
		if c < 0 || c >= channels {
			return fmt.Errorf("policy channel %d out of range for %d-channel carrier", c, channels)
		}
	}
	return nil
}

// Image is a decoded raster carrier: row-major, channel-interleaved samples.
type Image struct {
	Width, Height, Channels int
	Pix                     []uint8
}

// Capacity reports the number of bits the carrier can hold under p,
// before framing overhead.
func Capacity(img Image, p Policy) int {
	return img.Width * img.Height * len(p.Channels) * p.BitsPerChannel
}

// cursor walks the policy's sample/bit-plane sequence.
type cursor struct {
	img Image
	p   Policy
	at  int // index into the visit sequence
}

// sample returns the Pix offset and bit plane of visit position i.
func (c *cursor) sample(i int) (offset, plane int) {
	perPixel := len(c.p.Channels) * c.p.BitsPerChannel
	pixel := i / perPixel
	rest := i % perPixel
	channel := c.p.Channels[rest/c.p.BitsPerChannel]
	plane = rest % c.p.BitsPerChannel
	return pixel*c.img.Channels + channel, plane
}

func (c *cursor) limit() int {
	return Capacity(c.img, c.p)
}

// Writer embeds bits into a carrier it mutates in place.
type Writer struct {
	cursor
}

func NewWriter(img Image, p Policy) (*Writer, error) {
	if err := p.validate(img.Channels); err != nil {
		return nil, err
	}
	return &Writer{cursor{img: img, p: p}}, nil
}

// WriteBits replaces the next len(bits) visited bit planes with bits,
// leaving all later samples untouched. The carrier is not modified at all
// when bits does not fit.
func (w *Writer) WriteBits(bits []bool) error {
	if w.at+len(bits) > w.limit() {
		return fmt.Errorf("%w: %d bits at position %d, capacity %d", ErrExhausted, len(bits), w.at, w.limit())
	}
	for _, bit := range bits {
		offset, plane := w.sample(w.at)
		v := w.img.Pix[offset] &^ (1 << plane)
		if bit {
			v |= 1 << plane
		}
		w.img.Pix[offset] = v
		w.at++
	}
	return nil
}

// Reader extracts bits with the identical traversal. It never mutates the
// carrier.
type Reader struct {
	cursor
}

func NewReader(img Image, p Policy) (*Reader, error) {
	if err := p.validate(img.Channels); err != nil {
		return nil, err
	}
	return &Reader{cursor{img: img, p: p}}, nil
}

// ReadBits returns the next n visited bit planes.
func (r *Reader) ReadBits(n int) ([]bool, error) {
	if r.at+n > r.limit() {
		return nil, fmt.Errorf("%w: %d bits at position %d, capacity %d", ErrExhausted, n, r.at, r.limit())
	}
	bits := make([]bool, n)
	for i := range bits {
		offset, plane := r.sample(r.at)
		bits[i] = r.img.Pix[offset]&(1<<plane) != 0
		r.at++
	}
	return bits, nil
}

// Samples returns the visited channel values in traversal order, one byte
// per (pixel, channel) pair regardless of BitsPerChannel. The detector scans
// this sequence.
func Samples(img Image, p Policy) []uint8 {
	out := make([]uint8, 0, img.Width*img.Height*len(p.Channels))
	for pixel := 0; pixel < img.Width*img.Height; pixel++ {
		for _, c := range p.Channels {
			out = append(out, img.Pix[pixel*img.Channels+c])
		}
	}
	return out
}
