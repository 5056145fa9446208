// Package stegimg hides arbitrary binary payloads inside decoded images and
// recovers them later. Two carrier formats are supported: lossless raster
// samples (LSB replacement) and quantized JPEG DCT coefficients (JSTEG).
// A chi-square detector estimates whether a carrier already holds a payload.
//
// The package operates on decoded pixel and coefficient arrays only;
// reading and writing actual image byte streams is the caller's concern.
package stegimg

import (
	"context"
	"fmt"

	"github.com/stegimg/stegimg/internal/frame"
	"github.com/stegimg/stegimg/internal/jsteg"
	"github.com/stegimg/stegimg/internal/lsbr"
)

// EmbedLSB embeds payload into the raster with the specified options.
// This is a convenience function that creates a Steg instance and calls its
// EmbedLSB method.
func EmbedLSB(ctx context.Context, r *Raster, payload []byte, opts ...Option) error {
	s, err := New(opts...)
	if err != nil {
		return err
	}
	return s.EmbedLSB(ctx, r, payload)
}

// ExtractLSB extracts a payload from the raster with the specified options.
// This is a convenience function that creates a Steg instance and calls its
// ExtractLSB method.
func ExtractLSB(ctx context.Context, r *Raster, opts ...Option) ([]byte, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return s.ExtractLSB(ctx, r)
}

// EmbedJSteg embeds payload into the coefficient carrier with the specified
// options.
func EmbedJSteg(ctx context.Context, c *Coefficients, payload []byte, opts ...Option) error {
	s, err := New(opts...)
	if err != nil {
		return err
	}
	return s.EmbedJSteg(ctx, c, payload)
}

// ExtractJSteg extracts a payload from the coefficient carrier with the
// specified options.
func ExtractJSteg(ctx context.Context, c *Coefficients, opts ...Option) ([]byte, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return s.ExtractJSteg(ctx, c)
}

// Steg embeds and extracts framed payloads. The traversal policies and the
// frame configuration it holds form the contract both sides of a round trip
// must share.
type Steg struct {
	policy  lsbr.Policy
	jpolicy jsteg.Policy
	frame   frame.Config
}

// New initializes an embedding/extraction structure. Channel selection,
// bits per channel and ECC can be optionally specified; for default values,
// refer to the init function.
func New(opts ...Option) (*Steg, error) {
	s := new(Steg)
	if err := s.init(opts...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Steg) init(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	def := lsbr.DefaultPolicy()
	if s.policy.Version == 0 {
		s.policy.Version = def.Version
	}
	if s.policy.Channels == nil {
		s.policy.Channels = def.Channels
	}
	if s.policy.BitsPerChannel == 0 {
		s.policy.BitsPerChannel = def.BitsPerChannel
	}
	if s.jpolicy.Version == 0 {
		s.jpolicy = jsteg.DefaultPolicy()
	}
	return nil
}

// CapacityLSB reports the payload bits the raster can hold under the
// configured policy, framing overhead already subtracted. The result is
// stable across calls on an unmutated carrier.
func (s *Steg) CapacityLSB(r *Raster) (int, error) {
	if _, err := lsbr.NewReader(s.image(r), s.policy); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	return s.usableBits(lsbr.Capacity(s.image(r), s.policy)), nil
}

// CapacityJSteg reports the payload bits the coefficient carrier can hold:
// one bit per coefficient with magnitude strictly greater than 1, framing
// overhead already subtracted.
func (s *Steg) CapacityJSteg(c *Coefficients) (int, error) {
	if _, err := jsteg.NewReader(c.Blocks, s.jpolicy); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	return s.usableBits(jsteg.Capacity(c.Blocks)), nil
}

// usableBits converts a raw bit capacity into payload bits, accounting for
// the frame header and any ECC expansion of the body.
func (s *Steg) usableBits(raw int) int {
	if raw <= frame.HeaderBits {
		return 0
	}
	if !s.frame.ECC {
		return raw - frame.HeaderBits
	}
	// ECC expands the body non-linearly; find the largest payload that
	// still frames within raw bits.
	lo, hi := 0, (raw-frame.HeaderBits)/8
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if frame.TotalBits(mid, s.frame) <= raw {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo * 8
}

// EmbedLSB embeds payload into the raster, visiting pixels in row-major
// order and the policy's channels within each pixel. Capacity is validated
// before any sample is written; a failed call leaves the carrier unmodified.
func (s *Steg) EmbedLSB(ctx context.Context, r *Raster, payload []byte) error {
	w, err := lsbr.NewWriter(s.image(r), s.policy)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	raw := lsbr.Capacity(s.image(r), s.policy)
	if need := frame.TotalBits(len(payload), s.frame); need > raw {
		return fmt.Errorf("%w: frame needs %d bits, carrier holds %d", ErrCapacity, need, raw)
	}
	return s.embed(w, payload)
}

// ExtractLSB recovers a payload embedded by EmbedLSB under an equal policy.
func (s *Steg) ExtractLSB(ctx context.Context, r *Raster) ([]byte, error) {
	rd, err := lsbr.NewReader(s.image(r), s.policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	return s.extract(rd, lsbr.Capacity(s.image(r), s.policy))
}

// EmbedJSteg embeds payload into the coefficient carrier, visiting blocks in
// raster order and coefficients in zig-zag order, skipping values in
// {-1, 0, 1}. Capacity is validated before any coefficient is written.
func (s *Steg) EmbedJSteg(ctx context.Context, c *Coefficients, payload []byte) error {
	w, err := jsteg.NewWriter(c.Blocks, s.jpolicy)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	raw := jsteg.Capacity(c.Blocks)
	if need := frame.TotalBits(len(payload), s.frame); need > raw {
		return fmt.Errorf("%w: frame needs %d bits, carrier holds %d", ErrCapacity, need, raw)
	}
	return s.embed(w, payload)
}

// ExtractJSteg recovers a payload embedded by EmbedJSteg.
func (s *Steg) ExtractJSteg(ctx context.Context, c *Coefficients) ([]byte, error) {
	rd, err := jsteg.NewReader(c.Blocks, s.jpolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedCarrier, err)
	}
	return s.extract(rd, jsteg.Capacity(c.Blocks))
}

type bitWriter interface {
	WriteBits([]bool) error
}

type bitReader interface {
	ReadBits(int) ([]bool, error)
}

func (s *Steg) embed(w bitWriter, payload []byte) error {
	if err := w.WriteBits(frame.Encode(payload, s.frame)); err != nil {
		// The capacity check above makes this unreachable for rasters;
		// for coefficient carriers it guards the skip-rule accounting.
		return fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	return nil
}

// extract reads the fixed-width header first, validates the declared length
// against the carrier's capacity and only then reads the body.
func (s *Steg) extract(r bitReader, raw int) ([]byte, error) {
	headerBits, err := r.ReadBits(frame.HeaderBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	h, err := frame.ParseHeader(headerBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if err := h.Validate(raw-frame.HeaderBits, s.frame); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	bodyBits, err := r.ReadBits(frame.BodyBits(int(h.Length), s.frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	payload, err := frame.DecodeBody(h, bodyBits, s.frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	return payload, nil
}

func (s *Steg) image(r *Raster) lsbr.Image {
	return lsbr.Image{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: r.Pix}
}

// RepeatToFill tiles payload with as many whole copies as fit into
// payloadCapacityBits, for watermark-style embedding that covers the entire
// carrier. The capacity is the value reported by CapacityLSB or
// CapacityJSteg.
func RepeatToFill(payload []byte, payloadCapacityBits int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCapacity)
	}
	copies := payloadCapacityBits / 8 / len(payload)
	if copies < 1 {
		return nil, fmt.Errorf("%w: payload of %d bytes does not fit %d usable bits", ErrCapacity, len(payload), payloadCapacityBits)
	}
	out := make([]byte, 0, copies*len(payload))
	for range copies {
		out = append(out, payload...)
	}
	return out, nil
}
