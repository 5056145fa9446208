package stegimg

import (
	"fmt"

	"github.com/stegimg/stegimg/internal/lsbr"
)

type Option func(*Steg) error

// WithChannels selects which channel indices of each pixel carry payload
// bits, in traversal order. The default is the first three channels (RGB),
// excluding alpha. The same selection must be passed to both the embedding
// and the extracting side.
func WithChannels(channels ...int) Option {
	return func(s *Steg) error {
		if len(channels) == 0 {
			return fmt.Errorf("%w: no channels selected", ErrUnsupportedCarrier)
		}
		s.policy.Channels = channels
		s.policy.Version = lsbr.PolicyVersion1
		return nil
	}
}

// WithBitsPerChannel uses the lowest n bit planes of every visited channel
// instead of only the least significant one. Larger values raise capacity
// but make the embedding visually and statistically more prominent.
func WithBitsPerChannel(n int) Option {
	return func(s *Steg) error {
		if n < 1 || n > 8 {
			return fmt.Errorf("%w: bits per channel %d outside 1..8", ErrUnsupportedCarrier, n)
		}
		s.policy.BitsPerChannel = n
		s.policy.Version = lsbr.PolicyVersion1
		return nil
	}
}

// WithECC protects the payload body with a Golay(24,12) error correcting
// code, doubling its embedded size. Single-bit damage per codeword, such as
// light carrier retouching, becomes recoverable. Both sides of a round trip
// must agree on this option; it is not recorded in the stream.
func WithECC() Option {
	return func(s *Steg) error {
		s.frame.ECC = true
		return nil
	}
}
