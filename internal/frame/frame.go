// Package frame converts payload bytes to and from the self-describing bit
// stream that the embedding engines carry: a 32-bit big-endian byte-count
// header, a 16-bit checksum and the payload body, MSB-first per byte.
package frame

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/yyyoichi/bitstream-go"
	"github.com/yyyoichi/golay"
)

const (
	// LengthBits is the width of the byte-count header field.
	LengthBits = 32
	// ChecksumBits is the width of the checksum field, the low half of the
	// IEEE CRC-32 of the raw payload.
	ChecksumBits = 16
	// HeaderBits is the total overhead preceding the body.
	HeaderBits = LengthBits + ChecksumBits
)

var (
	ErrFormat    = errors.New("declared length inconsistent with carrier capacity")
	ErrIntegrity = errors.New("payload checksum mismatch")
)

// Config selects the body encoding. It must be identical between the
// encoding and decoding side; it is not recorded in the stream.
type Config struct {
	// ECC protects the body with a Golay(24,12) code.
	ECC bool
}

// Header is the fixed-width prefix of every framed stream. It is decodable
// on its own, before any body bit has been read.
type Header struct {
	Length   uint32 // payload size in bytes, before any ECC expansion
	Checksum uint16
}

func checksum(payload []byte) uint16 {
	return uint16(crc32.ChecksumIEEE(payload) & 0xffff)
}

// Encode frames payload into a bit sequence. An empty payload is valid and
// yields the header alone.
func Encode(payload []byte, cfg Config) []bool {
	w := bitstream.NewBitWriter[uint64](0, 0)
	n := uint32(len(payload))
	w.Write8(0, 8, uint8(n>>24))
	w.Write8(0, 8, uint8(n>>16))
	w.Write8(0, 8, uint8(n>>8))
	w.Write8(0, 8, uint8(n))
	sum := checksum(payload)
	w.Write8(0, 8, uint8(sum>>8))
	w.Write8(0, 8, uint8(sum))
	for _, b := range encodeBody(payload, cfg) {
		w.WriteBool(b)
	}
	return readBools(w.Data(), w.Bits())
}

// encodeBody returns the body bit sequence for payload under cfg.
func encodeBody(payload []byte, cfg Config) []bool {
	w := bitstream.NewBitWriter[uint64](0, 0)
	for _, b := range payload {
		w.Write8(0, 8, b)
	}
	if !cfg.ECC || w.Bits() == 0 {
		return readBools(w.Data(), w.Bits())
	}
	var encoded []uint64
	enc := golay.NewEncoder(&encoded)
	_ = enc.Encode(w.Data(), w.Bits())
	return readBools(encoded, enc.Bits())
}

// BodyBits reports how many bits follow the header for a payload of the
// given byte count.
func BodyBits(payloadLen int, cfg Config) int {
	if cfg.ECC && payloadLen > 0 {
		return golay.EncodedBits(payloadLen * 8)
	}
	return payloadLen * 8
}

// TotalBits reports the full framed size of a payload of the given byte
// count, header included.
func TotalBits(payloadLen int, cfg Config) int {
	return HeaderBits + BodyBits(payloadLen, cfg)
}

// ParseHeader reads the fixed-width header from exactly HeaderBits bits.
func ParseHeader(bits []bool) (Header, error) {
	if len(bits) != HeaderBits {
		return Header{}, fmt.Errorf("%w: got %d header bits, want %d", ErrFormat, len(bits), HeaderBits)
	}
	r := boolReader(bits)
	var h Header
	for i := 0; i < 4; i++ {
		h.Length = h.Length<<8 | uint32(r.Read8R(8, i))
	}
	for i := 4; i < 6; i++ {
		h.Checksum = h.Checksum<<8 | uint16(r.Read8R(8, i))
	}
	return h, nil
}

// Validate checks the declared body against the number of bits the carrier
// can still yield after the header.
func (h Header) Validate(remainingBits int, cfg Config) error {
	if need := BodyBits(int(h.Length), cfg); need > remainingBits {
		return fmt.Errorf("%w: header declares %d body bits, carrier holds %d", ErrFormat, need, remainingBits)
	}
	return nil
}

// DecodeBody reassembles and verifies the payload from the body bits that
// followed h. The payload is returned only after the checksum matches.
func DecodeBody(h Header, bits []bool, cfg Config) ([]byte, error) {
	if want := BodyBits(int(h.Length), cfg); len(bits) != want {
		return nil, fmt.Errorf("%w: got %d body bits, want %d", ErrFormat, len(bits), want)
	}
	r := boolReader(bits)
	if cfg.ECC && h.Length > 0 {
		var decoded []uint64
		dec := golay.NewDecoder(r.Data(), len(bits))
		if err := dec.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
		}
		r = bitstream.NewBitReader(decoded, 0, 0)
		r.SetBits(int(h.Length) * 8)
	}
	payload := make([]byte, h.Length)
	for i := range payload {
		payload[i] = r.Read8R(8, i)
	}
	if got := checksum(payload); got != h.Checksum {
		return nil, fmt.Errorf("%w: checksum %#04x, header declares %#04x", ErrIntegrity, got, h.Checksum)
	}
	return payload, nil
}

func boolReader(bits []bool) *bitstream.BitReader[uint64] {
	w := bitstream.NewBitWriter[uint64](0, 0)
	for _, b := range bits {
		w.WriteBool(b)
	}
	r := bitstream.NewBitReader(w.Data(), 0, 0)
	r.SetBits(len(bits))
	return r
}

func readBools(data []uint64, n int) []bool {
	r := bitstream.NewBitReader(data, 0, 0)
	r.SetBits(n)
	bits := make([]bool, n)
	for i := range bits {
		bits[i], _ = r.ReadBitAt(i)
	}
	return bits
}
