package stegimg

import "errors"

var (
	// ErrCapacity indicates the framed payload exceeds the carrier's
	// capacity. A failed embed leaves the carrier unmodified.
	ErrCapacity = errors.New("payload exceeds carrier capacity")

	// ErrFormat indicates the length header is inconsistent with the
	// actual carrier size.
	ErrFormat = errors.New("invalid payload frame for this carrier")

	// ErrIntegrity indicates the extracted payload failed its checksum:
	// wrong carrier, wrong algorithm or policy, or a carrier modified
	// after embedding.
	ErrIntegrity = errors.New("extracted payload failed integrity check")

	// ErrUnsupportedCarrier indicates the carrier's layout is incompatible
	// with the requested algorithm.
	ErrUnsupportedCarrier = errors.New("carrier unsupported by algorithm")
)
