package stego

import "errors"

var (
	// ErrCapacityExceeded: the payload needs more bits than the carrier offers.
	ErrCapacityExceeded = errors.New("payload exceeds carrier capacity")

	// ErrDimensionMismatch: zero-sized carrier, malformed pixel buffer or
	// non-positive block dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidBitDepth: a configured bit depth outside 1..8.
	ErrInvalidBitDepth = errors.New("invalid bit depth")

	// ErrInvalidThreshold: a negative, NaN or infinite edge threshold.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrChannelOverflow: a write that would not fit in the channel's low bits.
	ErrChannelOverflow = errors.New("channel overflow")

	// ErrUnstableClassification: embedding moved at least one block across the
	// edge threshold, so extraction would walk a different bit layout.
	ErrUnstableClassification = errors.New("embedding changed block classification")
)
