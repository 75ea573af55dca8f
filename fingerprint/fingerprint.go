// Package fingerprint turns food photos into compact, comparable
// fingerprints: three 64-bit perceptual hash codes and a normalized color
// histogram.
package fingerprint

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

const (
	// HashBits is the bit length of every hash code.
	HashBits = 64

	// HistogramBins is the number of bins per color channel.
	HistogramBins = 256

	// HistogramSize is the length of the concatenated R, G, B histogram.
	HistogramSize = 3 * HistogramBins

	// Epsilon guards normalization and cosine similarity against
	// all-zero vectors.
	Epsilon = 1e-8
)

var (
	// ErrInvalidImage reports input that cannot be decoded as a raster image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrCorruptRecord reports a stored fingerprint that cannot be parsed.
	ErrCorruptRecord = errors.New("corrupt fingerprint record")
)

// Hash is a 64-bit hash code, bits packed row-major with the first sample
// in the most significant bit.
type Hash uint64

// Distance returns the Hamming distance between two hash codes.
func (h Hash) Distance(other Hash) int {
	return bits.OnesCount64(uint64(h ^ other))
}

// Hex renders the hash as 16 lowercase hex digits.
func (h Hash) Hex() string {
	return fmt.Sprintf("%016x", uint64(h))
}

func (h Hash) String() string {
	return h.Hex()
}

// ParseHash parses a 16 digit hex hash code.
func ParseHash(s string) (Hash, error) {
	if len(s) != HashBits/4 {
		return 0, fmt.Errorf("%w: hash %q has %d hex digits, want %d", ErrCorruptRecord, s, len(s), HashBits/4)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: hash %q: %v", ErrCorruptRecord, s, err)
	}
	return Hash(v), nil
}

// Fingerprint is the feature representation of one photo at extraction time.
type Fingerprint struct {
	PerceptualHash Hash
	AverageHash    Hash
	DifferenceHash Hash

	// Histogram holds HistogramSize values with unit L2 norm.
	Histogram []float64
}
