package fingerprint

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Encoded is the storage form of a Fingerprint: hex hash codes and a JSON
// array histogram.
type Encoded struct {
	PerceptualHash string `json:"phash"`
	AverageHash    string `json:"ahash"`
	DifferenceHash string `json:"dhash"`
	Histogram      string `json:"hist_json"`
}

// Encode renders the fingerprint for storage.
func (f Fingerprint) Encode() (Encoded, error) {
	if len(f.Histogram) != HistogramSize {
		return Encoded{}, fmt.Errorf("histogram has %d values, want %d", len(f.Histogram), HistogramSize)
	}
	hist, err := json.Marshal(f.Histogram)
	if err != nil {
		return Encoded{}, fmt.Errorf("cannot encode histogram: %v", err)
	}
	return Encoded{
		PerceptualHash: f.PerceptualHash.Hex(),
		AverageHash:    f.AverageHash.Hex(),
		DifferenceHash: f.DifferenceHash.Hex(),
		Histogram:      string(hist),
	}, nil
}

// Decode parses a stored fingerprint. Every failure wraps ErrCorruptRecord.
func (e Encoded) Decode() (Fingerprint, error) {
	var (
		f   Fingerprint
		err error
	)
	if f.PerceptualHash, err = ParseHash(e.PerceptualHash); err != nil {
		return Fingerprint{}, fmt.Errorf("perceptual hash: %w", err)
	}
	if f.AverageHash, err = ParseHash(e.AverageHash); err != nil {
		return Fingerprint{}, fmt.Errorf("average hash: %w", err)
	}
	if f.DifferenceHash, err = ParseHash(e.DifferenceHash); err != nil {
		return Fingerprint{}, fmt.Errorf("difference hash: %w", err)
	}

	if err := json.Unmarshal([]byte(e.Histogram), &f.Histogram); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: histogram: %v", ErrCorruptRecord, err)
	}
	if len(f.Histogram) != HistogramSize {
		return Fingerprint{}, fmt.Errorf("%w: histogram has %d values, want %d", ErrCorruptRecord, len(f.Histogram), HistogramSize)
	}
	for i, v := range f.Histogram {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Fingerprint{}, fmt.Errorf("%w: histogram value %d is %v", ErrCorruptRecord, i, v)
		}
	}
	return f, nil
}
