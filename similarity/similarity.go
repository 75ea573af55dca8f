// Package similarity scores how close two food photo fingerprints are.
package similarity

import (
	"math"

	"foodmatch/fingerprint"
)

const (
	// DefaultMaxHashDistance is the largest summed Hamming distance that
	// still counts as a match.
	DefaultMaxHashDistance = 12

	// DefaultMinHistogramSimilarity is the smallest histogram cosine
	// similarity that still counts as a match.
	DefaultMinHistogramSimilarity = 0.80
)

// Thresholds holds the tunable match bounds. Both bounds are inclusive.
type Thresholds struct {
	MaxHashDistance        int
	MinHistogramSimilarity float64
}

// DefaultThresholds returns the bounds the matcher was tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxHashDistance:        DefaultMaxHashDistance,
		MinHistogramSimilarity: DefaultMinHistogramSimilarity,
	}
}

// Score is the outcome of comparing two fingerprints.
type Score struct {
	Match bool

	// Confidence is in [0,1] for matches. For non-matches it is half the
	// histogram similarity and carries no evidence of similarity.
	Confidence float64

	HashDistance        int
	HistogramSimilarity float64
}

// Score compares a query fingerprint against a candidate.
func (t Thresholds) Score(query, candidate fingerprint.Fingerprint) Score {
	return t.Evaluate(HashDistance(query, candidate), CosineSimilarity(query.Histogram, candidate.Histogram))
}

// Evaluate applies the match decision and the confidence formula to raw
// distance and similarity values.
func (t Thresholds) Evaluate(hashDistance int, histogramSimilarity float64) Score {
	s := Score{
		HashDistance:        hashDistance,
		HistogramSimilarity: histogramSimilarity,
	}
	if hashDistance > t.MaxHashDistance || histogramSimilarity < t.MinHistogramSimilarity {
		s.Confidence = 0.5 * histogramSimilarity
		return s
	}

	s.Match = true
	s.Confidence = 0.5*t.hashCloseness(hashDistance) + 0.5*histogramSimilarity
	return s
}

// hashCloseness maps a matching distance to 1 (identical) .. 0 (at the bound).
func (t Thresholds) hashCloseness(hashDistance int) float64 {
	if t.MaxHashDistance <= 0 {
		if hashDistance == 0 {
			return 1
		}
		return 0
	}
	return 1 - math.Min(float64(hashDistance)/float64(t.MaxHashDistance), 1)
}

// HashDistance sums the Hamming distances of the perceptual, average and
// difference hash pairs.
func HashDistance(a, b fingerprint.Fingerprint) int {
	return a.PerceptualHash.Distance(b.PerceptualHash) +
		a.AverageHash.Distance(b.AverageHash) +
		a.DifferenceHash.Distance(b.DifferenceHash)
}

// CosineSimilarity returns dot(a,b) / (|a||b| + epsilon). Vectors of
// different length are compared over their common prefix.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot / (fingerprint.L2Norm(a)*fingerprint.L2Norm(b) + fingerprint.Epsilon)
}
