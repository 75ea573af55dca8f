// Package matcher picks the best previously logged food item for a new
// photo out of a user's bounded history.
package matcher

import (
	"math"

	"foodmatch/fingerprint"
	"foodmatch/similarity"
)

// DefaultWindow bounds how many of the most recent items are scanned.
const DefaultWindow = 1000

// Candidate is one historical item offered as a match source.
type Candidate interface {
	ItemID() int64

	// HasCalories reports whether the item carries a calorie value.
	// Items without one are never returned as a match.
	HasCalories() bool

	// Fingerprint decodes the stored fingerprint. Errors wrapping
	// fingerprint.ErrCorruptRecord make the selector skip the candidate.
	Fingerprint() (fingerprint.Fingerprint, error)
}

// Skipped records a candidate that was dropped because its stored
// fingerprint could not be decoded.
type Skipped struct {
	ItemID int64
	Err    error
}

// Result is the outcome of one matching attempt. When Matched is false the
// remaining score fields are zero and must not be shown to the user.
type Result struct {
	Matched bool
	ItemID  int64

	// Confidence is rounded to three decimals for display.
	Confidence          float64
	HashDistance        int
	HistogramSimilarity float64

	Scanned int
	Skipped []Skipped
}

// Scorer compares a query fingerprint with one candidate fingerprint.
// similarity.Thresholds is the production implementation.
type Scorer interface {
	Score(query, candidate fingerprint.Fingerprint) similarity.Score
}

// Selector scans candidates with a fixed scorer. The zero value is not
// usable; start from NewSelector.
type Selector struct {
	Scorer Scorer
	Window int
}

// NewSelector returns a selector using the given thresholds and window. A
// non-positive window falls back to DefaultWindow.
func NewSelector(thresholds similarity.Thresholds, window int) Selector {
	if window <= 0 {
		window = DefaultWindow
	}
	return Selector{Scorer: thresholds, Window: window}
}

// SelectBest scores every candidate against the query and returns the best
// match. Candidates are expected newest first; only the first Window of them
// are considered. A candidate replaces the running best when its confidence
// is strictly greater, or equal with a strictly smaller hash distance, so
// the earliest candidate wins any remaining tie.
func (s Selector) SelectBest(query fingerprint.Fingerprint, candidates []Candidate) Result {
	if s.Window > 0 && len(candidates) > s.Window {
		candidates = candidates[:s.Window]
	}

	var (
		result Result
		best   similarity.Score
		found  bool
	)
	for _, c := range candidates {
		if !c.HasCalories() {
			continue
		}
		fp, err := c.Fingerprint()
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{ItemID: c.ItemID(), Err: err})
			continue
		}
		result.Scanned++

		score := s.Scorer.Score(query, fp)
		if !score.Match {
			continue
		}
		if !found || better(score, best) {
			best, found = score, true
			result.ItemID = c.ItemID()
		}
	}

	if !found {
		result.ItemID = 0
		return result
	}
	result.Matched = true
	result.Confidence = roundConfidence(best.Confidence)
	result.HashDistance = best.HashDistance
	result.HistogramSimilarity = best.HistogramSimilarity
	return result
}

// better orders scores by descending confidence, then ascending distance.
func better(a, b similarity.Score) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.HashDistance < b.HashDistance
}

// roundConfidence keeps three decimals, ties to even.
func roundConfidence(c float64) float64 {
	return math.RoundToEven(c*1000) / 1000
}
