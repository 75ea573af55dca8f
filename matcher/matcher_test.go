package matcher

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"foodmatch/fingerprint"
	"foodmatch/similarity"
)

type fakeCandidate struct {
	id       int64
	fp       fingerprint.Fingerprint
	calories bool
	err      error
}

func (c fakeCandidate) ItemID() int64     { return c.id }
func (c fakeCandidate) HasCalories() bool { return c.calories }
func (c fakeCandidate) Fingerprint() (fingerprint.Fingerprint, error) {
	return c.fp, c.err
}

// scriptedScorer returns a fixed score per candidate, keyed by the
// candidate's perceptual hash.
type scriptedScorer map[fingerprint.Hash]similarity.Score

func (s scriptedScorer) Score(_, candidate fingerprint.Fingerprint) similarity.Score {
	return s[candidate.PerceptualHash]
}

func scripted(id int64) fakeCandidate {
	return fakeCandidate{id: id, calories: true, fp: fingerprint.Fingerprint{PerceptualHash: fingerprint.Hash(id)}}
}

func histogram(seed int) []float64 {
	h := make([]float64, fingerprint.HistogramSize)
	for i := range h {
		h[i] = float64((i*seed)%13 + 1)
	}
	norm := fingerprint.L2Norm(h)
	for i := range h {
		h[i] /= norm
	}
	return h
}

func TestSelectBestEmptyHistory(t *testing.T) {
	r := NewSelector(similarity.DefaultThresholds(), 0).SelectBest(fingerprint.Fingerprint{Histogram: histogram(3)}, nil)
	if r.Matched {
		t.Fatal("empty history produced a match")
	}
	if r.ItemID != 0 || r.Confidence != 0 {
		t.Errorf("no-match result carries an item or confidence: %+v", r)
	}
}

func TestSelectBestTieBreakByHashDistance(t *testing.T) {
	scorer := scriptedScorer{
		1: {Match: true, Confidence: 0.8, HashDistance: 6, HistogramSimilarity: 0.9},
		2: {Match: true, Confidence: 0.8, HashDistance: 4, HistogramSimilarity: 0.85},
	}
	s := Selector{Scorer: scorer, Window: DefaultWindow}

	orders := [][]Candidate{
		{scripted(1), scripted(2)},
		{scripted(2), scripted(1)},
	}
	for i, candidates := range orders {
		r := s.SelectBest(fingerprint.Fingerprint{}, candidates)
		if !r.Matched || r.ItemID != 2 {
			t.Errorf("order %d: got item %d (matched=%v), want item 2", i, r.ItemID, r.Matched)
		}
		if r.HashDistance != 4 {
			t.Errorf("order %d: HashDistance = %d, want 4", i, r.HashDistance)
		}
	}
}

func TestSelectBestHigherConfidenceWins(t *testing.T) {
	scorer := scriptedScorer{
		1: {Match: true, Confidence: 0.82, HashDistance: 2},
		2: {Match: true, Confidence: 0.91, HashDistance: 9},
		3: {Match: false, Confidence: 0.49, HashDistance: 1},
	}
	s := Selector{Scorer: scorer, Window: DefaultWindow}

	r := s.SelectBest(fingerprint.Fingerprint{}, []Candidate{scripted(1), scripted(3), scripted(2)})
	if r.ItemID != 2 {
		t.Errorf("got item %d, want 2", r.ItemID)
	}
	if r.Confidence != 0.91 {
		t.Errorf("Confidence = %v, want 0.91", r.Confidence)
	}
	if r.Scanned != 3 {
		t.Errorf("Scanned = %d, want 3", r.Scanned)
	}
}

func TestSelectBestFullTieKeepsFirst(t *testing.T) {
	scorer := scriptedScorer{
		7: {Match: true, Confidence: 0.9, HashDistance: 3},
		8: {Match: true, Confidence: 0.9, HashDistance: 3},
	}
	s := Selector{Scorer: scorer, Window: DefaultWindow}

	if r := s.SelectBest(fingerprint.Fingerprint{}, []Candidate{scripted(8), scripted(7)}); r.ItemID != 8 {
		t.Errorf("got item %d, want first encountered 8", r.ItemID)
	}
}

func TestSelectBestNoMatch(t *testing.T) {
	scorer := scriptedScorer{
		1: {Match: false, Confidence: 0.45, HashDistance: 30, HistogramSimilarity: 0.9},
	}
	r := Selector{Scorer: scorer, Window: DefaultWindow}.SelectBest(fingerprint.Fingerprint{}, []Candidate{scripted(1)})
	if r.Matched || r.ItemID != 0 {
		t.Errorf("got %+v, want no match", r)
	}
	if r.Confidence != 0 || r.HashDistance != 0 || r.HistogramSimilarity != 0 {
		t.Errorf("diagnostic score leaked into a no-match result: %+v", r)
	}
}

func TestSelectBestSkipsCorruptRecords(t *testing.T) {
	query := fingerprint.Fingerprint{PerceptualHash: 0xabc, Histogram: histogram(5)}
	corrupt := fakeCandidate{
		id:       10,
		calories: true,
		err:      fmt.Errorf("item 10: %w", fingerprint.ErrCorruptRecord),
	}
	valid := fakeCandidate{id: 11, calories: true, fp: query}

	r := NewSelector(similarity.DefaultThresholds(), 0).SelectBest(query, []Candidate{corrupt, valid})
	if !r.Matched || r.ItemID != 11 {
		t.Fatalf("got %+v, want match on item 11", r)
	}
	if len(r.Skipped) != 1 || r.Skipped[0].ItemID != 10 {
		t.Fatalf("Skipped = %+v, want item 10", r.Skipped)
	}
	if !errors.Is(r.Skipped[0].Err, fingerprint.ErrCorruptRecord) {
		t.Errorf("skip reason = %v, want ErrCorruptRecord", r.Skipped[0].Err)
	}
}

func TestSelectBestIgnoresItemsWithoutCalories(t *testing.T) {
	query := fingerprint.Fingerprint{Histogram: histogram(5)}
	noCalories := fakeCandidate{id: 1, calories: false, fp: query}

	r := NewSelector(similarity.DefaultThresholds(), 0).SelectBest(query, []Candidate{noCalories})
	if r.Matched {
		t.Fatalf("matched an item without calories: %+v", r)
	}
	if r.Scanned != 0 {
		t.Errorf("Scanned = %d, want 0", r.Scanned)
	}
}

func TestSelectBestWindow(t *testing.T) {
	query := fingerprint.Fingerprint{Histogram: histogram(5)}
	far := fingerprint.Fingerprint{
		PerceptualHash: math.MaxUint64,
		AverageHash:    math.MaxUint64,
		DifferenceHash: math.MaxUint64,
		Histogram:      histogram(5),
	}
	candidates := []Candidate{
		fakeCandidate{id: 1, calories: true, fp: far},
		fakeCandidate{id: 2, calories: true, fp: far},
		fakeCandidate{id: 3, calories: true, fp: query},
	}

	r := NewSelector(similarity.DefaultThresholds(), 2).SelectBest(query, candidates)
	if r.Matched {
		t.Errorf("matched item %d outside the window", r.ItemID)
	}
	if r.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2", r.Scanned)
	}

	r = NewSelector(similarity.DefaultThresholds(), 3).SelectBest(query, candidates)
	if !r.Matched || r.ItemID != 3 {
		t.Errorf("got %+v, want match on item 3", r)
	}
}

func TestSelectBestRoundsConfidence(t *testing.T) {
	scorer := scriptedScorer{
		1: {Match: true, Confidence: 0.876543, HashDistance: 2},
	}
	r := Selector{Scorer: scorer, Window: DefaultWindow}.SelectBest(fingerprint.Fingerprint{}, []Candidate{scripted(1)})
	if r.Confidence != 0.877 {
		t.Errorf("Confidence = %v, want 0.877", r.Confidence)
	}
}

func TestRoundConfidenceTiesToEven(t *testing.T) {
	tests := map[float64]float64{
		0.0625:   0.062,
		0.1875:   0.188,
		0.876543: 0.877,
		1:        1,
	}
	for in, want := range tests {
		if got := roundConfidence(in); got != want {
			t.Errorf("roundConfidence(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestSelectBestWithThresholds(t *testing.T) {
	query := fingerprint.Fingerprint{PerceptualHash: 0, Histogram: histogram(5)}
	near := query
	near.PerceptualHash = 0b111
	exact := query

	r := NewSelector(similarity.DefaultThresholds(), 0).SelectBest(query, []Candidate{
		fakeCandidate{id: 1, calories: true, fp: near},
		fakeCandidate{id: 2, calories: true, fp: exact},
	})
	if !r.Matched || r.ItemID != 2 || r.HashDistance != 0 {
		t.Errorf("got %+v, want exact copy (item 2)", r)
	}
	if math.Abs(r.Confidence-1) > 1e-3 {
		t.Errorf("Confidence = %v, want ~1", r.Confidence)
	}
}
