package fingerprint

import (
	"image"
	"math"
)

// colorHistogram counts R, G and B values into 256 equal-width bins each
// over the value range 0..255 and returns the concatenation with unit L2
// norm. The last bin is closed, so 255 lands in bin 255 instead of
// overflowing.
func colorHistogram(rgb *image.NRGBA) []float64 {
	hist := make([]float64, HistogramSize)
	w, h := rgb.Rect.Dx(), rgb.Rect.Dy()
	for y := 0; y < h; y++ {
		row := rgb.Pix[y*rgb.Stride : y*rgb.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			for ch := 0; ch < 3; ch++ {
				hist[ch*HistogramBins+histogramBin(p[ch])]++
			}
		}
	}
	return normalize(hist)
}

func histogramBin(v uint8) int {
	bin := int(v) * HistogramBins / 255
	if bin >= HistogramBins {
		bin = HistogramBins - 1
	}
	return bin
}

// normalize scales v in place to unit L2 norm; an all-zero vector stays zero.
func normalize(v []float64) []float64 {
	norm := L2Norm(v) + Epsilon
	for i := range v {
		v[i] /= norm
	}
	return v
}

// L2Norm returns the Euclidean length of v.
func L2Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
