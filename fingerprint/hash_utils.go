package fingerprint

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// resizeGray downsamples a grayscale Mat to width x height using pixel area
// relation, which stays stable under mild recompression.
func resizeGray(gray gocv.Mat, width, height int) (gocv.Mat, error) {
	if gray.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot compute hash for empty image")
	}
	resized := gocv.NewMat()
	gocv.Resize(gray, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)
	if resized.Rows() != height || resized.Cols() != width {
		resized.Close()
		return gocv.NewMat(), fmt.Errorf("resize to %dx%d failed", width, height)
	}
	return resized, nil
}

// computeAverageHash sets one bit per pixel of an 8x8 thumbnail that is
// brighter than the thumbnail mean.
func computeAverageHash(gray gocv.Mat) (Hash, error) {
	small, err := resizeGray(gray, 8, 8)
	if err != nil {
		return 0, err
	}
	defer small.Close()

	var sum float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sum += float64(small.GetUCharAt(y, x))
		}
	}
	mean := sum / 64

	var bitsOut []bool
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			bitsOut = append(bitsOut, float64(small.GetUCharAt(y, x)) > mean)
		}
	}
	return packBits(bitsOut), nil
}

// computeDifferenceHash compares horizontally adjacent pixels of a 9x8
// thumbnail.
func computeDifferenceHash(gray gocv.Mat) (Hash, error) {
	small, err := resizeGray(gray, 9, 8)
	if err != nil {
		return 0, err
	}
	defer small.Close()

	var bitsOut []bool
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			bitsOut = append(bitsOut, small.GetUCharAt(y, x+1) > small.GetUCharAt(y, x))
		}
	}
	return packBits(bitsOut), nil
}

// computePerceptualHash keeps the 8x8 lowest frequencies of the DCT of a
// 32x32 thumbnail and sets a bit for every coefficient above their median.
func computePerceptualHash(gray gocv.Mat) (Hash, error) {
	small, err := resizeGray(gray, 32, 32)
	if err != nil {
		return 0, err
	}
	defer small.Close()

	floatImg := gocv.NewMat()
	defer floatImg.Close()
	small.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dct := gocv.NewMat()
	defer dct.Close()
	gocv.DCT(floatImg, &dct, 0)
	if dct.Empty() {
		return 0, fmt.Errorf("DCT produced no coefficients")
	}

	lowFreq := dct.Region(image.Rect(0, 0, 8, 8))
	defer lowFreq.Close()

	values := make([]float32, 0, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			values = append(values, lowFreq.GetFloatAt(y, x))
		}
	}
	median := calculateMedian(values)

	bitsOut := make([]bool, len(values))
	for i, v := range values {
		bitsOut[i] = v > median
	}
	return packBits(bitsOut), nil
}

// packBits folds up to 64 bits into a Hash, first bit most significant.
func packBits(bitsOut []bool) Hash {
	var h Hash
	for _, set := range bitsOut {
		h <<= 1
		if set {
			h |= 1
		}
	}
	return h
}

// calculateMedian returns the median of values without modifying them.
func calculateMedian(values []float32) float32 {
	valuesCopy := make([]float32, len(values))
	copy(valuesCopy, values)
	sort.Slice(valuesCopy, func(i, j int) bool {
		return valuesCopy[i] < valuesCopy[j]
	})

	length := len(valuesCopy)
	switch {
	case length == 0:
		return 0
	case length%2 == 0:
		return (valuesCopy[length/2-1] + valuesCopy[length/2]) / 2
	default:
		return valuesCopy[length/2]
	}
}
