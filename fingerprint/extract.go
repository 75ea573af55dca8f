package fingerprint

import (
	"fmt"
	"image"
	"runtime"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// Extract computes the fingerprint of a decoded image. The image is first
// converted to the canonical RGB model so that re-encodings of the same
// pixel data always produce identical hashes and histograms.
func Extract(img image.Image) (Fingerprint, error) {
	if img == nil {
		return Fingerprint{}, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Fingerprint{}, fmt.Errorf("%w: image has no pixels", ErrInvalidImage)
	}

	rgb := toRGB(img)

	gray, err := grayscaleMat(rgb)
	if err != nil {
		return Fingerprint{}, err
	}
	defer gray.Close()

	pHash, err := computePerceptualHash(gray)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("cannot compute perceptual hash: %v", err)
	}
	aHash, err := computeAverageHash(gray)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("cannot compute average hash: %v", err)
	}
	dHash, err := computeDifferenceHash(gray)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("cannot compute difference hash: %v", err)
	}

	return Fingerprint{
		PerceptualHash: pHash,
		AverageHash:    aHash,
		DifferenceHash: dHash,
		Histogram:      colorHistogram(rgb),
	}, nil
}

// toRGB copies any image model into a zero-origin NRGBA image. Alpha is
// ignored by everything downstream.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// grayscaleMat builds an 8-bit single channel Mat from the RGB pixels.
func grayscaleMat(rgb *image.NRGBA) (gocv.Mat, error) {
	w, h := rgb.Rect.Dx(), rgb.Rect.Dy()

	// OpenCV expects BGR channel order
	data := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgb.Pix[y*rgb.Stride : y*rgb.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			data = append(data, p[2], p[1], p[0])
		}
	}

	bgr, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("cannot build image matrix: %v", err)
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	runtime.KeepAlive(data)

	if gray.Empty() {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("%w: grayscale conversion produced no pixels", ErrInvalidImage)
	}
	return gray, nil
}
