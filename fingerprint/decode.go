package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	"io"

	// Register the decoders accepted for uploads
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads a raster image in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrInvalidImage, format)
	}
	return img, nil
}

// DecodeBytes decodes an in-memory upload.
func DecodeBytes(content []byte) (image.Image, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrInvalidImage)
	}
	return Decode(bytes.NewReader(content))
}

// ExtractBytes decodes an upload and extracts its fingerprint.
func ExtractBytes(content []byte) (Fingerprint, error) {
	img, err := DecodeBytes(content)
	if err != nil {
		return Fingerprint{}, err
	}
	return Extract(img)
}
