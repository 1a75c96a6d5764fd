package app

import (
	"bytes"
	"fmt"
	"image"

	// Registered decoders for uploaded photos.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultMaxImagePixels bounds width*height of a decoded photo.
const DefaultMaxImagePixels = 50_000_000

// imageInfo describes a fully decoded image.
type imageInfo struct {
	Width  int
	Height int
	Format string
}

// decodeImage decodes data completely so truncated files are rejected too.
// The header is checked against maxPixels first, since a full decode
// allocates for the declared size.
func decodeImage(data []byte, maxPixels int) (imageInfo, error) {
	if len(data) == 0 {
		return imageInfo{}, ErrUndecodableImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return imageInfo{}, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return imageInfo{}, fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrUndecodableImage, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return imageInfo{}, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	b := img.Bounds()
	return imageInfo{Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}
