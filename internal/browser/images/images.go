// Package images decodes images referenced by documents and tracks their
// loading state per URL.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/xkilldash9x/weblayout/internal/browser/fetch"
)

// ErrEmpty is returned for zero-length image data.
var ErrEmpty = errors.New("empty image data")

// Image is a decoded raster image.
type Image struct {
	Width  int
	Height int
	// Format is the decoder name: png, jpeg, gif, webp, bmp or tiff.
	Format string
	Pixels image.Image
}

// Decode decodes data in any registered format.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	return &Image{Width: b.Dx(), Height: b.Dy(), Format: format, Pixels: img}, nil
}

// Load fetches and decodes the image at u.
func Load(ctx context.Context, f fetch.Fetcher, u *url.URL) (*Image, error) {
	resp, err := f.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return Decode(resp.Body)
}
