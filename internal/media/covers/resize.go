// Package covers renders book covers at the sizes the device asks for.
package covers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultQuality is the JPEG quality used when the device does not name one.
const DefaultQuality = 85

// Options describes one rendition of a cover. A zero Width or Height leaves that
// dimension unconstrained.
type Options struct {
	Width     int
	Height    int
	Quality   int
	Greyscale bool
}

// Normalize clamps the options to values the encoder accepts.
func (o Options) Normalize() Options {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	o.Width = max(o.Width, 0)
	o.Height = max(o.Height, 0)
	return o
}

// Key identifies the rendition for caching.
func (o Options) Key() string {
	o = o.Normalize()
	grey := 0
	if o.Greyscale {
		grey = 1
	}
	return fmt.Sprintf("%dx%d-q%d-g%d", o.Width, o.Height, o.Quality, grey)
}

// Resize decodes src, scales it to fit within the requested box keeping its aspect
// ratio, and re-encodes it as JPEG. Images are never enlarged.
func Resize(src []byte, opts Options) ([]byte, error) {
	opts = opts.Normalize()

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}

	bounds := img.Bounds()
	w, h := fit(bounds.Dx(), bounds.Dy(), opts.Width, opts.Height)

	var dst draw.Image
	rect := image.Rect(0, 0, w, h)
	if opts.Greyscale {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, img, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// fit returns the largest size no bigger than the source that fits in maxW x maxH.
func fit(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 1
	}
	scale := 1.0
	if maxW > 0 && srcW > maxW {
		scale = float64(maxW) / float64(srcW)
	}
	if maxH > 0 && float64(srcH)*scale > float64(maxH) {
		scale = float64(maxH) / float64(srcH)
	}
	w := max(int(float64(srcW)*scale+0.5), 1)
	h := max(int(float64(srcH)*scale+0.5), 1)
	return w, h
}
