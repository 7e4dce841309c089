package barcode

import (
	"context"
	"errors"
	"image"
	"image/draw"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// ErrNoBackend is returned when the binary was built without a backend.
var ErrNoBackend = errors.New("barcode: no cross-check backend linked; build with -tags=barcode_gozxing")

// Options controls backend decoding behavior.
type Options struct {
	// TryHarder enables a slower, more exhaustive search.
	TryHarder bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// Empty or out of bounds rectangles are ignored.
	ROI image.Rectangle
}

// Result is a code read by a backend.
type Result struct {
	Code string
	// Points are the guard positions reported by the backend, in image
	// coordinates.
	Points []utils.Point
}

// Backend is a pluggable EAN-13 decoder.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) (Result, error)
}

// NewBackend returns the backend selected at build time.
func NewBackend() Backend { return newDefaultBackend() }

// Agrees reports whether a backend result matches code.
func Agrees(code string, r Result) bool {
	return r.Code != "" && r.Code == code
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// subImage crops img to r, copying when the image has no SubImage method.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	dst := image.NewRGBA(image.Rect(0, 0, rb.Dx(), rb.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rb.Min, draw.Src)
	return dst, true
}
