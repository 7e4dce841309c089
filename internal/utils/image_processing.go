package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the images accepted for decoding. A zero
// MaxDimension disables downscaling.
type ImageConstraints struct {
	MinWidth     int
	MinHeight    int
	MaxDimension int
}

// DefaultImageConstraints requires room for one module per pixel across a
// symbol.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{MinWidth: 95, MinHeight: 8}
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, c ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() < c.MinWidth || b.Dy() < c.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too small: %dx%d < %dx%d", b.Dx(), b.Dy(), c.MinWidth, c.MinHeight),
		}
	}
	return nil
}

// FitImage scales img down so its longer side is at most maxDim, preserving
// the aspect ratio. It returns the factor applied (1 when untouched).
func FitImage(img image.Image, maxDim int) (image.Image, float64) {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxDim <= 0 || longest <= maxDim {
		return img, 1
	}
	out := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return out, float64(out.Bounds().Dx()) / float64(b.Dx())
}
