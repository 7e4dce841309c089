//go:build barcode_gozxing

package barcode

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

func newDefaultBackend() Backend { return gozxingBackend{} }

type gozxingBackend struct{}

func (gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	// Backend points are relative to the decoded image's origin.
	offset := img.Bounds().Min
	if !opts.ROI.Empty() {
		if roi, ok := subImage(img, opts.ROI); ok {
			offset = opts.ROI.Intersect(img.Bounds()).Min
			img = roi
		}
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("binarize: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	r, err := oned.NewEAN13Reader().Decode(bmp, hints)
	if err != nil {
		return Result{}, err
	}

	out := Result{Code: r.GetText()}
	for _, p := range r.GetResultPoints() {
		out.Points = append(out.Points, utils.Point{
			X: p.GetX() + float64(offset.X),
			Y: p.GetY() + float64(offset.Y),
		})
	}
	return out, nil
}
