//go:build !barcode_gozxing

package barcode

import (
	"context"
	"image"
)

type defaultBackend struct{}

func newDefaultBackend() Backend { return defaultBackend{} }

func (defaultBackend) Decode(context.Context, image.Image, Options) (Result, error) {
	return Result{}, ErrNoBackend
}
