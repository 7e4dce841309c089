package utils

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "img.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
	return path
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a/b.PNG"))
	assert.True(t, IsSupportedImage("x.jpeg"))
	assert.False(t, IsSupportedImage("x.tiff"))
	assert.True(t, IsPDF("doc.Pdf"))
	assert.False(t, IsPDF("doc.png"))
}

func TestLoadImage(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), 120, 40)
	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 120, meta.Width)
	assert.Equal(t, 40, meta.Height)
	assert.Equal(t, "png", meta.Format)
	assert.Positive(t, meta.SizeBytes)
}

func TestLoadImage_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		op   string
	}{
		{"empty", "", "load"},
		{"unsupported", "file.tiff", "load"},
		{"missing", filepath.Join(t.TempDir(), "missing.png"), "load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadImage(tt.path)
			var ipe *ImageProcessingError
			require.True(t, errors.As(err, &ipe))
			assert.Equal(t, tt.op, ipe.Operation)
		})
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o600))
	_, _, err := LoadImage(bad)
	var ipe *ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "decode", ipe.Operation)
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 3))))
	img, format, err := DecodeImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = DecodeImage(bytes.NewReader([]byte("junk")))
	assert.Error(t, err)
}

func TestValidateImageConstraints(t *testing.T) {
	c := DefaultImageConstraints()
	assert.NoError(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 95, 8)), c))
	assert.Error(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 94, 8)), c))
	assert.Error(t, ValidateImageConstraints(nil, c))
}

func TestFitImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 400, 200))
	out, scale := FitImage(img, 100)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())
	assert.InDelta(t, 0.25, scale, 1e-12)

	same, scale := FitImage(img, 0)
	assert.Same(t, img, same)
	assert.Equal(t, 1.0, scale)
}
