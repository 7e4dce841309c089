package barcode

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/testutil"
)

func TestAgrees(t *testing.T) {
	assert.True(t, Agrees("4006381333931", Result{Code: "4006381333931"}))
	assert.False(t, Agrees("4006381333931", Result{Code: "5901234123457"}))
	assert.False(t, Agrees("", Result{}))
}

func TestSubImage(t *testing.T) {
	img := testutil.Uniform(100, 50, 255)

	sub, ok := subImage(img, image.Rect(10, 10, 40, 30))
	require.True(t, ok)
	assert.Equal(t, image.Rect(10, 10, 40, 30), sub.Bounds())

	sub, ok = subImage(img, image.Rect(90, 40, 200, 200))
	require.True(t, ok)
	assert.Equal(t, image.Rect(90, 40, 100, 50), sub.Bounds())

	_, ok = subImage(img, image.Rect(200, 200, 300, 300))
	assert.False(t, ok)
}
