package segment

import (
	"errors"
	"image"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/raster"
	"github.com/MeKo-Tech/eanscan/internal/testutil"
)

func newTestSegmenter(t *testing.T, mutate func(*Config)) *Segmenter {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	return s
}

func plane(t *testing.T, img image.Image) *raster.Plane {
	t.Helper()
	p, err := raster.FromImage(img)
	require.NoError(t, err)
	return p
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative noise", func(c *Config) { c.NoiseSigma = -1 }},
		{"zero gradient sigma", func(c *Config) { c.GradientSigma = 0 }},
		{"zero tensor sigma", func(c *Config) { c.TensorSigma = 0 }},
		{"threshold one", func(c *Config) { c.CoherenceThreshold = 1 }},
		{"negative open", func(c *Config) { c.OpenSize = -2 }},
		{"unknown mode", func(c *Config) { c.Mode = "hull" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestSegment_StripesCoverBlockAndExcludeBackground(t *testing.T) {
	block := image.Rect(80, 80, 160, 160)
	img := testutil.GenerateStripes(testutil.StripeConfig{Width: 240, Height: 240, Block: block, Period: 8})

	for _, mode := range []RegionMode{ModeOriented, ModeBox} {
		t.Run(string(mode), func(t *testing.T) {
			s := newTestSegmenter(t, func(c *Config) { c.Mode = mode })
			reg, err := s.Segment(plane(t, img))
			require.NoError(t, err)

			assert.LessOrEqual(t, reg.Box.MinX, float64(block.Min.X))
			assert.LessOrEqual(t, reg.Box.MinY, float64(block.Min.Y))
			assert.GreaterOrEqual(t, reg.Box.MaxX, float64(block.Max.X-1))
			assert.GreaterOrEqual(t, reg.Box.MaxY, float64(block.Max.Y-1))

			// The surrounding flat background stays out.
			assert.Greater(t, reg.Box.MinX, 50.0)
			assert.Greater(t, reg.Box.MinY, 50.0)
			assert.Less(t, reg.Box.MaxX, 190.0)
			assert.Less(t, reg.Box.MaxY, 190.0)

			assert.InDelta(t, 119.5, reg.Centroid.X, 3)
			assert.InDelta(t, 119.5, reg.Centroid.Y, 3)
			for _, c := range reg.Corners {
				assert.True(t, c.X > 50 && c.X < 190 && c.Y > 50 && c.Y < 190, "corner %v", c)
			}
		})
	}
}

func TestSegment_SyntheticBarcode(t *testing.T) {
	img, layout, err := testutil.GenerateBarcode(testutil.DefaultBarcodeConfig())
	require.NoError(t, err)

	reg, err := newTestSegmenter(t, nil).Segment(plane(t, img))
	require.NoError(t, err)

	assert.LessOrEqual(t, reg.Box.MinX, float64(layout.Bars.Min.X))
	assert.GreaterOrEqual(t, reg.Box.MaxX, float64(layout.Bars.Max.X-1))
	assert.LessOrEqual(t, reg.Box.MinY, float64(layout.Bars.Min.Y))
	assert.GreaterOrEqual(t, reg.Box.MaxY, float64(layout.Bars.Max.Y-1))
	// Bars are vertical, so the principal axis runs along x.
	assert.Greater(t, abs(reg.Axis.X), 0.9)
}

func TestSegment_FlatImageFails(t *testing.T) {
	s := newTestSegmenter(t, func(c *Config) { c.NoiseSigma = 0 })
	_, err := s.Segment(plane(t, testutil.Uniform(64, 48, 200)))

	var se *SegmentationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 64, se.Width)
	assert.Equal(t, 48, se.Height)
}

func TestAnalyze_Maps(t *testing.T) {
	block := image.Rect(30, 30, 90, 90)
	img := testutil.GenerateStripes(testutil.StripeConfig{Width: 120, Height: 120, Block: block, Period: 6})
	// Bar centres of 3 px bars have almost no gradient, so noise would
	// steer their orientation.
	s := newTestSegmenter(t, func(c *Config) {
		c.TensorSigma = 8
		c.NoiseSigma = 0
	})

	a, err := s.Analyze(plane(t, img))
	require.NoError(t, err)
	assert.Len(t, a.Coherence, 120*120)
	assert.Len(t, a.Mask, 120*120)
	assert.GreaterOrEqual(t, a.Components, 1)

	center := 60*120 + 60
	assert.Greater(t, a.Coherence[center], 0.8)
	assert.True(t, a.Mask[center])
	assert.InDelta(t, 1-a.Coherence[center], a.Incoherence()[center], 1e-12)
	for _, v := range a.Coherence {
		assert.True(t, v >= 0 && v <= 1+1e-9)
	}

	coh := a.CoherenceImage()
	assert.Equal(t, image.Rect(0, 0, 120, 120), coh.Bounds())
	assert.Greater(t, coh.GrayAt(60, 60).Y, uint8(200))
	assert.Less(t, a.IncoherenceImage().GrayAt(60, 60).Y, uint8(55))
	mask := a.MaskImage()
	assert.Equal(t, uint8(255), mask.GrayAt(60, 60).Y)
	on := 0
	for i, px := range mask.Pix {
		assert.Equal(t, a.Mask[i], px == 255)
		if px == 255 {
			on++
		}
	}
	assert.Positive(t, on)
}

func TestSegment_Deterministic(t *testing.T) {
	img := testutil.GenerateStripes(testutil.StripeConfig{Width: 120, Height: 120, Block: image.Rect(30, 40, 90, 80), Period: 6})
	p := plane(t, img)
	r1, err := newTestSegmenter(t, nil).Segment(p)
	require.NoError(t, err)
	r2, err := newTestSegmenter(t, nil).Segment(p)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
