package ray

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

var square = [4]utils.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

func TestRandom_SeededEndpoints(t *testing.T) {
	r1, err := Random(square, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)

	// The same seed reproduces the angle exactly.
	rng := rand.New(rand.NewPCG(7, 7))
	theta := rng.Float64() * 2 * math.Pi
	radius := math.Sqrt(50)
	assert.InDelta(t, 5+radius*math.Cos(theta), r1.P1.X, 1e-9)
	assert.InDelta(t, 5+radius*math.Sin(theta), r1.P1.Y, 1e-9)
	assert.InDelta(t, 5-radius*math.Cos(theta), r1.P2.X, 1e-9)
	assert.InDelta(t, 5-radius*math.Sin(theta), r1.P2.Y, 1e-9)
	assert.InDelta(t, 2*radius, r1.Length(), 1e-9)
}

func TestRandom_UsesSmallerDiagonal(t *testing.T) {
	// Centroid (2.5, 1); |C1-c| = 2.5, |C3-c| = sqrt(6.25+1).
	corners := [4]utils.Point{{X: 0, Y: 1}, {X: 5, Y: 0}, {X: 5, Y: 2}, {X: 0, Y: 1}}
	r, err := Random(corners, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.InDelta(t, 5, r.Length(), 1e-9)
}

func TestRandom_InvalidCorners(t *testing.T) {
	bad := square
	bad[2] = utils.Point{X: math.NaN(), Y: 1}
	_, err := Random(bad, rand.New(rand.NewPCG(1, 1)))
	assert.True(t, errors.Is(err, ErrInvalidCorners))
	assert.Contains(t, err.Error(), "corner 3")

	_, err = Scanline(bad, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrInvalidCorners)
}

func TestScanline_JoinsOppositeEdges(t *testing.T) {
	r, err := Scanline(square, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.P1.X)
	assert.Equal(t, 10.0, r.P2.X)
	assert.Equal(t, r.P1.Y, r.P2.Y)
	assert.True(t, r.P1.Y >= 0 && r.P1.Y < 10)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyDiameter, s)
	s, err = ParseStrategy("scanline")
	require.NoError(t, err)
	assert.Equal(t, StrategyScanline, s)
	_, err = ParseStrategy("spiral")
	assert.Error(t, err)
}

func TestGenerator(t *testing.T) {
	g := NewGenerator(StrategyScanline, rand.New(rand.NewPCG(9, 9)))
	assert.Equal(t, StrategyScanline, g.Strategy())
	r, err := g.Next(square)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r.Length())

	d := NewGenerator(StrategyDiameter, nil)
	r, err = d.Next(square)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sqrt(50), r.Length(), 1e-9)
}

func TestRay_Reverse(t *testing.T) {
	r := Ray{P1: utils.Point{X: 1}, P2: utils.Point{Y: 2}}
	assert.Equal(t, Ray{P1: utils.Point{Y: 2}, P2: utils.Point{X: 1}}, r.Reverse())
	assert.Equal(t, "(1.00,0.00)-(0.00,2.00)", r.String())
}

// TestRandom_Containment checks both endpoints stay within the radius of
// the centroid for arbitrary corners and seeds.
func TestRandom_Containment(t *testing.T) {
	properties := gopter.NewProperties(nil)

	coord := gen.Float64Range(-1e4, 1e4)
	properties.Property("endpoints lie within radius of the centroid", prop.ForAll(
		func(xs, ys []float64, seed uint64) bool {
			var corners [4]utils.Point
			for i := range 4 {
				corners[i] = utils.Point{X: xs[i], Y: ys[i]}
			}
			c, radius := centroidRadius(corners)
			rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			for range 20 {
				r, err := Random(corners, rng)
				if err != nil {
					return false
				}
				tol := 1e-9 * (1 + radius)
				if c.Dist(r.P1) > radius+tol || c.Dist(r.P2) > radius+tol {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, coord),
		gen.SliceOfN(4, coord),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
