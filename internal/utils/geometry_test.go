package utils

import (
	"image"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestPointOps(t *testing.T) {
	p := Point{X: 3, Y: 4}
	q := Point{X: 1, Y: -2}
	assert.Equal(t, Point{X: 4, Y: 2}, p.Add(q))
	assert.Equal(t, Point{X: 2, Y: 6}, p.Sub(q))
	assert.Equal(t, Point{X: 6, Y: 8}, p.Scale(2))
	assert.Equal(t, -5.0, p.Dot(q))
	assert.Equal(t, 5.0, p.Norm())
	assert.InDelta(t, math.Sqrt(40), p.Dist(q), 1e-12)
	assert.Equal(t, Point{X: 2, Y: 1}, Lerp(p, q, 0.5))
	assert.Equal(t, Point{X: 2, Y: 1}, Mean(p, q))
	assert.Equal(t, Point{}, Mean())
}

func TestPoint_IsFinite(t *testing.T) {
	assert.True(t, Point{X: 1, Y: 2}.IsFinite())
	assert.False(t, Point{X: math.NaN()}.IsFinite())
	assert.False(t, Point{Y: math.Inf(-1)}.IsFinite())
}

func TestBox(t *testing.T) {
	b := NewBox(10, 8, 2, 4)
	assert.Equal(t, Box{MinX: 2, MinY: 4, MaxX: 10, MaxY: 8}, b)
	assert.Equal(t, 8.0, b.Width())
	assert.Equal(t, 4.0, b.Height())
	assert.True(t, b.Contains(Point{X: 2, Y: 8}))
	assert.False(t, b.Contains(Point{X: 1.9, Y: 5}))
	assert.Equal(t, Box{MinX: 1, MinY: 2, MaxX: 5, MaxY: 4}, b.Scale(0.5, 0.5))
	assert.Equal(t, image.Rect(2, 4, 6, 6), b.ToRect(image.Rect(0, 0, 6, 6)))
}

func TestBoundingBox(t *testing.T) {
	assert.Equal(t, Box{}, BoundingBox(nil))
	b := BoundingBox([]Point{{X: 1, Y: 5}, {X: -2, Y: 3}, {X: 4, Y: 0}})
	assert.Equal(t, Box{MinX: -2, MinY: 0, MaxX: 4, MaxY: 5}, b)
}

func TestBoundingBox_ContainsAll(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("every point lies in its bounding box", prop.ForAll(
		func(xs, ys []float64) bool {
			n := min(len(xs), len(ys))
			pts := make([]Point, n)
			for i := range n {
				pts[i] = Point{X: xs[i], Y: ys[i]}
			}
			b := BoundingBox(pts)
			for _, p := range pts {
				if !b.Contains(p) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-1e3, 1e3)),
		gen.SliceOf(gen.Float64Range(-1e3, 1e3)),
	))
	properties.TestingRun(t)
}
