// Package raster holds grayscale intensity planes and the sampling
// primitives shared by segmentation and signature extraction.
package raster

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MaxValue is the top of the intensity scale produced by FromImage.
const MaxValue = 255.0

// ErrEmptyImage is returned for images without pixels.
var ErrEmptyImage = errors.New("raster: empty image")

// Plane is a row-major grid of intensity samples.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// New allocates a zeroed plane.
func New(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// FromImage converts img to luma on the 0..255 scale. Alpha is ignored.
func FromImage(img image.Image) (*Plane, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	gray := imaging.Grayscale(img)
	p := New(b.Dx(), b.Dy())
	for y := range p.Height {
		row := gray.Pix[y*gray.Stride:]
		for x := range p.Width {
			// Grayscale leaves R=G=B; alpha sits at +3 and is dropped.
			p.Pix[y*p.Width+x] = float64(row[x*4])
		}
	}
	return p, nil
}

// Bounds reports whether (x, y) lies inside the sampled area, treating pixel
// centers as integer coordinates.
func (p *Plane) Bounds(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= float64(p.Width-1) && y <= float64(p.Height-1)
}

// At returns the sample at integer coordinates, reflecting out-of-range
// indices about the edges (d c b a | a b c d).
func (p *Plane) At(x, y int) float64 {
	return p.Pix[reflect(y, p.Height)*p.Width+reflect(x, p.Width)]
}

// Bilinear interpolates the plane at a continuous position.
func (p *Plane) Bilinear(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	top := p.At(ix, iy)*(1-fx) + p.At(ix+1, iy)*fx
	if fy == 0 {
		return top
	}
	bottom := p.At(ix, iy+1)*(1-fx) + p.At(ix+1, iy+1)*fx
	return top*(1-fy) + bottom*fy
}

// ToImage renders the plane as 8-bit gray, scaling [0, maxV] to [0, 255].
func (p *Plane) ToImage(maxV float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	if maxV <= 0 {
		maxV = MaxValue
	}
	for i, v := range p.Pix {
		s := math.Round(v / maxV * 255)
		img.Pix[i] = uint8(math.Max(0, math.Min(255, s)))
	}
	return img
}

func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	if i >= 0 && i < n {
		return i
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
