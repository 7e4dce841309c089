package segment

import (
	"math"

	"github.com/MeKo-Tech/eanscan/internal/mempool"
)

// gaussianKernel returns a normalized 1-D Gaussian of the given radius.
func gaussianKernel(sigma float64, radius int) []float64 {
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// derivativeKernels returns the two factors of the separable x-derivative of
// a 2-D Gaussian, G_x(x, y) = -x/(2*pi*sigma^4) * exp(-(x^2+y^2)/(2*sigma^2)):
// the derivative along x and the smoothing profile along y.
func derivativeKernels(sigma float64, radius int) (deriv, smooth []float64) {
	deriv = make([]float64, 2*radius+1)
	smooth = make([]float64, 2*radius+1)
	s2 := sigma * sigma
	norm := 1 / (2 * math.Pi * s2 * s2)
	for i := -radius; i <= radius; i++ {
		x := float64(i)
		g := math.Exp(-x * x / (2 * s2))
		deriv[i+radius] = -x * norm * g
		smooth[i+radius] = g
	}
	return deriv, smooth
}

// reflectIndex mirrors i into [0, n) (d c b a | a b c d).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	for i < 0 || i >= n {
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
	}
	return i
}

// convolveRows convolves every row of src with k into dst.
func convolveRows(dst, src []float64, w, h int, k []float64) {
	r := len(k) / 2
	for y := range h {
		row := src[y*w : (y+1)*w]
		out := dst[y*w : (y+1)*w]
		for x := range w {
			acc := 0.0
			for j := -r; j <= r; j++ {
				xi := x - j
				if xi < 0 || xi >= w {
					xi = reflectIndex(xi, w)
				}
				acc += k[j+r] * row[xi]
			}
			out[x] = acc
		}
	}
}

// convolveCols convolves every column of src with k into dst.
func convolveCols(dst, src []float64, w, h int, k []float64) {
	r := len(k) / 2
	for y := range h {
		out := dst[y*w : (y+1)*w]
		clear(out)
		for j := -r; j <= r; j++ {
			yi := y - j
			if yi < 0 || yi >= h {
				yi = reflectIndex(yi, h)
			}
			kv := k[j+r]
			row := src[yi*w : (yi+1)*w]
			for x := range w {
				out[x] += kv * row[x]
			}
		}
	}
}

// separable computes (src * kx along rows) * ky along columns into a new
// buffer taken from the pool.
func separable(src []float64, w, h int, kx, ky []float64) []float64 {
	tmp := mempool.GetFloat64(w * h)
	defer mempool.PutFloat64(tmp)
	out := mempool.GetFloat64(w * h)
	convolveRows(tmp, src, w, h, kx)
	convolveCols(out, tmp, w, h, ky)
	return out
}
