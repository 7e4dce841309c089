package segment

import (
	"math"

	"github.com/MeKo-Tech/eanscan/internal/mempool"
)

const (
	gradientEps  = 1e-8
	coherenceEps = 1e-8
)

// field is a w*h float64 map.
type field struct {
	w, h int
	v    []float64
}

func (f field) release() { mempool.PutFloat64(f.v) }

// unitGradients returns the derivative-of-Gaussian responses of img,
// normalized to unit length per pixel.
func unitGradients(img field, sigma float64) (ix, iy field) {
	radius := max(1, int(3*sigma))
	deriv, smooth := derivativeKernels(sigma, radius)

	gx := separable(img.v, img.w, img.h, deriv, smooth)
	gy := separable(img.v, img.w, img.h, smooth, deriv)
	for i := range gx {
		n := math.Sqrt(gx[i]*gx[i]+gy[i]*gy[i]) + gradientEps
		gx[i] /= n
		gy[i] /= n
	}
	return field{img.w, img.h, gx}, field{img.w, img.h, gy}
}

// tensor holds the smoothed structure tensor components.
type tensor struct {
	xx, xy, yy field
}

func (t tensor) release() {
	t.xx.release()
	t.xy.release()
	t.yy.release()
}

// structureTensor smooths the gradient outer products at scale sigma.
func structureTensor(ix, iy field, sigma float64) tensor {
	w, h := ix.w, ix.h
	n := w * h
	radius := max(1, int(2*sigma))
	g := gaussianKernel(sigma, radius)

	prod := mempool.GetFloat64(n)
	defer mempool.PutFloat64(prod)

	smoothed := func(f func(i int) float64) field {
		for i := range n {
			prod[i] = f(i)
		}
		return field{w, h, separable(prod, w, h, g, g)}
	}

	return tensor{
		xx: smoothed(func(i int) float64 { return ix.v[i] * ix.v[i] }),
		xy: smoothed(func(i int) float64 { return ix.v[i] * iy.v[i] }),
		yy: smoothed(func(i int) float64 { return iy.v[i] * iy.v[i] }),
	}
}

// anisotropy maps the tensor to sqrt((Txx-Tyy)^2 + 4Txy^2) / (Txx+Tyy+eps):
// near 1 where the local orientation is consistent, near 0 where it is
// isotropic.
func (t tensor) anisotropy() []float64 {
	out := make([]float64, len(t.xx.v))
	for i := range out {
		a, b, c := t.xx.v[i], t.xy.v[i], t.yy.v[i]
		d := a - c
		out[i] = math.Sqrt(d*d+4*b*b) / (a + c + coherenceEps)
	}
	return out
}
