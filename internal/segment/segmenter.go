// Package segment finds the barcode area of an image from the coherence of
// its gradient orientation field.
package segment

import (
	"image"
	"math/rand/v2"
	"sync"

	"github.com/MeKo-Tech/eanscan/internal/mempool"
	"github.com/MeKo-Tech/eanscan/internal/raster"
)

// Segmenter runs the structure-tensor segmentation. It is safe for
// concurrent use; the noise source is shared under a lock.
type Segmenter struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Segmenter. A nil rng gets a randomly seeded PCG source.
func New(cfg Config, rng *rand.Rand) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Segmenter{cfg: cfg, rng: rng}, nil
}

// Config returns the segmentation parameters.
func (s *Segmenter) Config() Config { return s.cfg }

// Analysis exposes the intermediate maps of one segmentation pass.
type Analysis struct {
	Width, Height int
	// Coherence is the tensor anisotropy in [0,1].
	Coherence []float64
	// Mask is the thresholded coherence after closing and opening.
	Mask   []bool
	Region Region
	// Components is the number of 4-connected components in Mask.
	Components int
}

// Incoherence returns 1 - Coherence per pixel.
func (a *Analysis) Incoherence() []float64 {
	out := make([]float64, len(a.Coherence))
	for i, v := range a.Coherence {
		out[i] = 1 - v
	}
	return out
}

// CoherenceImage renders Coherence as gray, 255 for fully oriented texture.
func (a *Analysis) CoherenceImage() *image.Gray {
	return a.unitImage(a.Coherence)
}

// IncoherenceImage renders Incoherence, bright where orientation is random.
func (a *Analysis) IncoherenceImage() *image.Gray {
	return a.unitImage(a.Incoherence())
}

// MaskImage renders Mask as black and white.
func (a *Analysis) MaskImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, a.Width, a.Height))
	for i, on := range a.Mask {
		if on {
			img.Pix[i] = 255
		}
	}
	return img
}

func (a *Analysis) unitImage(v []float64) *image.Gray {
	p := &raster.Plane{Width: a.Width, Height: a.Height, Pix: v}
	return p.ToImage(1)
}

// Segment returns the largest coherent region of img.
func (s *Segmenter) Segment(img *raster.Plane) (Region, error) {
	a, err := s.Analyze(img)
	if err != nil {
		return Region{}, err
	}
	return a.Region, nil
}

// Analyze runs the full segmentation and keeps the intermediate maps. On
// failure the returned Analysis is still populated up to the mask.
func (s *Segmenter) Analyze(img *raster.Plane) (*Analysis, error) {
	w, h := img.Width, img.Height
	gray := field{w, h, s.noisyLuma(img)}
	defer gray.release()

	ix, iy := unitGradients(gray, s.cfg.GradientSigma)
	t := structureTensor(ix, iy, s.cfg.TensorSigma)
	ix.release()
	iy.release()
	coherence := t.anisotropy()
	t.release()

	mask := make([]bool, w*h)
	for i, v := range coherence {
		mask[i] = v > s.cfg.CoherenceThreshold
	}
	mask = applyMorphology(mask, w, h, MorphClosing, s.cfg.CloseSize)
	mask = applyMorphology(mask, w, h, MorphOpening, s.cfg.OpenSize)

	a := &Analysis{Width: w, Height: h, Coherence: coherence, Mask: mask}
	comps, labels := connectedComponents(mask, w, h)
	a.Components = len(comps)
	best, ok := largest(comps)
	if !ok {
		return a, &SegmentationError{Width: w, Height: h}
	}
	a.Region = fitRegion(best, labels, w, s.cfg.Mode)
	return a, nil
}

// noisyLuma scales img to [0,1], adds the regularizing noise and clips.
func (s *Segmenter) noisyLuma(img *raster.Plane) []float64 {
	out := mempool.GetFloat64(len(img.Pix))
	for i, v := range img.Pix {
		out[i] = v / raster.MaxValue
	}
	if s.cfg.NoiseSigma == 0 {
		return out
	}

	s.mu.Lock()
	for i := range out {
		out[i] += s.rng.NormFloat64() * s.cfg.NoiseSigma
	}
	s.mu.Unlock()

	for i, v := range out {
		out[i] = min(1, max(0, v))
	}
	return out
}
