// Package signature samples an intensity profile along a ray and reduces it
// to a fixed-length barcode bit signature.
package signature

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/eanscan/internal/raster"
	"github.com/MeKo-Tech/eanscan/internal/threshold"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// Length is the number of modules in the produced signature.
const Length = 95

// Bits is a binarized signature; 1 marks a bar.
type Bits []uint8

func (b Bits) String() string {
	s := make([]byte, len(b))
	for i, v := range b {
		s[i] = '0' + v
	}
	return string(s)
}

// Polarity tells which intensities are bars.
type Polarity string

const (
	// DarkBars treats dark pixels as bars (printed symbols).
	DarkBars Polarity = "dark-bars"
	// LightBars treats bright pixels as bars (inverted symbols).
	LightBars Polarity = "light-bars"
)

// ParsePolarity validates a polarity name. Empty selects DarkBars.
func ParsePolarity(s string) (Polarity, error) {
	switch Polarity(s) {
	case "", DarkBars:
		return DarkBars, nil
	case LightBars:
		return LightBars, nil
	}
	return "", fmt.Errorf("unknown polarity %q (must be %q or %q)", s, DarkBars, LightBars)
}

// Trace records the intermediate values of one extraction.
type Trace struct {
	Raw        []float64   `json:"-"`
	Coarse     int         `json:"coarse_threshold"`
	Fine       int         `json:"fine_threshold"`
	UsefulP1   utils.Point `json:"useful_p1"`
	UsefulP2   utils.Point `json:"useful_p2"`
	Unit       int         `json:"unit"`
	Resampled  int         `json:"resampled"`
	RawSamples int         `json:"raw_samples"`
}

// Extractor turns rays into signatures.
type Extractor struct {
	polarity Polarity
}

// NewExtractor creates an extractor for the given polarity.
func NewExtractor(p Polarity) *Extractor {
	if p == "" {
		p = DarkBars
	}
	return &Extractor{polarity: p}
}

// Polarity returns the configured polarity.
func (e *Extractor) Polarity() Polarity { return e.polarity }

// Extract samples img between p1 and p2 and returns exactly Length bits.
func (e *Extractor) Extract(img *raster.Plane, p1, p2 utils.Point) (Bits, error) {
	bits, _, err := e.ExtractTrace(img, p1, p2)
	return bits, err
}

// ExtractTrace is Extract that also reports the intermediate values.
func (e *Extractor) ExtractTrace(img *raster.Plane, p1, p2 utils.Point) (Bits, *Trace, error) {
	if !p1.IsFinite() || !p2.IsFinite() || p1 == p2 {
		return nil, nil, &ExtractionError{Kind: DegenerateRay}
	}

	n := max(int(math.Round(p1.Dist(p2))), Length)
	raw := e.sample(img, p1, p2, n)
	tr := &Trace{Raw: raw, RawSamples: n}

	// Coarse pass: only locates the foreground span.
	tr.Coarse = threshold.Otsu(raw)
	coarse := threshold.Binarize(raw, tr.Coarse)
	first, last := -1, -1
	for i, b := range coarse {
		if b == 1 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, tr, &ExtractionError{Kind: NoUsefulRegion, Samples: n}
	}

	denom := float64(n - 1)
	tr.UsefulP1 = utils.Lerp(p1, p2, float64(first)/denom)
	tr.UsefulP2 = utils.Lerp(p1, p2, float64(last)/denom)
	tr.Unit = max(1, int(math.Round(tr.UsefulP1.Dist(tr.UsefulP2)/Length)))

	// Fine pass: threshold recomputed on the useful span alone.
	tr.Resampled = Length * tr.Unit
	fine := e.sample(img, tr.UsefulP1, tr.UsefulP2, tr.Resampled)
	tr.Fine = threshold.Otsu(fine)
	bits := Bits(threshold.Binarize(fine, tr.Fine))

	if len(bits) != Length {
		bits = decimate(bits, Length)
	}
	if len(bits) < Length {
		return nil, tr, &ExtractionError{Kind: TooShort, Samples: len(bits)}
	}
	return bits, tr, nil
}

// sample reads n bilinear samples at t = linspace(0, 1, n) along p1-p2.
func (e *Extractor) sample(img *raster.Plane, p1, p2 utils.Point, n int) []float64 {
	out := make([]float64, n)
	for i := range n {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		p := utils.Lerp(p1, p2, t)
		v := img.Bilinear(p.X, p.Y)
		if e.polarity == DarkBars {
			v = raster.MaxValue - v
		}
		out[i] = v
	}
	return out
}

// decimate picks m elements at indices round(linspace(0, len-1, m)).
func decimate(bits Bits, m int) Bits {
	if len(bits) == 0 {
		return bits
	}
	out := make(Bits, m)
	last := float64(len(bits) - 1)
	for i := range m {
		idx := 0
		if m > 1 {
			idx = int(math.RoundToEven(float64(i) * last / float64(m-1)))
		}
		out[i] = bits[idx]
	}
	return out
}
