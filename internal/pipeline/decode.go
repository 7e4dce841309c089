package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/eanscan/internal/ean13"
	"github.com/MeKo-Tech/eanscan/internal/raster"
	"github.com/MeKo-Tech/eanscan/internal/ray"
	"github.com/MeKo-Tech/eanscan/internal/segment"
	"github.com/MeKo-Tech/eanscan/internal/signature"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// ErrInvalidRay is returned for manual rays that cannot be sampled.
var ErrInvalidRay = errors.New("invalid ray")

// NoDecodeError is returned when every attempt of the retry loop failed.
type NoDecodeError struct {
	Attempts []Attempt
	Last     error
}

func (e *NoDecodeError) Error() string {
	return fmt.Sprintf("no valid EAN-13 code after %d attempts: %v", len(e.Attempts), e.Last)
}

func (e *NoDecodeError) Unwrap() error { return e.Last }

// IsNotFound reports whether err means the image holds no readable symbol
// rather than a processing failure.
func IsNotFound(err error) bool {
	var (
		nde *NoDecodeError
		se  *segment.SegmentationError
		ee  *signature.ExtractionError
		de  *ean13.DecodeError
	)
	return errors.As(err, &nde) || errors.As(err, &se) || errors.As(err, &ee) || errors.As(err, &de)
}

// Attempt is the outcome of one ray.
type Attempt struct {
	Index  int              `json:"index"`
	Ray    ray.Ray          `json:"ray"`
	Code   string           `json:"code,omitempty"`
	Bits   string           `json:"bits,omitempty"`
	Stage  string           `json:"stage,omitempty"`  // extract or decode, set on failure
	Reason string           `json:"reason,omitempty"` // error kind
	Error  string           `json:"error,omitempty"`
	Trace  *signature.Trace `json:"trace,omitempty"`
}

// OK reports whether the attempt produced a valid code.
func (a Attempt) OK() bool { return a.Code != "" }

// Result is the per-image decode output.
type Result struct {
	Source      string          `json:"source,omitempty"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Code        string          `json:"code"`
	Known       *bool           `json:"known,omitempty"`
	LookupError string          `json:"lookup_error,omitempty"` // lookup configured but failed
	Manual      bool            `json:"manual"`
	Region      *segment.Region `json:"region,omitempty"`
	Ray         ray.Ray         `json:"ray"`
	Bits        string          `json:"bits"`
	Attempts    []Attempt       `json:"attempts"`
	Scale       float64         `json:"scale,omitempty"`

	Processing struct {
		SegmentNs int64 `json:"segment_ns"`
		DecodeNs  int64 `json:"decode_ns"`
		TotalNs   int64 `json:"total_ns"`
	} `json:"processing"`
}

// Segment converts img to a plane and returns its barcode region.
func (p *Pipeline) Segment(img image.Image) (segment.Region, error) {
	plane, err := raster.FromImage(img)
	if err != nil {
		return segment.Region{}, err
	}
	return p.Segmenter.Segment(plane)
}

// DecodeOnce extracts the signature under r and decodes it. Failures are
// described in the returned Attempt as well as in the error.
func (p *Pipeline) DecodeOnce(img *raster.Plane, r ray.Ray) (Attempt, error) {
	at := Attempt{Ray: r}
	var (
		bits signature.Bits
		err  error
	)
	if te, ok := p.Extractor.(TracingExtractor); ok {
		bits, at.Trace, err = te.ExtractTrace(img, r.P1, r.P2)
	} else {
		bits, err = p.Extractor.Extract(img, r.P1, r.P2)
	}
	if err != nil {
		at.fail("extract", err)
		return at, err
	}
	at.Bits = bits.String()
	code, err := ean13.Decode(bits)
	if err != nil {
		at.fail("decode", err)
		return at, err
	}
	at.Code = code
	return at, nil
}

func (a *Attempt) fail(stage string, err error) {
	a.Stage = stage
	a.Error = err.Error()
	var ee *signature.ExtractionError
	var de *ean13.DecodeError
	switch {
	case errors.As(err, &ee):
		a.Reason = ee.Kind.String()
	case errors.As(err, &de):
		a.Reason = de.Kind.String()
	}
}

// DecodeRay runs exactly one attempt along the manual ray p1-p2.
func (p *Pipeline) DecodeRay(ctx context.Context, img image.Image, p1, p2 utils.Point) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	plane, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	if err := validateRay(plane, p1, p2); err != nil {
		return nil, err
	}

	r := ray.Ray{P1: p1, P2: p2}
	at, err := p.DecodeOnce(plane, r)
	if err != nil {
		return nil, fmt.Errorf("decode along %s: %w", r, err)
	}
	res := &Result{Width: plane.Width, Height: plane.Height, Manual: true, Scale: 1}
	res.succeed(at)
	res.Attempts = []Attempt{at}
	res.Processing.DecodeNs = time.Since(start).Nanoseconds()
	res.Processing.TotalNs = res.Processing.DecodeNs
	p.markKnown(res)
	return res, nil
}

func validateRay(plane *raster.Plane, p1, p2 utils.Point) error {
	if !p1.IsFinite() || !p2.IsFinite() {
		return fmt.Errorf("%w: endpoints must be finite", ErrInvalidRay)
	}
	if p1 == p2 {
		return fmt.Errorf("%w: endpoints coincide at (%.1f, %.1f)", ErrInvalidRay, p1.X, p1.Y)
	}
	for _, pt := range []utils.Point{p1, p2} {
		if !plane.Bounds(pt.X, pt.Y) {
			return fmt.Errorf("%w: (%.1f, %.1f) outside %dx%d image", ErrInvalidRay, pt.X, pt.Y, plane.Width, plane.Height)
		}
	}
	return nil
}

// DecodeImage segments img and tries random rays across the region until a
// valid code is read or the attempt budget is spent. Exhaustion returns a
// *NoDecodeError holding every attempt.
func (p *Pipeline) DecodeImage(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	start := time.Now()

	plane, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	small, scale := p.segmentationPlane(img, plane)

	region, err := p.Segmenter.Segment(small)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	if scale != 1 {
		region = scaleRegion(region, 1/scale)
	}
	segmentDone := time.Now()

	res := &Result{Width: plane.Width, Height: plane.Height, Region: &region, Scale: scale}
	var last error
	for i := range p.cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := p.Rays.Next(region.Corners)
		if err != nil {
			return nil, fmt.Errorf("generate ray: %w", err)
		}
		at, err := p.DecodeOnce(plane, r)
		at.Index = i
		res.Attempts = append(res.Attempts, at)
		if err != nil {
			last = err
			slog.Debug("Decode attempt failed", "attempt", i, "stage", at.Stage, "error", err)
			continue
		}
		slog.Debug("Decode attempt succeeded", "attempt", i, "code", at.Code)
		res.succeed(at)
		res.Processing.SegmentNs = segmentDone.Sub(start).Nanoseconds()
		res.Processing.DecodeNs = time.Since(segmentDone).Nanoseconds()
		res.Processing.TotalNs = time.Since(start).Nanoseconds()
		p.markKnown(res)
		return res, nil
	}
	return nil, &NoDecodeError{Attempts: res.Attempts, Last: last}
}

// Analyze segments img the way DecodeImage does and returns the
// intermediate maps, in the coordinates of the segmentation plane. On
// segmentation failure the partial analysis comes back with the error.
func (p *Pipeline) Analyze(img image.Image) (*segment.Analysis, error) {
	an, ok := p.Segmenter.(Analyzer)
	if !ok {
		return nil, errors.New("segmenter does not expose its analysis")
	}
	plane, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	small, _ := p.segmentationPlane(img, plane)
	return an.Analyze(small)
}

// segmentationPlane returns the plane segmentation runs on and its scale
// relative to the full plane.
func (p *Pipeline) segmentationPlane(img image.Image, full *raster.Plane) (*raster.Plane, float64) {
	if p.cfg.MaxDimension <= 0 {
		return full, 1
	}
	fitted, scale := utils.FitImage(img, p.cfg.MaxDimension)
	if scale == 1 {
		return full, 1
	}
	small, err := raster.FromImage(fitted)
	if err != nil {
		return full, 1
	}
	return small, scale
}

func scaleRegion(r segment.Region, f float64) segment.Region {
	copy(r.Corners[:], utils.ScalePoints(r.Corners[:], f, f))
	r.Box = r.Box.Scale(f, f)
	r.Centroid = r.Centroid.Scale(f)
	r.Area = int(float64(r.Area) * f * f)
	return r
}

func (r *Result) succeed(at Attempt) {
	r.Code = at.Code
	r.Bits = at.Bits
	r.Ray = at.Ray
}

func (p *Pipeline) markKnown(res *Result) {
	if p.Lookup == nil || res.Code == "" {
		return
	}
	known, err := p.Lookup.Contains(res.Code)
	if err != nil {
		slog.Warn("Lookup failed", "code", res.Code, "error", err)
		res.LookupError = err.Error()
		return
	}
	res.Known = &known
}
