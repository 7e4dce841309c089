package pipeline

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/MeKo-Tech/eanscan/internal/raster"
	"github.com/MeKo-Tech/eanscan/internal/ray"
	"github.com/MeKo-Tech/eanscan/internal/segment"
	"github.com/MeKo-Tech/eanscan/internal/signature"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// DefaultMaxAttempts is the retry budget of the autonomous decode loop.
const DefaultMaxAttempts = 20

// Config holds the configuration of the whole decode pipeline.
type Config struct {
	Segment      segment.Config
	Polarity     signature.Polarity
	Strategy     ray.Strategy
	MaxAttempts  int
	Seed         uint64 // 0 draws a random seed
	MaxDimension int    // longest side before segmentation, 0 keeps the input size
	Parallel     ParallelConfig
}

// DefaultConfig returns a default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Segment:      segment.DefaultConfig(),
		Polarity:     signature.DarkBars,
		Strategy:     ray.StrategyDiameter,
		MaxAttempts:  DefaultMaxAttempts,
		MaxDimension: 0,
		Parallel:     DefaultParallelConfig(),
	}
}

// Segmenter locates the barcode region of a plane.
type Segmenter interface {
	Segment(img *raster.Plane) (segment.Region, error)
}

// RayGenerator draws candidate scan rays across a region.
type RayGenerator interface {
	Next(corners [4]utils.Point) (ray.Ray, error)
}

// Extractor reduces a ray to a bit signature.
type Extractor interface {
	Extract(img *raster.Plane, p1, p2 utils.Point) (signature.Bits, error)
}

// TracingExtractor is an Extractor that also reports its intermediate
// values. Attempts carry the trace when the extractor provides one.
type TracingExtractor interface {
	Extractor
	ExtractTrace(img *raster.Plane, p1, p2 utils.Point) (signature.Bits, *signature.Trace, error)
}

// Analyzer is a Segmenter that can expose its intermediate maps.
type Analyzer interface {
	Analyze(img *raster.Plane) (*segment.Analysis, error)
}

// Lookup answers whether a decoded code is known.
type Lookup interface {
	Contains(code string) (bool, error)
}

// Builder provides a fluent API to configure and build a pipeline.
type Builder struct {
	cfg    Config
	lookup Lookup
}

// NewBuilder creates a new builder with defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithNoiseSigma sets the regularizing noise added before segmentation.
func (b *Builder) WithNoiseSigma(sigma float64) *Builder {
	if sigma >= 0 {
		b.cfg.Segment.NoiseSigma = sigma
	}
	return b
}

// WithGradientSigma sets the derivative-of-Gaussian scale.
func (b *Builder) WithGradientSigma(sigma float64) *Builder {
	if sigma > 0 {
		b.cfg.Segment.GradientSigma = sigma
	}
	return b
}

// WithTensorSigma sets the structure tensor integration scale.
func (b *Builder) WithTensorSigma(sigma float64) *Builder {
	if sigma > 0 {
		b.cfg.Segment.TensorSigma = sigma
	}
	return b
}

// WithCoherenceThreshold sets the anisotropy cutoff.
func (b *Builder) WithCoherenceThreshold(th float64) *Builder {
	if th > 0 && th < 1 {
		b.cfg.Segment.CoherenceThreshold = th
	}
	return b
}

// WithMorphology sets the closing and opening element sizes.
func (b *Builder) WithMorphology(closeSize, openSize int) *Builder {
	if closeSize >= 0 {
		b.cfg.Segment.CloseSize = closeSize
	}
	if openSize >= 0 {
		b.cfg.Segment.OpenSize = openSize
	}
	return b
}

// WithRegionMode selects oriented or axis-aligned corners.
func (b *Builder) WithRegionMode(mode segment.RegionMode) *Builder {
	if mode != "" {
		b.cfg.Segment.Mode = mode
	}
	return b
}

// WithStrategy selects the ray generation strategy.
func (b *Builder) WithStrategy(s ray.Strategy) *Builder {
	if s != "" {
		b.cfg.Strategy = s
	}
	return b
}

// WithPolarity selects which intensities are bars.
func (b *Builder) WithPolarity(p signature.Polarity) *Builder {
	if p != "" {
		b.cfg.Polarity = p
	}
	return b
}

// WithMaxAttempts sets the retry budget.
func (b *Builder) WithMaxAttempts(n int) *Builder {
	if n > 0 {
		b.cfg.MaxAttempts = n
	}
	return b
}

// WithSeed fixes the random sources. Zero keeps them randomly seeded.
func (b *Builder) WithSeed(seed uint64) *Builder {
	b.cfg.Seed = seed
	return b
}

// WithMaxDimension downsizes large inputs before segmentation.
func (b *Builder) WithMaxDimension(n int) *Builder {
	if n >= 0 {
		b.cfg.MaxDimension = n
	}
	return b
}

// WithParallelWorkers sets the number of parallel workers for DecodeImages.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for DecodeImages.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithLookup attaches the store used to flag known codes.
func (b *Builder) WithLookup(l Lookup) *Builder {
	b.lookup = l
	return b
}

// Config returns the current builder config (copy).
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the builder configuration.
func (b *Builder) Validate() error {
	if err := b.cfg.Segment.Validate(); err != nil {
		return fmt.Errorf("segment config: %w", err)
	}
	if _, err := signature.ParsePolarity(string(b.cfg.Polarity)); err != nil {
		return err
	}
	if _, err := ray.ParseStrategy(string(b.cfg.Strategy)); err != nil {
		return err
	}
	if b.cfg.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if b.cfg.MaxDimension < 0 {
		return errors.New("max dimension must be >= 0")
	}
	return nil
}

// Build constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	cfg := b.cfg
	if cfg.Parallel.MaxWorkers <= 0 {
		cfg.Parallel.MaxWorkers = runtime.NumCPU()
	}

	noise, angles := seededSources(cfg.Seed)
	seg, err := segment.New(cfg.Segment, noise)
	if err != nil {
		return nil, fmt.Errorf("create segmenter: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		Segmenter: seg,
		Rays:      ray.NewGenerator(cfg.Strategy, angles),
		Extractor: signature.NewExtractor(cfg.Polarity),
		Lookup:    b.lookup,
	}, nil
}

// seededSources returns independent noise and angle sources. A zero seed
// returns nil so the consumers seed themselves randomly.
func seededSources(seed uint64) (noise, angles *rand.Rand) {
	if seed == 0 {
		return nil, nil
	}
	return rand.New(rand.NewPCG(seed, 1)), rand.New(rand.NewPCG(seed, 2))
}

// Pipeline chains segmentation, ray generation, extraction and decoding.
// The stage fields may be replaced before first use.
type Pipeline struct {
	cfg Config

	Segmenter Segmenter
	Rays      RayGenerator
	Extractor Extractor
	Lookup    Lookup
}

// Config returns the pipeline configuration (copy).
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]interface{} {
	return map[string]interface{}{
		"segment": map[string]interface{}{
			"noise_sigma":         p.cfg.Segment.NoiseSigma,
			"gradient_sigma":      p.cfg.Segment.GradientSigma,
			"tensor_sigma":        p.cfg.Segment.TensorSigma,
			"coherence_threshold": p.cfg.Segment.CoherenceThreshold,
			"close_size":          p.cfg.Segment.CloseSize,
			"open_size":           p.cfg.Segment.OpenSize,
			"region_mode":         string(p.cfg.Segment.Mode),
		},
		"polarity":      string(p.cfg.Polarity),
		"strategy":      string(p.cfg.Strategy),
		"max_attempts":  p.cfg.MaxAttempts,
		"max_dimension": p.cfg.MaxDimension,
		"seeded":        p.cfg.Seed != 0,
		"lookup":        p.Lookup != nil,
	}
}
