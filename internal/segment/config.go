package segment

import "fmt"

// RegionMode selects how the winning component is turned into corners.
type RegionMode string

const (
	// ModeOriented fits a PCA-aligned quadrilateral.
	ModeOriented RegionMode = "oriented"
	// ModeBox uses the axis-aligned bounding box.
	ModeBox RegionMode = "bbox"
)

// Config holds the segmentation parameters.
type Config struct {
	NoiseSigma         float64    // std-dev of the regularizing noise on [0,1] luma
	GradientSigma      float64    // scale of the derivative-of-Gaussian kernels
	TensorSigma        float64    // integration scale of the structure tensor
	CoherenceThreshold float64    // anisotropy cutoff for the barcode mask
	CloseSize          int        // closing structuring element (square side)
	OpenSize           int        // opening structuring element (square side)
	Mode               RegionMode // corner construction
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		NoiseSigma:         0.02,
		GradientSigma:      1.8,
		TensorSigma:        18,
		CoherenceThreshold: 0.3,
		CloseSize:          3,
		OpenSize:           2,
		Mode:               ModeOriented,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.NoiseSigma < 0 {
		return fmt.Errorf("invalid noise sigma: %.3f (must be >= 0)", c.NoiseSigma)
	}
	if c.GradientSigma <= 0 {
		return fmt.Errorf("invalid gradient sigma: %.3f (must be > 0)", c.GradientSigma)
	}
	if c.TensorSigma <= 0 {
		return fmt.Errorf("invalid tensor sigma: %.3f (must be > 0)", c.TensorSigma)
	}
	if c.CoherenceThreshold < 0 || c.CoherenceThreshold >= 1 {
		return fmt.Errorf("invalid coherence threshold: %.2f (must be in [0, 1))", c.CoherenceThreshold)
	}
	if c.CloseSize < 0 || c.OpenSize < 0 {
		return fmt.Errorf("invalid structuring element size: close=%d open=%d", c.CloseSize, c.OpenSize)
	}
	switch c.Mode {
	case ModeOriented, ModeBox:
	default:
		return fmt.Errorf("invalid region mode: %q (must be %q or %q)", c.Mode, ModeOriented, ModeBox)
	}
	return nil
}
