package signature

import "fmt"

// ErrorKind classifies extraction failures.
type ErrorKind int

const (
	// NoUsefulRegion means the first binarization found no foreground.
	NoUsefulRegion ErrorKind = iota
	// TooShort means fewer than Length bits survived resampling.
	TooShort
	// DegenerateRay means the endpoints coincide or are not finite.
	DegenerateRay
)

func (k ErrorKind) String() string {
	switch k {
	case NoUsefulRegion:
		return "no_useful_region"
	case TooShort:
		return "too_short"
	case DegenerateRay:
		return "degenerate_ray"
	default:
		return "unknown"
	}
}

// ExtractionError reports why no signature could be produced.
type ExtractionError struct {
	Kind ErrorKind
	// Samples is the number of values the failing step looked at.
	Samples int
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case NoUsefulRegion:
		return fmt.Sprintf("no useful region along ray (%d samples)", e.Samples)
	case TooShort:
		return fmt.Sprintf("signature too short: %d bits, want %d", e.Samples, Length)
	case DegenerateRay:
		return "degenerate ray: endpoints must differ"
	default:
		return "signature extraction failed"
	}
}
