package segment

import "fmt"

// SegmentationError reports that no coherent region survived masking.
type SegmentationError struct {
	Width, Height int
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("no coherent region found in %dx%d image", e.Width, e.Height)
}
