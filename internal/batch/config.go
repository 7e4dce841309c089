package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	Workers int

	// File discovery
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	PageRange       string // pages scanned in PDF inputs, empty for all

	// Output
	OverlayDir     string
	OverlayOptions pipeline.OverlayOptions

	// Progress
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// Item is the outcome for one image (or one PDF page image).
type Item struct {
	Path   string           `json:"file"`
	Page   int              `json:"page,omitempty"`
	Result *pipeline.Result `json:"result,omitempty"`
	Err    error            `json:"-"`
}

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Failed counts the items without a decoded code.
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil || it.Result == nil {
			n++
		}
	}
	return n
}

// Results returns the decode results in item order, nil for failures.
func (r *Result) Results() []*pipeline.Result {
	out := make([]*pipeline.Result, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Result
	}
	return out
}

// Errors returns the per-item errors in item order.
func (r *Result) Errors() []error {
	out := make([]error, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Err
	}
	return out
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Items, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if outputFile == "" {
		_, err := fmt.Fprint(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := pipeline.CalculateParallelStats(r.Results(), r.Errors(), r.Duration, r.WorkerCount)
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Decoded: %d\n", stats.DecodedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Attempts: %d\n", stats.TotalAttempts)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
