package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/eanscan/internal/batch"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir|files>...",
		Short: "Decode barcodes in many images in parallel",
		Long: `Decode every supported image (and PDF) found in the given files and
directories with a pool of workers. Results are reported per file; images
without a valid code are listed with their error.

Examples:
  eanscan batch images/
  eanscan batch scans/ --recursive --include '*.png' --workers 8
  eanscan batch a.jpg b.jpg --format json --output results.json
  eanscan batch images/ --overlay-dir overlays/ --progress --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, args)
		},
	}

	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.StringSlice("include", nil, "only process files matching these patterns")
	f.StringSlice("exclude", nil, "skip files matching these patterns")
	f.IntP("workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	f.String("format", outputFormatText, "output format (text, json, csv)")
	f.StringP("output", "o", "", "write results to file instead of stdout")
	f.String("overlay-dir", "", "write PNG overlays for decoded images to this directory")
	f.String("pages", "", "PDF page range, e.g. 1-3,5")
	f.String("lookup", "", "known-code list (.txt) or database (.db)")
	f.Int("attempts", 0, "maximum number of random rays per image")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.Bool("quiet", false, "suppress progress and status messages")
	f.Bool("stats", false, "print processing statistics to stderr")
	f.Bool("continue-on-error", true, "exit successfully even if some images fail")
	bindFlag(f, "recursive", "batch.recursive")
	bindFlag(f, "include", "batch.include")
	bindFlag(f, "exclude", "batch.exclude")
	bindFlag(f, "workers", "batch.workers")
	bindFlag(f, "format", "output.format")
	bindFlag(f, "output", "output.file")
	bindFlag(f, "lookup", "lookup.path")
	bindFlag(f, "attempts", "decode.max_attempts")
	bindFlag(f, "continue-on-error", "batch.continue_on_error")
	return cmd
}

func runBatch(cmd *cobra.Command, a *app, args []string) error {
	cfg := a.cfg
	overlayDir, _ := cmd.Flags().GetString("overlay-dir")
	pages, _ := cmd.Flags().GetString("pages")
	progress, _ := cmd.Flags().GetBool("progress")
	quiet, _ := cmd.Flags().GetBool("quiet")
	stats, _ := cmd.Flags().GetBool("stats")

	opts, err := overlayOptions(cfg)
	if err != nil {
		return err
	}
	pl, closeLookup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLookup() }()

	bc := &batch.Config{
		Workers:          cfg.Batch.Workers,
		Recursive:        cfg.Batch.Recursive,
		IncludePatterns:  cfg.Batch.Include,
		ExcludePatterns:  cfg.Batch.Exclude,
		PageRange:        pages,
		OverlayDir:       overlayDir,
		OverlayOptions:   opts,
		ShowProgress:     progress,
		Quiet:            quiet,
		ProgressInterval: 100 * time.Millisecond,
		ProgressWriter:   cmd.ErrOrStderr(),
	}

	res, err := batch.ProcessBatch(cmd.Context(), pl, args, bc)
	if err != nil {
		return err
	}
	if err := res.SaveResults(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.File, quiet); err != nil {
		return err
	}
	if stats && !quiet {
		res.PrintStats(cmd.ErrOrStderr())
	}

	if failed := res.Failed(); failed > 0 && !cfg.Batch.ContinueOnError {
		return fmt.Errorf("%d of %d image(s) failed", failed, len(res.Items))
	}
	return nil
}
