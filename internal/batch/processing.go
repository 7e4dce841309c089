package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/eanscan/internal/pdf"
	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// source is one decodable picture: an image file or one image of a PDF page.
type source struct {
	path string
	page int
	img  image.Image
}

func (s source) name() string {
	if s.page > 0 {
		return s.path + "#" + strconv.Itoa(s.page)
	}
	return s.path
}

// loadAndValidateImage loads an image and validates it meets constraints.
func loadAndValidateImage(path string) (image.Image, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// loadSources expands one path into its sources. PDF documents yield one
// source per embedded image.
func loadSources(path, pageRange string) ([]source, error) {
	if !utils.IsPDF(path) {
		img, err := loadAndValidateImage(path)
		if err != nil {
			return nil, err
		}
		return []source{{path: path, img: img}}, nil
	}

	pages, err := pdf.ExtractImages(path, pageRange)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: no images in PDF", path)
	}
	out := make([]source, 0, len(pages))
	for _, p := range pages {
		out = append(out, source{path: path, page: p.Page, img: p.Image})
	}
	return out, nil
}

// decodeSources loads every path and decodes all sources with the worker
// pool. Load failures become failed items in place.
func decodeSources(ctx context.Context, pl *pipeline.Pipeline, paths []string, cfg *Config,
	progress pipeline.ProgressCallback) ([]Item, error) {
	var (
		items   []Item
		images  []image.Image
		targets []int // item index per image
		sources []source
	)
	for _, path := range paths {
		srcs, err := loadSources(path, cfg.PageRange)
		if err != nil {
			slog.Warn("Skipping input", "file", path, "error", err)
			items = append(items, Item{Path: path, Err: err})
			continue
		}
		for _, s := range srcs {
			targets = append(targets, len(items))
			items = append(items, Item{Path: s.path, Page: s.page})
			images = append(images, s.img)
			sources = append(sources, s)
		}
	}
	if len(images) == 0 {
		return items, nil
	}

	results, errs, err := pl.DecodeImages(ctx, images, pipeline.ParallelConfig{
		MaxWorkers:       cfg.Workers,
		ProgressCallback: progress,
	})
	if err != nil {
		return nil, err
	}

	for i, idx := range targets {
		src := sources[i]
		if errs[i] != nil {
			items[idx].Err = fmt.Errorf("%s: %w", src.name(), unwrapIndex(errs[i]))
			continue
		}
		res := results[i]
		res.Source = src.name()
		items[idx].Result = res
		if cfg.OverlayDir != "" {
			if err := saveOverlay(src, res, cfg); err != nil {
				slog.Warn("Failed to write overlay", "file", src.name(), "error", err)
			}
		}
	}
	return items, nil
}

// unwrapIndex drops the "image N:" prefix DecodeImages adds; batch items
// are named by file instead.
func unwrapIndex(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}

// saveOverlay renders the decode overlay to <overlay-dir>/<base>[_p<page>]_overlay.png.
func saveOverlay(src source, res *pipeline.Result, cfg *Config) error {
	opts := cfg.OverlayOptions
	if opts.RegionColor == nil || opts.RayColor == nil {
		opts = pipeline.DefaultOverlayOptions()
	}
	ov := pipeline.RenderOverlay(src.img, res, opts)
	if ov == nil {
		return nil
	}
	if err := os.MkdirAll(cfg.OverlayDir, 0o750); err != nil {
		return err
	}
	f, err := os.Create(overlayPath(cfg.OverlayDir, src)) //nolint:gosec // overlay dir comes from the CLI
	if err != nil {
		return err
	}
	if err := png.Encode(f, ov); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func overlayPath(dir string, src source) string {
	base := filepath.Base(src.path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if src.page > 0 {
		stem += "_p" + strconv.Itoa(src.page)
	}
	return filepath.Join(dir, stem+"_overlay.png")
}
