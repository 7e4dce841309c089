package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/eanscan/internal/config"
	"github.com/MeKo-Tech/eanscan/internal/lookup"
	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// buildPipeline creates the pipeline described by cfg. The returned close
// function releases the lookup store, if one was opened.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func() error, error) {
	b := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig())
	closeFn := func() error { return nil }

	if cfg.Lookup.Path != "" {
		store, err := lookup.Open(cfg.Lookup.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open lookup %s: %w", cfg.Lookup.Path, err)
		}
		b = b.WithLookup(store)
		closeFn = store.Close
	}

	pl, err := b.Build()
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return pl, closeFn, nil
}

func overlayOptions(cfg *config.Config) (pipeline.OverlayOptions, error) {
	return pipeline.ParseOverlayOptions(cfg.Output.OverlayColor, cfg.Output.RayColor)
}

// parseRay parses "x1,y1,x2,y2".
func parseRay(s string) ([2]utils.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [2]utils.Point{}, fmt.Errorf("invalid ray %q: want x1,y1,x2,y2", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [2]utils.Point{}, fmt.Errorf("invalid ray %q: %w", s, err)
		}
		v[i] = f
	}
	return [2]utils.Point{{X: v[0], Y: v[1]}, {X: v[2], Y: v[3]}}, nil
}
