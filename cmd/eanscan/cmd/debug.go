package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/segment"
)

// debugBase turns an input name like scans/a.pdf#2 into a_p2.
func debugBase(name string) string {
	page := ""
	if i := strings.LastIndex(name, "#"); i >= 0 {
		page = "_p" + name[i+1:]
		name = name[:i]
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + page
}

// writeDebugMaps writes the coherence, incoherence and mask maps of the
// segmentation pass. A failed segmentation still writes what it computed.
func writeDebugMaps(dir string, in inputImage, pl *pipeline.Pipeline) error {
	a, err := pl.Analyze(in.img)
	var se *segment.SegmentationError
	switch {
	case errors.As(err, &se):
		slog.Debug("Segmentation found no region", "file", in.name)
	case err != nil:
		return fmt.Errorf("%s: analyze: %w", in.name, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}

	base := filepath.Join(dir, debugBase(in.name))
	maps := []struct {
		suffix string
		img    image.Image
	}{
		{"_coherence.png", a.CoherenceImage()},
		{"_incoherence.png", a.IncoherenceImage()},
		{"_mask.png", a.MaskImage()},
	}
	for _, m := range maps {
		if err := imaging.Save(m.img, base+m.suffix); err != nil {
			return fmt.Errorf("save %s: %w", base+m.suffix, err)
		}
	}
	slog.Debug("Wrote debug maps", "file", in.name, "components", a.Components, "prefix", base)
	return nil
}

// writeDebugAttempts writes every attempt with its extraction trace, for
// failed decodes as well as successful ones.
func writeDebugAttempts(dir string, in inputImage, attempts []pipeline.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(attempts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	path := filepath.Join(dir, debugBase(in.name)+"_attempts.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// attemptsOf returns the attempts behind a decode outcome.
func attemptsOf(res *pipeline.Result, err error) []pipeline.Attempt {
	if res != nil {
		return res.Attempts
	}
	var nde *pipeline.NoDecodeError
	if errors.As(err, &nde) {
		return nde.Attempts
	}
	return nil
}
