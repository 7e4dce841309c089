// Package pdf pulls embedded page images out of PDF documents so they can be
// scanned like ordinary image files.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// PageImage is one image embedded on a page.
type PageImage struct {
	Page  int
	Index int // position among the images of the page
	Image image.Image
}

// ExtractImages extracts the images of the selected pages. An empty page
// range selects every page. The result is ordered by page.
func ExtractImages(filename string, pageRange string) ([]PageImage, error) {
	pages, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "eanscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}
	if err := api.ExtractImagesFile(filename, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	out, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return out, nil
}

// collectExtractedImages loads every decodable image below dir whose name
// carries a page number.
func collectExtractedImages(dir string) ([]PageImage, error) {
	var out []PageImage
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !utils.IsSupportedImage(path) {
			return nil
		}
		page, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return nil
		}
		out = append(out, PageImage{Page: page, Image: img})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	for i := range out {
		if i > 0 && out[i].Page == out[i-1].Page {
			out[i].Index = out[i-1].Index + 1
		}
	}
	return out, nil
}

// parsePageFromFilename reads the page number from a pdfcpu output name.
// pdfcpu writes <base>_<page>_<image>.<ext>; the page is the last numeric
// field before the image name.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, errors.New("not a page image file")
	}
	for i := len(parts) - 2; i >= 1; i-- {
		if n, err := strconv.Atoi(parts[i]); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("no page number in filename")
}

// ParsePageRange parses a page selection like "1-5" or "1,3,5".
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tok, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tok...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	if !isRange {
		return parsePage(part)
	}
	if strings.Contains(hi, "-") {
		return nil, fmt.Errorf("invalid range format: %s", part)
	}
	start, err := parsePage(strings.TrimSpace(lo))
	if err != nil {
		return nil, err
	}
	end, err := parsePage(strings.TrimSpace(hi))
	if err != nil {
		return nil, err
	}
	if start[0] > end[0] {
		return nil, fmt.Errorf("start page %d greater than end page %d", start[0], end[0])
	}
	out := make([]int, 0, end[0]-start[0]+1)
	for i := start[0]; i <= end[0]; i++ {
		out = append(out, i)
	}
	return out, nil
}

func parsePage(s string) ([]int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid page number: %q", s)
	}
	return []int{n}, nil
}
