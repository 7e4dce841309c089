package pipeline

import (
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// OverlayOptions controls RenderOverlay.
type OverlayOptions struct {
	RegionColor color.Color
	RayColor    color.Color
	Thickness   int
	// AllAttempts also draws failed rays, faded.
	AllAttempts bool
}

// DefaultOverlayOptions draws a red region and a green ray.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		RegionColor: color.RGBA{R: 255, A: 255},
		RayColor:    color.RGBA{G: 255, A: 255},
		Thickness:   2,
	}
}

// ParseOverlayOptions builds options from hex colors such as "#ff0000".
func ParseOverlayOptions(regionHex, rayHex string) (OverlayOptions, error) {
	opts := DefaultOverlayOptions()
	if regionHex != "" {
		c, err := colorful.Hex(regionHex)
		if err != nil {
			return opts, fmt.Errorf("region color: %w", err)
		}
		opts.RegionColor = c
	}
	if rayHex != "" {
		c, err := colorful.Hex(rayHex)
		if err != nil {
			return opts, fmt.Errorf("ray color: %w", err)
		}
		opts.RayColor = c
	}
	return opts, nil
}

// RenderOverlay draws the detected region and the decoding ray over a copy
// of img.
func RenderOverlay(img image.Image, res *Result, opts OverlayOptions) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.ToRGBA(img)
	if res == nil {
		return dst
	}
	if opts.Thickness <= 0 {
		opts.Thickness = 1
	}
	if res.Region != nil {
		utils.DrawPolygon(dst, res.Region.Corners[:], opts.RegionColor, opts.Thickness)
		utils.DrawMarker(dst, res.Region.Centroid, opts.RegionColor, 2*opts.Thickness+1)
	}
	if opts.AllAttempts {
		faded := fade(opts.RayColor)
		for _, at := range res.Attempts {
			if !at.OK() {
				utils.DrawLine(dst, at.Ray.P1, at.Ray.P2, faded, 1)
			}
		}
	}
	if res.Code != "" {
		utils.DrawLine(dst, res.Ray.P1, res.Ray.P2, opts.RayColor, opts.Thickness)
		utils.DrawMarker(dst, res.Ray.P1, opts.RayColor, 2*opts.Thickness+1)
		utils.DrawMarker(dst, res.Ray.P2, opts.RayColor, 2*opts.Thickness+1)
	}
	return dst
}

// fade blends c halfway towards white in Lab space.
func fade(c color.Color) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	return cf.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.5).Clamped()
}
