package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/eanscan/internal/ean13"
)

// BarcodeConfig describes a synthetic EAN-13 rendering.
type BarcodeConfig struct {
	Code        string
	ModuleWidth int // pixels per module
	BarHeight   int
	QuietZone   int // modules of background left and right of the guards
	Margin      int // pixels above and below the bars
	Caption     bool
	Rotation    float64 // degrees, counter-clockwise, applied last
	Background  color.Color
	Foreground  color.Color
}

// DefaultBarcodeConfig renders the sample code at 4 px per module.
func DefaultBarcodeConfig() BarcodeConfig {
	return BarcodeConfig{
		Code:        "4006381333931",
		ModuleWidth: 4,
		BarHeight:   120,
		QuietZone:   10,
		Margin:      40,
		Background:  color.White,
		Foreground:  color.Black,
	}
}

// BarcodeLayout locates the rendered symbol before rotation.
type BarcodeLayout struct {
	// Bars spans the modules from the first guard bar to the last, in pixels.
	Bars        image.Rectangle
	ModuleWidth int
	Bits        []uint8
}

// MidRay returns horizontal endpoints through the middle of the bars,
// starting and ending half a quiet zone outside the guards.
func (l BarcodeLayout) MidRay() (x1, y1, x2, y2 float64) {
	y := float64(l.Bars.Min.Y+l.Bars.Max.Y) / 2
	pad := float64(5 * l.ModuleWidth)
	return float64(l.Bars.Min.X) - pad, y, float64(l.Bars.Max.X) + pad, y
}

// GenerateBarcode renders cfg.Code as an EAN-13 symbol.
func GenerateBarcode(cfg BarcodeConfig) (*image.NRGBA, BarcodeLayout, error) {
	bits, err := ean13.Encode(cfg.Code)
	if err != nil {
		return nil, BarcodeLayout{}, fmt.Errorf("encode %q: %w", cfg.Code, err)
	}
	if cfg.ModuleWidth <= 0 || cfg.BarHeight <= 0 {
		return nil, BarcodeLayout{}, fmt.Errorf("invalid module width %d or bar height %d", cfg.ModuleWidth, cfg.BarHeight)
	}
	if cfg.Background == nil {
		cfg.Background = color.White
	}
	if cfg.Foreground == nil {
		cfg.Foreground = color.Black
	}

	face := basicfont.Face7x13
	captionH := 0
	if cfg.Caption {
		captionH = face.Metrics().Height.Ceil() + 4
	}

	x0 := cfg.QuietZone * cfg.ModuleWidth
	y0 := cfg.Margin
	width := 2*x0 + len(bits)*cfg.ModuleWidth
	height := 2*cfg.Margin + cfg.BarHeight + captionH

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)
	fg := &image.Uniform{cfg.Foreground}
	for i, b := range bits {
		if b == 0 {
			continue
		}
		x := x0 + i*cfg.ModuleWidth
		draw.Draw(img, image.Rect(x, y0, x+cfg.ModuleWidth, y0+cfg.BarHeight), fg, image.Point{}, draw.Src)
	}

	layout := BarcodeLayout{
		Bars:        image.Rect(x0, y0, x0+len(bits)*cfg.ModuleWidth, y0+cfg.BarHeight),
		ModuleWidth: cfg.ModuleWidth,
		Bits:        bits,
	}

	if cfg.Caption {
		d := &font.Drawer{Dst: img, Src: fg, Face: face}
		textW := font.MeasureString(face, cfg.Code).Ceil()
		d.Dot = fixed.P((width-textW)/2, y0+cfg.BarHeight+captionH)
		d.DrawString(cfg.Code)
	}

	if cfg.Rotation != 0 {
		return imaging.Rotate(img, cfg.Rotation, cfg.Background), layout, nil
	}
	return img, layout, nil
}

// StripeConfig describes a block of vertical stripes on a flat background.
type StripeConfig struct {
	Width, Height int
	Block         image.Rectangle
	Period        int // pixels per dark+light pair
}

// GenerateStripes renders dark/light stripes of equal width inside Block on
// a white background.
func GenerateStripes(cfg StripeConfig) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cfg.Width, cfg.Height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	half := max(1, cfg.Period/2)
	for y := cfg.Block.Min.Y; y < cfg.Block.Max.Y; y++ {
		for x := cfg.Block.Min.X; x < cfg.Block.Max.X; x++ {
			if ((x-cfg.Block.Min.X)/half)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

// Uniform returns a flat gray image.
func Uniform(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}
