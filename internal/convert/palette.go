// Package convert reduces calendar snapshots to the few inks that
// e-paper signage panels can show.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
)

// Palette selects the output colors of Reduce.
type Palette int

const (
	// PaletteFull keeps the screenshot as captured.
	PaletteFull Palette = iota
	// PaletteMono is black and white.
	PaletteMono
	// PaletteTriColor is black, red and white.
	PaletteTriColor
)

var (
	white = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	black = color.NRGBA{A: 0xFF}
	red   = color.NRGBA{R: 0xFF, A: 0xFF}
)

// ParsePalette maps "full" (or ""), "bw" and "bwr" to a Palette.
func ParsePalette(s string) (Palette, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return PaletteFull, nil
	case "bw", "mono":
		return PaletteMono, nil
	case "bwr", "tricolor":
		return PaletteTriColor, nil
	default:
		return PaletteFull, fmt.Errorf("convert: unknown palette %q", s)
	}
}

func (p Palette) String() string {
	switch p {
	case PaletteMono:
		return "bw"
	case PaletteTriColor:
		return "bwr"
	default:
		return "full"
	}
}

func (p Palette) colors() color.Palette {
	if p == PaletteTriColor {
		return color.Palette{white, black, red}
	}
	return color.Palette{white, black}
}

// Reduce maps every pixel of src to an ink of p. PaletteFull returns src
// unchanged.
func Reduce(src image.Image, p Palette) image.Image {
	if p == PaletteFull {
		return src
	}

	b := src.Bounds()
	dst := image.NewPaletted(b, p.colors())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			switch classifyPixel(c) {
			case inkBlack:
				dst.SetColorIndex(x, y, 1)
			case inkRed:
				if p == PaletteTriColor {
					dst.SetColorIndex(x, y, 2)
				} else {
					dst.SetColorIndex(x, y, 1)
				}
			}
		}
	}
	return dst
}

// ReducePNG decodes a PNG, reduces it to p and encodes it again.
func ReducePNG(data []byte, p Palette) ([]byte, error) {
	if p == PaletteFull {
		return data, nil
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("convert: decode png: %w", err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, Reduce(img, p)); err != nil {
		return nil, fmt.Errorf("convert: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type inkColor int

const (
	inkWhite inkColor = iota
	inkBlack
	inkRed
)

// classifyPixel picks the ink for one pixel. Thresholds are empirical:
//
//   - alpha below 128 is paper;
//   - luma Y = 0.299R + 0.587G + 0.114B below 64 is black;
//   - R above 128 with R - max(G, B) above 32 is red;
//   - anything else is white.
func classifyPixel(c color.NRGBA) inkColor {
	if c.A < 128 {
		return inkWhite
	}

	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	y := 0.299*r + 0.587*g + 0.114*b
	if y < 64 {
		return inkBlack
	}

	redness := r - max(g, b)
	if r > 128 && redness > 32 {
		return inkRed
	}
	return inkWhite
}
