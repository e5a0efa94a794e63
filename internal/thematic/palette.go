// Package thematic renders class rasters in colour.
package thematic

import (
	"image"
	"image/color"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"isoclass/internal/raster"
)

// ClassShare is one class's share of the classified image.
type ClassShare struct {
	Label      int     `json:"label"`
	Pixels     int     `json:"pixels"`
	Proportion float64 `json:"proportion"`
	Colour     string  `json:"colour"`
}

// Palette returns n distinct colours with evenly spaced hues. The same n
// always yields the same colours.
func Palette(n int) []colorful.Color {
	colours := make([]colorful.Color, n)
	for i := range colours {
		// Alternate value so neighbouring labels stay distinguishable when n is large.
		v := 0.95
		if i%2 == 1 {
			v = 0.75
		}
		colours[i] = colorful.Hsv(360*float64(i)/float64(n), 0.7, v)
	}
	return colours
}

// NaturalColours uses three-band centre means directly as RGB, scaled by
// maxValue. Centres with another band count fall back to Palette.
func NaturalColours(means [][]float64, maxValue float64) []colorful.Color {
	fallback := Palette(len(means))
	colours := make([]colorful.Color, len(means))
	for i, m := range means {
		if len(m) != 3 || maxValue <= 0 {
			colours[i] = fallback[i]
			continue
		}
		colours[i] = colorful.Color{
			R: m[0] / maxValue,
			G: m[1] / maxValue,
			B: m[2] / maxValue,
		}.Clamped()
	}
	return colours
}

// Render maps each label to its palette colour. Labels beyond the palette
// are drawn black.
func Render(li *raster.LabelImage, colours []colorful.Color) *image.Paletted {
	pal := make(color.Palette, 0, len(colours)+1)
	for _, c := range colours {
		pal = append(pal, c)
	}
	black := len(pal)
	pal = append(pal, color.Black)

	img := image.NewPaletted(image.Rect(0, 0, li.Width, li.Height), pal)
	for i, l := range li.Labels {
		idx := int(l)
		if idx >= len(colours) {
			idx = black
		}
		img.Pix[i] = uint8(idx)
	}
	return img
}

// Shares summarises the label raster, most common class first.
func Shares(li *raster.LabelImage, colours []colorful.Color) []ClassShare {
	counts := li.Counts()
	total := float64(len(li.Labels))

	shares := make([]ClassShare, 0, len(counts))
	for label, n := range counts {
		s := ClassShare{Label: label, Pixels: n, Proportion: float64(n) / total}
		if label < len(colours) {
			s.Colour = colours[label].Hex()
		}
		shares = append(shares, s)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Pixels != shares[j].Pixels {
			return shares[i].Pixels > shares[j].Pixels
		}
		return shares[i].Label < shares[j].Label
	})
	return shares
}
