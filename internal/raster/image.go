package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Image is an in-memory multi-band raster stored pixel-interleaved.
type Image struct {
	width  int
	height int
	bands  int
	data   []float64
}

// NewImage allocates a zero-filled raster.
func NewImage(width, height, bands int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if bands < 1 {
		bands = 1
	}
	return &Image{
		width:  width,
		height: height,
		bands:  bands,
		data:   make([]float64, width*height*bands),
	}
}

func (im *Image) Bands() int { return im.bands }

func (im *Image) Size() (int, int) { return im.width, im.height }

func (im *Image) ReadRow(y int, dst []float64) {
	n := im.width * im.bands
	copy(dst[:n], im.data[y*n:(y+1)*n])
}

// Set writes the band values of the pixel at (x, y).
func (im *Image) Set(x, y int, values ...float64) {
	base := (y*im.width + x) * im.bands
	copy(im.data[base:base+im.bands], values)
}

// Pixel returns a copy of the band values at (x, y).
func (im *Image) Pixel(x, y int) []float64 {
	base := (y*im.width + x) * im.bands
	px := make([]float64, im.bands)
	copy(px, im.data[base:base+im.bands])
	return px
}

// Fill sets every pixel in the rectangle [x0,x1)x[y0,y1) to values.
func (im *Image) Fill(x0, y0, x1, y1 int, values ...float64) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			im.Set(x, y, values...)
		}
	}
}

// OpenImage decodes a PNG, JPEG, TIFF or BMP file. Grayscale images give one
// band, CMYK four, everything else three (R, G, B). 16-bit sources keep their
// full precision.
func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding raster %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image into a band raster.
func FromImage(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		out := NewImage(w, h, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.data[y*w+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out
	case *image.Gray16:
		out := NewImage(w, h, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.data[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out
	case *image.CMYK:
		out := NewImage(w, h, 4)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := src.CMYKAt(b.Min.X+x, b.Min.Y+y)
				out.Set(x, y, float64(c.C), float64(c.M), float64(c.Y), float64(c.K))
			}
		}
		return out
	case *image.NRGBA:
		// Read straight channels; RGBA() would premultiply by alpha.
		out := NewImage(w, h, 3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := src.NRGBAAt(b.Min.X+x, b.Min.Y+y)
				out.Set(x, y, float64(c.R), float64(c.G), float64(c.B))
			}
		}
		return out
	case *image.NRGBA64:
		out := NewImage(w, h, 3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := src.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				out.Set(x, y, float64(c.R), float64(c.G), float64(c.B))
			}
		}
		return out
	}

	// 8-bit colour models are scaled back from the 16-bit RGBA() range.
	shift := uint32(8)
	switch img.ColorModel() {
	case color.RGBA64Model, color.NRGBA64Model:
		shift = 0
	}

	out := NewImage(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(x, y, float64(r>>shift), float64(g>>shift), float64(bl>>shift))
		}
	}
	return out
}
