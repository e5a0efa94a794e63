package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Labeller maps one pixel to one output value.
type Labeller interface {
	Label(pixel []float64) int
}

// LabelImage is a single-band raster of class labels.
type LabelImage struct {
	Width  int
	Height int
	Labels []uint16
}

// At returns the label of the pixel at (x, y).
func (li *LabelImage) At(x, y int) int {
	return int(li.Labels[y*li.Width+x])
}

// Counts returns how many pixels carry each label.
func (li *LabelImage) Counts() map[int]int {
	counts := make(map[int]int)
	for _, l := range li.Labels {
		counts[int(l)]++
	}
	return counts
}

// Gray16 returns the labels as a 16-bit grayscale image.
func (li *LabelImage) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, li.Width, li.Height))
	for i, l := range li.Labels {
		img.SetGray16(i%li.Width, i/li.Width, color.Gray16{Y: l})
	}
	return img
}

// Label runs l over every pixel of src and collects the results.
func Label(ctx context.Context, src Source, l Labeller, workers int) (*LabelImage, error) {
	width, height := src.Size()
	nb := src.Bands()
	out := &LabelImage{Width: width, Height: height, Labels: make([]uint16, width*height)}

	labelBlock := func(b Block, row []float64) error {
		for y := b.Y0; y < b.Y1; y++ {
			src.ReadRow(y, row)
			for x := 0; x < width; x++ {
				v := l.Label(row[x*nb : (x+1)*nb])
				if v < 0 || v > math.MaxUint16 {
					return fmt.Errorf("label %d at (%d,%d) out of 16-bit range", v, x, y)
				}
				out.Labels[y*width+x] = uint16(v)
			}
		}
		return nil
	}

	blocks := ChunkRows(height, DefaultBlockRows)
	if workers <= 1 {
		row := make([]float64, width*nb)
		for _, b := range blocks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := labelBlock(b, row); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	if err := runBlocks(ctx, src, blocks, workers, labelBlock); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteLabels writes li as a single-band 16-bit raster. Paths ending in .tif
// or .tiff are written as TIFF, anything else as PNG. The file only appears at
// path once encoding has fully succeeded.
func WriteLabels(path string, li *LabelImage) error {
	return writeAtomic(path, func(f *os.File) error {
		img := li.Gray16()
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tif", ".tiff":
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
		default:
			return png.Encode(f, img)
		}
	})
}

// WritePNG encodes img to path atomically.
func WritePNG(path string, img image.Image) error {
	return writeAtomic(path, func(f *os.File) error {
		return png.Encode(f, img)
	})
}

func writeAtomic(path string, encode func(f *os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating output raster: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("creating output raster: %w", err)
	}
	if err := encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalising %s: %w", path, err)
	}
	return nil
}
