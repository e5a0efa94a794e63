// Package raster is the blocked raster I/O layer the classifier runs on. It
// opens multi-band images, walks them in row blocks (optionally across a
// worker pool) calling a per-pixel callback, and writes single-band label
// rasters.
package raster

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source is a read-only multi-band raster. Pixel values are delivered
// pixel-interleaved: ReadRow fills dst with width*Bands() values, band values
// of one pixel being contiguous.
type Source interface {
	Bands() int
	Size() (width, height int)
	ReadRow(y int, dst []float64)
}

// OpenFunc opens a Source on demand.
type OpenFunc func() (Source, error)

// FileOpener returns an OpenFunc reading the raster at path.
func FileOpener(path string) OpenFunc {
	return func() (Source, error) {
		return Open(path)
	}
}

// StaticOpener returns an OpenFunc that always yields src.
func StaticOpener(src Source) OpenFunc {
	return func() (Source, error) {
		if src == nil {
			return nil, fmt.Errorf("no raster source")
		}
		return src, nil
	}
}

// Open reads the raster at path. ENVI files (.hdr or a data file with a
// sibling .hdr) are read as true multi-band rasters; anything else goes
// through the image decoders.
func Open(path string) (Source, error) {
	var (
		im  *Image
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdr", ".img", ".bsq", ".bil", ".bip", ".dat":
		im, err = OpenENVI(path)
	default:
		im, err = OpenImage(path)
	}
	if err != nil {
		return nil, err
	}
	return im, nil
}
