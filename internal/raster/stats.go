package raster

import (
	"context"
	"fmt"
	"math"
)

// BandStat is the value range of one band.
type BandStat struct {
	Min float64
	Max float64
}

type minMax struct {
	min  []float64
	max  []float64
	seen bool
}

func newMinMax(bands int) *minMax {
	mm := &minMax{min: make([]float64, bands), max: make([]float64, bands)}
	for b := range mm.min {
		mm.min[b] = math.Inf(1)
		mm.max[b] = math.Inf(-1)
	}
	return mm
}

func (mm *minMax) Accumulate(pixel []float64) {
	mm.seen = true
	for b, v := range pixel {
		if v < mm.min[b] {
			mm.min[b] = v
		}
		if v > mm.max[b] {
			mm.max[b] = v
		}
	}
}

func (mm *minMax) Fork() Forkable { return newMinMax(len(mm.min)) }

func (mm *minMax) Join(part Forkable) {
	p := part.(*minMax)
	if !p.seen {
		return
	}
	mm.seen = true
	for b := range mm.min {
		mm.min[b] = math.Min(mm.min[b], p.min[b])
		mm.max[b] = math.Max(mm.max[b], p.max[b])
	}
}

// Stats computes the per-band minimum and maximum over the whole raster.
func Stats(ctx context.Context, src Source, workers int) ([]BandStat, error) {
	mm := newMinMax(src.Bands())
	if err := Accumulate(ctx, src, mm, workers); err != nil {
		return nil, err
	}
	if !mm.seen {
		return nil, fmt.Errorf("raster has no pixels")
	}
	stats := make([]BandStat, len(mm.min))
	for b := range stats {
		stats[b] = BandStat{Min: mm.min[b], Max: mm.max[b]}
	}
	return stats, nil
}
