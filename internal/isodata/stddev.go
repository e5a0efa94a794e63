package isodata

import (
	"gonum.org/v1/gonum/floats"

	"isoclass/internal/raster"
)

// StdDevPass sums each pixel's squared deviation from its nearest centre
// into that centre's StdDev vector. The target vectors must be zero before
// the pass; finaliseStdDev turns the sums into deviations afterwards.
type StdDevPass struct {
	store Store
	// sums aliases the store's StdDev vectors for the root pass and holds
	// private vectors for forks.
	sums [][]float64
}

// NewStdDevPass returns a pass targeting store.
func NewStdDevPass(store Store) *StdDevPass {
	p := &StdDevPass{}
	p.Reset(store)
	return p
}

// Reset points the pass at store. It does not zero anything.
func (p *StdDevPass) Reset(store Store) {
	p.store = store
	p.sums = make([][]float64, len(store))
	for i, c := range store {
		p.sums[i] = c.StdDev
	}
}

func (p *StdDevPass) Accumulate(pixel []float64) {
	i, _ := nearest(p.store, pixel)
	if i < 0 {
		return
	}
	mean := p.store[i].Mean
	acc := p.sums[i]
	for b := range pixel {
		d := mean[b] - pixel[b]
		acc[b] += d * d
	}
}

func (p *StdDevPass) Fork() raster.Forkable {
	sums := make([][]float64, len(p.store))
	for i, c := range p.store {
		sums[i] = make([]float64, len(c.StdDev))
	}
	return &StdDevPass{store: p.store, sums: sums}
}

func (p *StdDevPass) Join(part raster.Forkable) {
	q := part.(*StdDevPass)
	for i := range p.sums {
		floats.Add(p.sums[i], q.sums[i])
	}
}
